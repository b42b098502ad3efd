package config

const (
	// TopicLectureIngested is the NSQ topic announcing a lecture appended to the corpus.
	TopicLectureIngested = "lecture.ingested"
)
