// Package nsq connects the service to an nsqd instance for ingest events.
package nsq

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	gonsq "github.com/nsqio/go-nsq"
)

// NewProducer returns a producer for the nsqd TCP address, logging through
// logger. The connection is made lazily on the first publish.
func NewProducer(addr string, logger *slog.Logger) (*gonsq.Producer, error) {
	cfg := gonsq.NewConfig()
	producer, err := gonsq.NewProducer(addr, cfg)
	if err != nil {
		return nil, fmt.Errorf("nsq producer error: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	producer.SetLogger(NewLogBridge(logger.With("component", "nsq")), gonsq.LogLevelInfo)
	return producer, nil
}

// LogBridge adapts go-nsq's line logger to slog. Lines start with a three
// letter level tag such as "WRN".
type LogBridge struct {
	logger *slog.Logger
}

func NewLogBridge(logger *slog.Logger) *LogBridge {
	return &LogBridge{logger: logger}
}

func (b *LogBridge) Output(calldepth int, s string) error {
	level, msg := splitLevel(s)
	b.logger.Log(context.Background(), level, msg)
	return nil
}

func splitLevel(line string) (slog.Level, string) {
	line = strings.TrimSpace(line)
	tag, rest, ok := strings.Cut(line, " ")
	if !ok {
		return slog.LevelInfo, line
	}

	var level slog.Level
	switch tag {
	case "DBG":
		level = slog.LevelDebug
	case "INF":
		level = slog.LevelInfo
	case "WRN":
		level = slog.LevelWarn
	case "ERR":
		level = slog.LevelError
	default:
		return slog.LevelInfo, line
	}
	return level, strings.TrimSpace(rest)
}
