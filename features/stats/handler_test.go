package stats

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Devpradp/TA-Chatbot/internal/corpus"
)

type MockCorpus struct{ mock.Mock }

func (m *MockCorpus) Stats() corpus.Stats {
	return m.Called().Get(0).(corpus.Stats)
}

func TestHandler_GetStats(t *testing.T) {
	m := new(MockCorpus)
	m.On("Stats").Return(corpus.Stats{Chunks: 7, Vectors: 7, Dimension: 768})

	w := httptest.NewRecorder()
	NewHandler(m).GetStats(w, httptest.NewRequest(http.MethodGet, "/stats", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	data := body["data"].(map[string]interface{})
	assert.EqualValues(t, 7, data["chunks"])
	assert.EqualValues(t, 7, data["vectors"])
	assert.EqualValues(t, 768, data["dimension"])
	m.AssertExpectations(t)
}

func TestHandler_GetStats_RealCorpus(t *testing.T) {
	c := corpus.New()
	require.NoError(t, c.AppendBatch([][]float32{{1, 2}, {3, 4}}, []string{"a", "b"}))

	w := httptest.NewRecorder()
	NewHandler(c).GetStats(w, httptest.NewRequest(http.MethodGet, "/stats", nil))

	var body struct {
		Data corpus.Stats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, corpus.Stats{Chunks: 2, Vectors: 2, Dimension: 2}, body.Data)
}
