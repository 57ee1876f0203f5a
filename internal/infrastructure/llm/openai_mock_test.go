package llm

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
)

// fakeOpenAI replays canned chat completion messages in order and records the requests
type fakeOpenAI struct {
	t         *testing.T
	mu        sync.Mutex
	replies   []openai.ChatCompletionMessage
	requests  []openai.ChatCompletionRequest
	embedding []float32
	status    int
}

func newFakeOpenAI(t *testing.T, replies ...openai.ChatCompletionMessage) (*fakeOpenAI, string) {
	f := &fakeOpenAI{t: t, replies: replies}
	server := httptest.NewServer(f)
	t.Cleanup(server.Close)
	return f, server.URL + "/v1"
}

func (f *fakeOpenAI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream unavailable","type":"server_error"}}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/v1/chat/completions":
		var req openai.ChatCompletionRequest
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
		f.requests = append(f.requests, req)

		require.NotEmpty(f.t, f.replies, "unexpected chat completion request")
		msg := f.replies[0]
		f.replies = f.replies[1:]
		msg.Role = openai.ChatMessageRoleAssistant

		require.NoError(f.t, json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:      "chatcmpl-test",
			Object:  "chat.completion",
			Model:   req.Model,
			Choices: []openai.ChatCompletionChoice{{Index: 0, Message: msg}},
		}))
	case "/v1/embeddings":
		require.NoError(f.t, json.NewEncoder(w).Encode(map[string]interface{}{
			"object": "list",
			"data":   []map[string]interface{}{{"object": "embedding", "index": 0, "embedding": f.embedding}},
			"model":  "text-embedding-3-small",
		}))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeOpenAI) recorded() []openai.ChatCompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]openai.ChatCompletionRequest(nil), f.requests...)
}

func toolCall(id, name, args string) openai.ToolCall {
	return openai.ToolCall{
		ID:       id,
		Type:     openai.ToolTypeFunction,
		Function: openai.FunctionCall{Name: name, Arguments: args},
	}
}

func (f *fakeOpenAI) setEmbedding(v []float32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.embedding = v
}

func (f *fakeOpenAI) setStatus(code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = code
}
