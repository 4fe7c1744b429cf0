package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryannaik/cellar/internal/generator"
)

func TestGenerate(t *testing.T) {
	var got struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "sk-ant-test", r.Header.Get("X-Api-Key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":          "msg_1",
			"type":        "message",
			"role":        "assistant",
			"model":       got.Model,
			"stop_reason": "end_turn",
			"content":     []map[string]string{{"type": "text", "text": "Try the Riesling."}},
			"usage":       map[string]int{"input_tokens": 10, "output_tokens": 4},
		})
	}))
	defer srv.Close()

	g := NewGenerator(
		generator.WithApiKey("sk-ant-test"),
		generator.WithBaseURL(srv.URL),
		generator.WithModel("claude-sonnet-4-5"),
		generator.WithMaxTokens(256),
	)

	out, err := g.Generate(context.Background(), "Something for spicy food?")
	require.NoError(t, err)
	assert.Equal(t, "Try the Riesling.", out)
	assert.Equal(t, "claude-sonnet-4-5", got.Model)
	assert.Equal(t, 256, got.MaxTokens)
}
