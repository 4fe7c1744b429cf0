package openai

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

type capturedRequest struct {
	Model          string `json:"model"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format"`
	Messages []struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"messages"`
}

func newFakeOpenAI(t *testing.T, reply string, got *capturedRequest) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(got))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   got.Model,
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": reply},
				"finish_reason": "stop",
			}},
		})
	}))
}

func TestGenerate(t *testing.T) {
	var got capturedRequest
	srv := newFakeOpenAI(t, "Pair it with lamb.", &got)
	defer srv.Close()

	g := NewGenerator(
		generator.WithApiKey("sk-test"),
		generator.WithBaseURL(srv.URL+"/v1"),
		generator.WithModel("gpt-4o-mini"),
		generator.WithJSONOutput(),
	)

	out, err := g.Generate(context.Background(), "What goes with Barolo?")
	require.NoError(t, err)
	assert.Equal(t, "Pair it with lamb.", out)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
	require.Len(t, got.Messages, 1)
	assert.JSONEq(t, `"What goes with Barolo?"`, string(got.Messages[0].Content))
}

func TestGenerateWithImage(t *testing.T) {
	var got capturedRequest
	srv := newFakeOpenAI(t, `{"name":"Opus One"}`, &got)
	defer srv.Close()

	g := NewGenerator(
		generator.WithApiKey("sk-test"),
		generator.WithBaseURL(srv.URL+"/v1"),
		generator.WithModel("gpt-4o-mini"),
		generator.WithVisionModel("gpt-4o"),
	)

	out, err := g.GenerateWithImage(context.Background(), "Read this label", "data:image/jpeg;base64,AAAA")
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Opus One"}`, out)
	assert.Equal(t, "gpt-4o", got.Model)
	assert.Nil(t, got.ResponseFormat)

	var parts []map[string]any
	require.NoError(t, json.Unmarshal(got.Messages[0].Content, &parts))
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0]["type"])
	assert.Equal(t, "image_url", parts[1]["type"])
}

func TestGenerate_EmptyReply(t *testing.T) {
	var got capturedRequest
	srv := newFakeOpenAI(t, "", &got)
	defer srv.Close()

	g := NewGenerator(generator.WithApiKey("sk-test"), generator.WithBaseURL(srv.URL+"/v1"))
	_, err := g.Generate(context.Background(), "hi")
	assert.ErrorIs(t, err, generator.ErrNoResponse)
}
