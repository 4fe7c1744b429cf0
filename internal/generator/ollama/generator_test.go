package ollama

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
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/generate":
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			json.NewEncoder(w).Encode(generateResponse{Response: `{"ok":true}`, Done: true})
		case "/api/tags":
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	g := NewGenerator(
		generator.WithBaseURL(srv.URL),
		generator.WithModel("llama3"),
		generator.WithVisionModel("llava"),
		generator.WithPromptPrefix("Sommelier:"),
		generator.WithJSONOutput(),
	)

	out, err := g.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
	assert.Equal(t, "llama3", got.Model)
	assert.Equal(t, "Sommelier:\nhello", got.Prompt)
	assert.Equal(t, "json", got.Format)
	assert.False(t, got.Stream)

	_, err = g.GenerateWithImage(context.Background(), "label", "data:image/png;base64,iVBOR")
	require.NoError(t, err)
	assert.Equal(t, "llava", got.Model)
	assert.Equal(t, []string{"iVBOR"}, got.Images)

	_, err = g.GenerateWithImage(context.Background(), "label", "https://example.com/label.png")
	assert.Error(t, err)

	assert.True(t, g.(*ollamaGenerator).IsHealthy(context.Background()))
}

func TestGenerate_Errors(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()

	_, err := NewGenerator(generator.WithBaseURL(failing.URL)).Generate(context.Background(), "x")
	assert.EqualError(t, err, "ollama generate: status 500")

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(generateResponse{Done: true})
	}))
	defer empty.Close()

	_, err = NewGenerator(generator.WithBaseURL(empty.URL)).Generate(context.Background(), "x")
	assert.ErrorIs(t, err, generator.ErrNoResponse)
}
