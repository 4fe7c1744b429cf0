package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/aryannaik/cellar/internal/generator"
)

const defaultHost = "http://localhost:11434"

type ollamaGenerator struct {
	options    generator.Options
	host       string
	httpClient *http.Client
}

func NewGenerator(opts ...generator.Option) generator.VisionGenerator {
	options := generator.NewOptions(opts...)

	host := strings.TrimRight(options.BaseURL, "/")
	if host == "" {
		host = defaultHost
	}

	return &ollamaGenerator{
		options: options,
		host:    host,
		httpClient: &http.Client{
			Timeout: options.Timeout,
		},
	}
}

func (g *ollamaGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.generate(ctx, g.options.Model, prompt, nil)
}

// GenerateWithImage sends the image inline. Ollama only accepts base64
// payloads, so imageURL must be a data: URL.
func (g *ollamaGenerator) GenerateWithImage(ctx context.Context, prompt, imageURL string) (string, error) {
	_, data, ok := strings.Cut(imageURL, ";base64,")
	if !strings.HasPrefix(imageURL, "data:") || !ok {
		return "", errors.New("ollama: image must be a base64 data URL")
	}
	model := g.options.VisionModel
	if model == "" {
		model = g.options.Model
	}
	return g.generate(ctx, model, prompt, []string{data})
}

func (g *ollamaGenerator) generate(ctx context.Context, model, prompt string, images []string) (string, error) {
	req := generateRequest{
		Model:  model,
		Prompt: g.options.Prompt(prompt),
		Images: images,
	}
	if g.options.JSONOutput {
		req.Format = "json"
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", errors.Wrap(err, "marshal generate request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "build generate request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", errors.Wrap(err, "ollama generate request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("ollama generate: status %d", resp.StatusCode)
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", errors.Wrap(err, "decode generate response")
	}

	if result.Response == "" {
		return "", generator.ErrNoResponse
	}

	return result.Response, nil
}

// IsHealthy checks if Ollama is reachable.
func (g *ollamaGenerator) IsHealthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.host+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
