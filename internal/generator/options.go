package generator

import (
	"context"
	"time"
)

type Option func(*Options)

type Options struct {
	ApiKey       string
	Model        string
	VisionModel  string
	BaseURL      string
	PromptPrefix string
	JSONOutput   bool
	MaxTokens    int
	Timeout      time.Duration
	Context      context.Context
}

func WithApiKey(apiKey string) Option {
	return func(o *Options) {
		o.ApiKey = apiKey
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithVisionModel(model string) Option {
	return func(o *Options) {
		o.VisionModel = model
	}
}

func WithBaseURL(url string) Option {
	return func(o *Options) {
		o.BaseURL = url
	}
}

func WithPromptPrefix(prefix string) Option {
	return func(o *Options) {
		o.PromptPrefix = prefix
	}
}

// WithJSONOutput asks providers that support it to constrain replies to a
// JSON object.
func WithJSONOutput() Option {
	return func(o *Options) {
		o.JSONOutput = true
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		MaxTokens: 1024,
		Timeout:   120 * time.Second,
		Context:   context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// Prompt prepends the configured prefix.
func (o Options) Prompt(prompt string) string {
	if len(o.PromptPrefix) > 0 {
		return o.PromptPrefix + "\n" + prompt
	}
	return prompt
}
