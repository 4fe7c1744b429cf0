// Package sommelier holds the LLM-backed helpers: reading a label photo,
// filling in pairing notes and answering "what should I open" questions
// about the cellar. Replies are parsed leniently because models wrap JSON in
// prose or code fences more often than not.
package sommelier

import (
	"context"
	"fmt"
	"strings"

	"github.com/jinzhu/copier"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/aryannaik/cellar/internal/generator"
	"github.com/aryannaik/cellar/internal/wine"
)

var (
	ErrNoVision    = errors.New("configured model cannot read images")
	ErrBadResponse = errors.New("model reply did not contain the expected JSON")
)

const labelPrompt = `Read this wine label and reply with a single JSON object with the keys
name, country, region, vintage (number), grapes, style, drinkingWindow, peakYear (number).
Use an empty string or 0 for anything you cannot read.`

const enrichPrompt = `Complete the profile of this wine and suggest food pairings. Reply with a single
JSON object with the keys region, grapes, style, drinkingWindow, peakYear (number) and pairing
(one or two sentences). Leave a key empty when unsure.

Wine: %s`

const recommendPrompt = `You are a sommelier helping someone choose from their own cellar.
Only recommend wines from the list. Reply with a single JSON object with the keys
answer (text) and ids (array of the bracketed ids you recommend).

Cellar:
%s
Question: %s`

type Sommelier struct {
	gen generator.Generator
}

func New(gen generator.Generator) *Sommelier {
	return &Sommelier{gen: gen}
}

type healthChecker interface {
	IsHealthy(ctx context.Context) bool
}

// Healthy probes the model backend when it supports a health check, as a
// local Ollama does. Hosted providers are assumed reachable.
func (s *Sommelier) Healthy(ctx context.Context) bool {
	if hc, ok := s.gen.(healthChecker); ok {
		return hc.IsHealthy(ctx)
	}
	return true
}

// ExtractLabel reads a label image into a draft record. The draft is not
// validated or saved; the caller reviews it first.
func (s *Sommelier) ExtractLabel(ctx context.Context, imageURL string) (wine.Wine, error) {
	vg, ok := s.gen.(generator.VisionGenerator)
	if !ok {
		return wine.Wine{}, ErrNoVision
	}

	reply, err := vg.GenerateWithImage(ctx, labelPrompt, imageURL)
	if err != nil {
		return wine.Wine{}, errors.Wrap(err, "extract label")
	}

	obj, err := extractObject(reply)
	if err != nil {
		return wine.Wine{}, err
	}

	draft := descriptive(obj)
	draft.FromCellar = true
	draft.ApplyDefaults()
	return draft, nil
}

// Enrich fills the descriptive fields that are still empty and appends the
// suggested pairing to the notes. Fields the owner already set are kept.
func (s *Sommelier) Enrich(ctx context.Context, w wine.Wine) (wine.Wine, error) {
	reply, err := s.gen.Generate(ctx, fmt.Sprintf(enrichPrompt, strings.TrimSpace(wine.Dataset{w}.Summary())))
	if err != nil {
		return wine.Wine{}, errors.Wrap(err, "enrich wine")
	}

	obj, err := extractObject(reply)
	if err != nil {
		return wine.Wine{}, err
	}

	suggested := descriptive(obj)
	enriched := suggested
	if err := copier.CopyWithOption(&enriched, &w, copier.Option{IgnoreEmpty: true}); err != nil {
		return wine.Wine{}, errors.Wrap(err, "merge suggestions")
	}

	if pairing := strings.TrimSpace(obj.Get("pairing").String()); pairing != "" && !strings.Contains(w.Notes, pairing) {
		if enriched.Notes != "" {
			enriched.Notes += "\n"
		}
		enriched.Notes += "Pairing: " + pairing
	}
	return enriched, nil
}

// Recommendation is the answer to a cellar question.
type Recommendation struct {
	Answer string       `json:"answer"`
	Wines  wine.Dataset `json:"wines"`
}

// Recommend answers a question using only the in-cellar records of d. Ids
// the model invents are dropped.
func (s *Sommelier) Recommend(ctx context.Context, question string, d wine.Dataset) (Recommendation, error) {
	available := make(wine.Dataset, 0, len(d))
	for _, w := range d {
		if w.Status == wine.StatusInCellar {
			available = append(available, w)
		}
	}
	if len(available) == 0 {
		return Recommendation{Answer: "There is nothing in the cellar to recommend yet.", Wines: wine.Dataset{}}, nil
	}

	reply, err := s.gen.Generate(ctx, fmt.Sprintf(recommendPrompt, available.Summary(), question))
	if err != nil {
		return Recommendation{}, errors.Wrap(err, "recommend")
	}

	obj, err := extractObject(reply)
	if err != nil {
		// Plain prose is still a usable answer.
		return Recommendation{Answer: strings.TrimSpace(reply), Wines: wine.Dataset{}}, nil
	}

	rec := Recommendation{Answer: obj.Get("answer").String(), Wines: wine.Dataset{}}
	seen := make(map[string]bool)
	for _, id := range obj.Get("ids").Array() {
		key := id.String()
		if w, ok := available.Find(key); ok && !seen[key] {
			seen[key] = true
			rec.Wines = append(rec.Wines, w)
		}
	}
	return rec, nil
}

func descriptive(obj gjson.Result) wine.Wine {
	return wine.Wine{
		Name:           strings.TrimSpace(obj.Get("name").String()),
		Country:        strings.TrimSpace(obj.Get("country").String()),
		Region:         strings.TrimSpace(obj.Get("region").String()),
		Vintage:        int(obj.Get("vintage").Int()),
		Grapes:         strings.TrimSpace(obj.Get("grapes").String()),
		Style:          strings.TrimSpace(obj.Get("style").String()),
		DrinkingWindow: strings.TrimSpace(obj.Get("drinkingWindow").String()),
		PeakYear:       int(obj.Get("peakYear").Int()),
	}
}

// extractObject finds the first JSON object in a model reply.
func extractObject(reply string) (gjson.Result, error) {
	s := strings.TrimSpace(reply)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return gjson.Result{}, ErrBadResponse
	}
	s = s[start : end+1]

	if !gjson.Valid(s) {
		return gjson.Result{}, ErrBadResponse
	}
	return gjson.Parse(s), nil
}
