package server

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/aryannaik/cellar/internal/search"
)

func (h *Handlers) requireSommelier(w http.ResponseWriter) bool {
	if h.som == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "no AI provider configured"})
		return false
	}
	return true
}

// HandleEnrich asks the model to complete a record and saves the merge.
func (h *Handlers) HandleEnrich(w http.ResponseWriter, r *http.Request) {
	if !h.requireSommelier(w) {
		return
	}
	ch, err := h.svc.Amend(expecting(r), dataset(r), mux.Vars(r)["id"], h.som.Enrich)
	h.writeChange(w, r, http.StatusOK, ch, err)
}

// HandleLabel turns a label photo into an unsaved draft.
func (h *Handlers) HandleLabel(w http.ResponseWriter, r *http.Request) {
	if !h.requireSommelier(w) {
		return
	}
	var body struct {
		Image string `json:"image"`
	}
	if err := decodeBody(r, &body); err != nil {
		badRequest(w, err.Error())
		return
	}
	if !strings.HasPrefix(body.Image, "data:image/") && !strings.HasPrefix(body.Image, "https://") {
		badRequest(w, "image must be a data:image URL or an https URL")
		return
	}

	draft, err := h.som.ExtractLabel(r.Context(), body.Image)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"wine": draft})
}

// HandleSommelier answers a question about what to open.
func (h *Handlers) HandleSommelier(w http.ResponseWriter, r *http.Request) {
	if !h.requireSommelier(w) {
		return
	}
	var body struct {
		Question string `json:"question"`
	}
	if err := decodeBody(r, &body); err != nil {
		badRequest(w, err.Error())
		return
	}
	question := strings.TrimSpace(body.Question)
	if question == "" {
		badRequest(w, "question is required")
		return
	}

	listing, err := h.svc.List(r.Context(), dataset(r), search.Filter{})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	rec, err := h.som.Recommend(r.Context(), question, listing.Wines)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
