package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/aryannaik/cellar/internal/auth"
	"github.com/aryannaik/cellar/internal/cellar"
	"github.com/aryannaik/cellar/internal/search"
	"github.com/aryannaik/cellar/internal/sommelier"
	"github.com/aryannaik/cellar/internal/store"
	"github.com/aryannaik/cellar/internal/wine"
)

// maxBody bounds request bodies; label photos arrive as data URLs.
const maxBody = 8 << 20

const healthTimeout = 2 * time.Second

type Handlers struct {
	svc     *cellar.Service
	backend store.Backend
	gate    *auth.Gate
	som     *sommelier.Sommelier
	logger  *zap.Logger
	secure  bool
}

func NewHandlers(opts Options) *Handlers {
	return &Handlers{
		svc:     opts.Service,
		backend: opts.Backend,
		gate:    opts.Gate,
		som:     opts.Sommelier,
		logger:  opts.Logger,
		secure:  opts.SecureCookies,
	}
}

type statusResponse struct {
	Backend   store.Backend `json:"backend"`
	Auth      bool          `json:"auth"`
	AI        bool          `json:"ai"`
	AIHealthy bool          `json:"aiHealthy"`
	Authed    bool          `json:"authenticated"`
}

func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Backend: h.backend,
		Auth:    h.gate.Enabled(),
		AI:      h.som != nil,
		Authed:  h.gate.Authorized(r),
	}
	if h.som != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		resp.AIHealthy = h.som.Healthy(ctx)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Pin string `json:"pin"`
	}
	if err := decodeBody(r, &body); err != nil {
		badRequest(w, err.Error())
		return
	}
	token, ok := h.gate.Login(body.Pin)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid pin"})
		return
	}
	auth.SetCookie(w, token, h.secure)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handlers) HandleLogout(w http.ResponseWriter, _ *http.Request) {
	auth.ClearCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := search.ParseFilter(q)

	// Relevance sorting matches any term instead of requiring all of them.
	relevance := q.Get("sort") == "relevance" && f.Search != ""
	query := f.Search
	if relevance {
		f.Search = ""
	}

	listing, err := h.svc.List(r.Context(), dataset(r), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if relevance {
		ranked := search.Rank(listing.Wines, query)
		listing.Wines = make(wine.Dataset, 0, len(ranked))
		for _, res := range ranked {
			if res.Score > 0 {
				listing.Wines = append(listing.Wines, res.Wine)
			}
		}
		listing.Total = len(listing.Wines)
	}
	if listing.Wines == nil {
		listing.Wines = wine.Dataset{}
	}

	data, err := json.Marshal(listing)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	etag := fmt.Sprintf(`"%016x"`, xxhash.Sum64(data))
	w.Header().Set("ETag", etag)
	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *Handlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	found, err := h.svc.Get(r.Context(), dataset(r), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	// Records added through the API are owned bottles unless the body says
	// otherwise.
	in := wine.Wine{FromCellar: true}
	if err := decodeBody(r, &in); err != nil {
		badRequest(w, err.Error())
		return
	}
	ch, err := h.svc.Create(expecting(r), dataset(r), in)
	h.writeChange(w, r, http.StatusCreated, ch, err)
}

func (h *Handlers) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	patch, err := readBody(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	ch, err := h.svc.Update(expecting(r), dataset(r), mux.Vars(r)["id"], patch)
	h.writeChange(w, r, http.StatusOK, ch, err)
}

func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ch, err := h.svc.Delete(expecting(r), dataset(r), mux.Vars(r)["id"])
	h.writeChange(w, r, http.StatusOK, ch, err)
}

func (h *Handlers) HandleDrink(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Date string `json:"date"`
	}
	data, err := readBody(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := json.Unmarshal(data, &body); err != nil {
			badRequest(w, "invalid JSON body: "+err.Error())
			return
		}
	}
	ch, err := h.svc.Drink(expecting(r), dataset(r), mux.Vars(r)["id"], body.Date)
	h.writeChange(w, r, http.StatusOK, ch, err)
}

func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context(), dataset(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type changeResponse struct {
	Wine    wine.Wine     `json:"wine"`
	Backend store.Backend `json:"backend"`
	Version string        `json:"version,omitempty"`
	Commit  string        `json:"commit,omitempty"`
	// Warning is set when a remote write failed and the change was kept
	// locally instead.
	Warning string `json:"warning,omitempty"`
}

func (h *Handlers) writeChange(w http.ResponseWriter, r *http.Request, status int, ch cellar.Change, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := changeResponse{
		Wine:    ch.Wine,
		Backend: ch.Commit.Backend,
		Version: ch.Commit.Token,
		Commit:  ch.Commit.CommitSHA,
	}
	if ch.Commit.Cause != nil {
		resp.Warning = "remote save failed, change stored locally"
	}
	writeJSON(w, status, resp)
}

// dataset reads the dataSource query parameter.
func dataset(r *http.Request) string {
	if ds := r.URL.Query().Get("dataSource"); ds != "" {
		return ds
	}
	return cellar.DefaultDataset
}

// expecting attaches the client's version token, from If-Match or the
// version query parameter, to the request context.
func expecting(r *http.Request) context.Context {
	token := strings.Trim(strings.TrimSpace(r.Header.Get("If-Match")), `"`)
	if token == "" {
		token = r.URL.Query().Get("version")
	}
	return cellar.WithExpectedVersion(r.Context(), token)
}

func readBody(r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	if len(data) > maxBody {
		return nil, errors.Errorf("body exceeds %d bytes", maxBody)
	}
	return data, nil
}

func decodeBody(r *http.Request, v any) error {
	data, err := readBody(r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrap(err, "invalid JSON body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
