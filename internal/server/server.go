package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/aryannaik/cellar/internal/auth"
	"github.com/aryannaik/cellar/internal/cellar"
	"github.com/aryannaik/cellar/internal/sommelier"
	"github.com/aryannaik/cellar/internal/store"
)

// Options wires the server to its collaborators. Sommelier may be nil when no
// model is configured.
type Options struct {
	Service       *cellar.Service
	Backend       store.Backend
	Gate          *auth.Gate
	Sommelier     *sommelier.Sommelier
	Logger        *zap.Logger
	StaticDir     string
	SecureCookies bool
}

func New(port string, opts Options) *http.Server {
	return &http.Server{
		Addr:              ":" + port,
		Handler:           NewRouter(opts),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter builds the API routes and the static file handler.
func NewRouter(opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Gate == nil {
		opts.Gate = auth.NewGate("", nil)
	}
	h := NewHandlers(opts)

	r := mux.NewRouter()
	r.Use(requestID, accessLog(opts.Logger))

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", h.HandleStatus).Methods(http.MethodGet)
	api.HandleFunc("/auth/login", h.HandleLogin).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", h.HandleLogout).Methods(http.MethodPost)

	gated := api.NewRoute().Subrouter()
	gated.Use(opts.Gate.Middleware)
	gated.HandleFunc("/wines", h.HandleList).Methods(http.MethodGet)
	gated.HandleFunc("/wines", h.HandleCreate).Methods(http.MethodPost)
	gated.HandleFunc("/wines/{id}", h.HandleGet).Methods(http.MethodGet)
	gated.HandleFunc("/wines/{id}", h.HandleUpdate).Methods(http.MethodPut)
	gated.HandleFunc("/wines/{id}", h.HandleDelete).Methods(http.MethodDelete)
	gated.HandleFunc("/wines/{id}/drink", h.HandleDrink).Methods(http.MethodPost)
	gated.HandleFunc("/wines/{id}/enrich", h.HandleEnrich).Methods(http.MethodPost)
	gated.HandleFunc("/stats", h.HandleStats).Methods(http.MethodGet)
	gated.HandleFunc("/ai/label", h.HandleLabel).Methods(http.MethodPost)
	gated.HandleFunc("/ai/sommelier", h.HandleSommelier).Methods(http.MethodPost)

	api.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	})

	if opts.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(opts.StaticDir)))
	}
	return r
}
