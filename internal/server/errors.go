package server

import (
	"net/http"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/aryannaik/cellar/internal/cellar"
	"github.com/aryannaik/cellar/internal/sommelier"
	"github.com/aryannaik/cellar/internal/store"
	"github.com/aryannaik/cellar/internal/wine"
)

type errorResponse struct {
	Error   string            `json:"error"`
	Fields  []wine.FieldError `json:"fields,omitempty"`
	Version string            `json:"version,omitempty"`
	Wines   wine.Dataset      `json:"wines,omitempty"`
}

// writeError maps domain errors to status codes. Anything unrecognised is a
// 500 with a generic message; the detail goes to the log only.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verrs    wine.ValidationErrors
		conflict *store.ConflictError
	)

	switch {
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: verrs})
	case errors.Is(err, cellar.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "wine not found"})
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, errorResponse{
			Error:   "dataset changed, reload and retry",
			Version: conflict.Token,
			Wines:   conflict.Current,
		})
	case errors.Is(err, store.ErrMissingToken):
		writeJSON(w, http.StatusPreconditionRequired, errorResponse{Error: "reload the dataset before saving"})
	case errors.Is(err, sommelier.ErrNoVision):
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: sommelier.ErrNoVision.Error()})
	case errors.Is(err, sommelier.ErrBadResponse):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "assistant reply could not be read"})
	default:
		h.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", r.Header.Get(requestIDHeader)),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "operation failed"})
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}
