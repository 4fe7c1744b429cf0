// Package cellar implements record-level operations on top of whole-document
// persistence: each mutation loads a dataset, edits one record and saves the
// full dataset back with the token from that load.
package cellar

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/aryannaik/cellar/internal/search"
	"github.com/aryannaik/cellar/internal/store"
	"github.com/aryannaik/cellar/internal/wine"
)

// DefaultDataset is used when a request names no dataset.
const DefaultDataset = "1"

var (
	ErrNotFound = errors.New("wine not found")

	// ErrStaleVersion is wrapped in a *store.ConflictError when the caller's
	// expected version no longer matches the stored document.
	ErrStaleVersion = errors.New("expected version is stale")
)

type versionKey struct{}

// WithExpectedVersion makes mutations on ctx fail with a conflict unless the
// dataset still has the given version token. An empty token is ignored.
func WithExpectedVersion(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, versionKey{}, token)
}

func expectedVersion(ctx context.Context) string {
	v, _ := ctx.Value(versionKey{}).(string)
	return v
}

// Store is the persistence the service needs; *store.Store implements it.
type Store interface {
	Load(ctx context.Context, datasetID string) (store.Snapshot, error)
	Save(ctx context.Context, datasetID string, records wine.Dataset, token, message string) (store.CommitResult, error)
}

type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

func NewService(s Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: s, logger: logger, now: time.Now}
}

// Listing is a filtered view of a dataset.
type Listing struct {
	Wines    wine.Dataset  `json:"wines"`
	Total    int           `json:"total"`
	Token    string        `json:"version,omitempty"`
	Backend  store.Backend `json:"backend"`
	Degraded bool          `json:"degraded,omitempty"`
}

// Change is the outcome of a mutation.
type Change struct {
	Wine   wine.Wine          `json:"wine"`
	Commit store.CommitResult `json:"-"`
}

func (s *Service) List(ctx context.Context, datasetID string, f search.Filter) (Listing, error) {
	snap, err := s.store.Load(ctx, datasetID)
	if err != nil {
		return Listing{}, err
	}
	matched := f.Apply(snap.Records)
	return Listing{
		Wines:    matched,
		Total:    len(matched),
		Token:    snap.Token,
		Backend:  snap.Backend,
		Degraded: snap.Degraded,
	}, nil
}

func (s *Service) Get(ctx context.Context, datasetID, id string) (wine.Wine, error) {
	snap, err := s.store.Load(ctx, datasetID)
	if err != nil {
		return wine.Wine{}, err
	}
	w, ok := snap.Records.Find(id)
	if !ok {
		return wine.Wine{}, errors.Wrapf(ErrNotFound, "id %s", id)
	}
	return w, nil
}

// Create appends a new record. Owned bottles get sequential ids; journal
// entries for wines drunk elsewhere get timestamp ids.
func (s *Service) Create(ctx context.Context, datasetID string, w wine.Wine) (Change, error) {
	w.ApplyDefaults()

	snap, err := s.store.Load(ctx, datasetID)
	if err != nil {
		return Change{}, err
	}

	if w.FromCellar {
		w.ID = wine.SequentialID(snap.Records)
	} else {
		w.ID = wine.TimestampID(snap.Records, s.now())
	}
	if err := w.Validate(); err != nil {
		return Change{}, err
	}

	records := append(append(wine.Dataset{}, snap.Records...), w)
	return s.commit(ctx, datasetID, snap, records, w, fmt.Sprintf("Add wine: %s", w.Name))
}

// Update merges a JSON patch over the stored record. Fields absent from the
// patch keep their values and the id cannot change.
func (s *Service) Update(ctx context.Context, datasetID, id string, patch []byte) (Change, error) {
	snap, err := s.store.Load(ctx, datasetID)
	if err != nil {
		return Change{}, err
	}

	current, ok := snap.Records.Find(id)
	if !ok {
		return Change{}, errors.Wrapf(ErrNotFound, "id %s", id)
	}

	// The patch must not write through pointers shared with snap.Records, which
	// a conflict reports back as the stored content.
	updated := current.Clone()
	if err := json.Unmarshal(patch, &updated); err != nil {
		return Change{}, wine.ValidationErrors{{Field: "body", Message: "must be a JSON object: " + err.Error()}}
	}
	updated.ID = current.ID
	if err := updated.Validate(); err != nil {
		return Change{}, err
	}

	records, _ := snap.Records.Replace(updated)
	return s.commit(ctx, datasetID, snap, records, updated, fmt.Sprintf("Update wine: %s", updated.Name))
}

// Delete removes a record. Deleting an unknown id returns ErrNotFound and
// writes nothing.
func (s *Service) Delete(ctx context.Context, datasetID, id string) (Change, error) {
	snap, err := s.store.Load(ctx, datasetID)
	if err != nil {
		return Change{}, err
	}

	removed, ok := snap.Records.Find(id)
	if !ok {
		return Change{}, errors.Wrapf(ErrNotFound, "id %s", id)
	}
	records, _ := snap.Records.Without(id)
	return s.commit(ctx, datasetID, snap, records, removed, fmt.Sprintf("Delete wine: %s", removed.Name))
}

// Drink takes one bottle out of the cellar. The last bottle marks the record
// consumed on the given date (today when empty).
func (s *Service) Drink(ctx context.Context, datasetID, id, date string) (Change, error) {
	if date == "" {
		date = s.now().Format(wine.DateLayout)
	}

	snap, err := s.store.Load(ctx, datasetID)
	if err != nil {
		return Change{}, err
	}

	w, ok := snap.Records.Find(id)
	if !ok {
		return Change{}, errors.Wrapf(ErrNotFound, "id %s", id)
	}
	if w.Status != wine.StatusInCellar {
		return Change{}, wine.ValidationErrors{{Field: "status", Message: "only wines in the cellar can be opened"}}
	}

	if w.Quantity > 1 {
		w.Quantity--
	} else {
		w.Status = wine.StatusConsumed
		w.ConsumedDate = &date
	}
	if err := w.Validate(); err != nil {
		return Change{}, err
	}

	records, _ := snap.Records.Replace(w)
	return s.commit(ctx, datasetID, snap, records, w, fmt.Sprintf("Drink wine: %s", w.Name))
}

// Amend rewrites a record with fn and saves the result against the version
// the record was read from. fn may be slow (a model call); an edit committed
// meanwhile makes the save fail with a conflict instead of being overwritten.
func (s *Service) Amend(ctx context.Context, datasetID, id string, fn func(context.Context, wine.Wine) (wine.Wine, error)) (Change, error) {
	snap, err := s.store.Load(ctx, datasetID)
	if err != nil {
		return Change{}, err
	}

	current, ok := snap.Records.Find(id)
	if !ok {
		return Change{}, errors.Wrapf(ErrNotFound, "id %s", id)
	}

	amended, err := fn(ctx, current.Clone())
	if err != nil {
		return Change{}, err
	}
	amended.ID = current.ID
	if err := amended.Validate(); err != nil {
		return Change{}, err
	}

	records, _ := snap.Records.Replace(amended)
	return s.commit(ctx, datasetID, snap, records, amended, fmt.Sprintf("Update wine: %s", amended.Name))
}

func (s *Service) commit(ctx context.Context, datasetID string, snap store.Snapshot, records wine.Dataset, w wine.Wine, message string) (Change, error) {
	if want := expectedVersion(ctx); want != "" && snap.Token != "" && want != snap.Token {
		return Change{}, &store.ConflictError{
			DatasetID: datasetID,
			Current:   snap.Records,
			Token:     snap.Token,
			Err:       ErrStaleVersion,
		}
	}

	res, err := s.store.Save(ctx, datasetID, records, snap.Token, message)
	if err != nil {
		return Change{}, err
	}
	if res.Cause != nil {
		s.logger.Warn("change saved locally only",
			zap.String("dataset", datasetID),
			zap.String("id", w.ID),
			zap.Error(res.Cause))
	}
	return Change{Wine: w, Commit: res}, nil
}
