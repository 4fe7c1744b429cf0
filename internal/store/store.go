// Package store loads and persists wine datasets, preferring a GitHub
// repository when credentials are configured and falling back to files on
// local disk.
//
// Every save writes the whole dataset. A single-record edit therefore costs
// one full read and one full write of its document, which is fine for a
// personal cellar of a few hundred bottles.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/aryannaik/cellar/internal/github"
	"github.com/aryannaik/cellar/internal/wine"
)

// Backend names the persistence path that served a request.
type Backend string

const (
	BackendLocal  Backend = "local"
	BackendRemote Backend = "remote"
)

const (
	fileDefault = "wines.json"
	fileSecond  = "wines2.json"
)

// DatasetFile maps a dataset id to its document name. The table is closed:
// "2" has its own file and every other id shares the default one.
func DatasetFile(datasetID string) string {
	if datasetID == "2" {
		return fileSecond
	}
	return fileDefault
}

// Config selects and configures the backends.
type Config struct {
	// DataDir holds the local documents.
	DataDir string

	// Owner, Repo and Token must all be set for the remote backend to be used.
	Owner  string
	Repo   string
	Token  string
	Branch string
	// RemoteDir is the directory inside the repository holding the documents.
	RemoteDir string
	APIURL    string
	Timeout   time.Duration
}

// RemoteEnabled reports whether the remote backend is active. It depends only
// on the three credential fields.
func (c Config) RemoteEnabled() bool {
	return c.Owner != "" && c.Repo != "" && c.Token != ""
}

// Snapshot is the result of a Load.
type Snapshot struct {
	Records wine.Dataset
	// Token is the blob sha of the document that was read. It is empty when
	// the local backend served the read.
	Token   string
	Backend Backend
	// Degraded is set when the remote read failed and Records came from the
	// local copy instead. Cause holds the remote error.
	Degraded bool
	Cause    error
}

// CommitResult describes a completed Save.
type CommitResult struct {
	Backend Backend
	// Token is the new blob sha after a remote write.
	Token     string
	CommitSHA string
	// Cause is the remote error that forced a local write, if any.
	Cause error
}

var tracer = otel.Tracer("github.com/aryannaik/cellar/internal/store")

type Store struct {
	local  *localBackend
	remote *remoteBackend
	logger *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}

	s := &Store{
		local:  &localBackend{dir: cfg.DataDir},
		logger: logger,
	}

	if cfg.RemoteEnabled() {
		branch := cfg.Branch
		if branch == "" {
			branch = "main"
		}
		dir := cfg.RemoteDir
		if dir == "" {
			dir = "data"
		}
		s.remote = &remoteBackend{
			api:    github.NewClient(cfg.APIURL, cfg.Owner, cfg.Repo, cfg.Token, cfg.Timeout),
			branch: branch,
			dir:    dir,
		}
	}

	return s
}

// Backend reports which backend loads and saves go to first.
func (s *Store) Backend() Backend {
	if s.remote != nil {
		return BackendRemote
	}
	return BackendLocal
}

// Load reads a dataset. A failing remote read is logged and replaced by the
// local copy; malformed JSON from either backend is returned as ErrMalformed.
func (s *Store) Load(ctx context.Context, datasetID string) (Snapshot, error) {
	ctx, span := tracer.Start(ctx, "store.Load", trace.WithAttributes(attribute.String("dataset", datasetID)))
	defer span.End()

	file := DatasetFile(datasetID)

	if s.remote != nil {
		records, sha, err := s.remote.read(ctx, file)
		if err == nil {
			span.SetAttributes(attribute.String("backend", string(BackendRemote)))
			return Snapshot{Records: records, Token: sha, Backend: BackendRemote}, nil
		}
		if errors.Is(err, ErrMalformed) {
			fail(span, err)
			return Snapshot{}, errors.Wrapf(err, "load dataset %s from remote", datasetID)
		}

		s.logger.Warn("remote read failed, serving local copy",
			zap.String("dataset", datasetID),
			zap.String("file", file),
			zap.Error(err))

		snap, lerr := s.loadLocal(file)
		if lerr != nil {
			fail(span, lerr)
			return Snapshot{}, errors.Wrapf(lerr, "load dataset %s", datasetID)
		}
		snap.Degraded = true
		snap.Cause = err
		span.SetAttributes(attribute.String("backend", string(BackendLocal)), attribute.Bool("degraded", true))
		return snap, nil
	}

	snap, err := s.loadLocal(file)
	if err != nil {
		fail(span, err)
		return Snapshot{}, errors.Wrapf(err, "load dataset %s", datasetID)
	}
	span.SetAttributes(attribute.String("backend", string(BackendLocal)))
	return snap, nil
}

func (s *Store) loadLocal(file string) (Snapshot, error) {
	records, err := s.local.read(file)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Records: records, Backend: BackendLocal}, nil
}

// Save writes the complete dataset. With the remote backend active, token
// must be the one returned by the Load this content was derived from. A
// stale token yields a *ConflictError; any other remote failure falls back to
// a local write, reported through CommitResult.Cause.
func (s *Store) Save(ctx context.Context, datasetID string, records wine.Dataset, token, message string) (CommitResult, error) {
	ctx, span := tracer.Start(ctx, "store.Save", trace.WithAttributes(attribute.String("dataset", datasetID)))
	defer span.End()

	file := DatasetFile(datasetID)
	data, err := encode(records)
	if err != nil {
		fail(span, err)
		return CommitResult{}, err
	}

	if s.remote != nil {
		if token == "" {
			fail(span, ErrMissingToken)
			return CommitResult{}, errors.Wrapf(ErrMissingToken, "save dataset %s", datasetID)
		}

		resp, err := s.remote.write(ctx, file, data, token, message)
		if err == nil {
			span.SetAttributes(attribute.String("backend", string(BackendRemote)))
			return CommitResult{
				Backend:   BackendRemote,
				Token:     resp.Content.SHA,
				CommitSHA: resp.Commit.SHA,
			}, nil
		}

		if errors.Is(err, github.ErrConflict) {
			cerr := &ConflictError{DatasetID: datasetID, Err: err}
			current, sha, rerr := s.remote.read(ctx, file)
			if rerr != nil {
				s.logger.Warn("could not read current content after conflict",
					zap.String("dataset", datasetID),
					zap.Error(rerr))
			} else {
				cerr.Current = current
				cerr.Token = sha
			}
			fail(span, cerr)
			return CommitResult{}, cerr
		}

		s.logger.Warn("remote write failed, writing local copy",
			zap.String("dataset", datasetID),
			zap.String("file", file),
			zap.Error(err))

		if lerr := s.local.write(file, data); lerr != nil {
			fail(span, lerr)
			return CommitResult{}, errors.Wrapf(lerr, "save dataset %s", datasetID)
		}
		span.SetAttributes(attribute.String("backend", string(BackendLocal)), attribute.Bool("degraded", true))
		return CommitResult{Backend: BackendLocal, Cause: err}, nil
	}

	if err := s.local.write(file, data); err != nil {
		fail(span, err)
		return CommitResult{}, errors.Wrapf(err, "save dataset %s", datasetID)
	}
	span.SetAttributes(attribute.String("backend", string(BackendLocal)))
	return CommitResult{Backend: BackendLocal}, nil
}

// Publish uploads the local copy of a dataset to the repository, creating
// the file when it does not exist yet.
func (s *Store) Publish(ctx context.Context, datasetID, message string) (CommitResult, error) {
	if s.remote == nil {
		return CommitResult{}, ErrRemoteDisabled
	}

	file := DatasetFile(datasetID)
	records, err := s.local.read(file)
	if err != nil {
		return CommitResult{}, errors.Wrapf(err, "read local dataset %s", datasetID)
	}
	data, err := encode(records)
	if err != nil {
		return CommitResult{}, err
	}

	sha, err := s.remote.sha(ctx, file)
	if err != nil {
		return CommitResult{}, errors.Wrapf(err, "look up remote dataset %s", datasetID)
	}

	resp, err := s.remote.write(ctx, file, data, sha, message)
	if errors.Is(err, github.ErrConflict) {
		return CommitResult{}, &ConflictError{DatasetID: datasetID, Err: err}
	}
	if err != nil {
		return CommitResult{}, errors.Wrapf(err, "publish dataset %s", datasetID)
	}
	return CommitResult{Backend: BackendRemote, Token: resp.Content.SHA, CommitSHA: resp.Commit.SHA}, nil
}

// encode renders records as indented JSON. A nil dataset is written as [].
func encode(records wine.Dataset) ([]byte, error) {
	if records == nil {
		records = wine.Dataset{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "marshal dataset")
	}
	return data, nil
}

func decode(data []byte) (wine.Dataset, error) {
	var records wine.Dataset
	if err := json.Unmarshal(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")), &records); err != nil {
		return nil, errors.Wrap(ErrMalformed, err.Error())
	}
	if records == nil {
		records = wine.Dataset{}
	}
	return records, nil
}

func fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
