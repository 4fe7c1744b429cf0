package store

import (
	"context"
	"path"

	"github.com/pkg/errors"

	"github.com/aryannaik/cellar/internal/github"
	"github.com/aryannaik/cellar/internal/wine"
)

type contentsAPI interface {
	GetContents(ctx context.Context, path, ref string) (*github.File, error)
	PutContents(ctx context.Context, path string, put github.PutRequest) (*github.PutResponse, error)
}

// remoteBackend keeps each dataset as a file in a repository. Writes are
// conditional on the blob sha obtained by the preceding read.
type remoteBackend struct {
	api    contentsAPI
	branch string
	dir    string
}

func (r *remoteBackend) path(file string) string {
	return path.Join(r.dir, file)
}

// read returns the dataset and its blob sha. Transport and envelope failures
// come back unwrapped from ErrMalformed; only undecodable JSON is malformed.
func (r *remoteBackend) read(ctx context.Context, file string) (wine.Dataset, string, error) {
	f, err := r.api.GetContents(ctx, r.path(file), r.branch)
	if err != nil {
		return nil, "", err
	}
	data, err := f.Decoded()
	if err != nil {
		return nil, "", errors.Wrapf(err, "decode content of %s", r.path(file))
	}
	ds, err := decode(data)
	if err != nil {
		return nil, "", err
	}
	return ds, f.SHA, nil
}

// sha returns the current blob sha, or "" when the file does not exist yet.
func (r *remoteBackend) sha(ctx context.Context, file string) (string, error) {
	f, err := r.api.GetContents(ctx, r.path(file), r.branch)
	if errors.Is(err, github.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return f.SHA, nil
}

func (r *remoteBackend) write(ctx context.Context, file string, data []byte, sha, message string) (*github.PutResponse, error) {
	return r.api.PutContents(ctx, r.path(file), github.PutRequest{
		Message: message,
		Content: github.Encode(data),
		Branch:  r.branch,
		SHA:     sha,
	})
}
