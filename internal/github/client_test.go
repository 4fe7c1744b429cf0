package github_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryannaik/cellar/internal/github"
	"github.com/aryannaik/cellar/internal/github/githubtest"
)

func TestClient_GetContents(t *testing.T) {
	srv := githubtest.NewServer()
	defer srv.Close()

	content := []byte(`[{"id":"1","name":"a fairly long wine name to force base64 line wrapping in the fake"}]`)
	srv.SetFile("data/wines.json", content)

	f, err := srv.Client().GetContents(context.Background(), "data/wines.json", "main")
	require.NoError(t, err)

	got, err := f.Decoded()
	require.NoError(t, err)
	assert.Equal(t, content, got)
	assert.Equal(t, github.BlobSHA(content), f.SHA)
}

func TestClient_GetContentsErrors(t *testing.T) {
	srv := githubtest.NewServer()
	defer srv.Close()

	t.Run("missing file", func(t *testing.T) {
		_, err := srv.Client().GetContents(context.Background(), "nope.json", "")
		assert.ErrorIs(t, err, github.ErrNotFound)
	})

	t.Run("bad credentials", func(t *testing.T) {
		c := github.NewClient(srv.URL, githubtest.Owner, githubtest.Repo, "wrong", 0)
		_, err := c.GetContents(context.Background(), "nope.json", "")

		var apiErr *github.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, 401, apiErr.Status)
		assert.Equal(t, "Bad credentials", apiErr.Message)
	})
}

func TestClient_PutContents(t *testing.T) {
	srv := githubtest.NewServer()
	defer srv.Close()
	ctx := context.Background()
	c := srv.Client()

	created, err := c.PutContents(ctx, "data/wines.json", github.PutRequest{
		Message: "create",
		Content: github.Encode([]byte("[]")),
		Branch:  "main",
	})
	require.NoError(t, err)
	assert.Equal(t, github.BlobSHA([]byte("[]")), created.Content.SHA)

	t.Run("update without sha is a conflict", func(t *testing.T) {
		_, err := c.PutContents(ctx, "data/wines.json", github.PutRequest{Message: "m", Content: github.Encode([]byte("[1]"))})
		assert.ErrorIs(t, err, github.ErrConflict)
	})

	t.Run("update with stale sha is a conflict", func(t *testing.T) {
		_, err := c.PutContents(ctx, "data/wines.json", github.PutRequest{Message: "m", Content: github.Encode([]byte("[1]")), SHA: "deadbeef"})
		assert.ErrorIs(t, err, github.ErrConflict)
	})

	t.Run("update with current sha succeeds", func(t *testing.T) {
		updated, err := c.PutContents(ctx, "data/wines.json", github.PutRequest{Message: "m", Content: github.Encode([]byte("[1]")), SHA: created.Content.SHA})
		require.NoError(t, err)
		assert.NotEqual(t, created.Content.SHA, updated.Content.SHA)

		b, _ := srv.File("data/wines.json")
		assert.Equal(t, "[1]", string(b))
	})
}

func TestFileDecoded(t *testing.T) {
	f := &github.File{Encoding: "base64", Content: "W1\n0=\n"}
	b, err := f.Decoded()
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b))

	_, err = (&github.File{Encoding: "utf-8", Content: "[]"}).Decoded()
	assert.Error(t, err)
}
