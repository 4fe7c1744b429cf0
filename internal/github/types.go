package github

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// File is a repository file as returned by the contents API.
type File struct {
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

// PutRequest is the body of a create-or-update contents call. SHA must be the
// blob sha of the file being replaced; leave it empty to create a file.
type PutRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch,omitempty"`
	SHA     string `json:"sha,omitempty"`
}

// PutResponse carries the new blob sha and the commit that wrote it.
type PutResponse struct {
	Content struct {
		Path string `json:"path"`
		SHA  string `json:"sha"`
	} `json:"content"`
	Commit struct {
		SHA     string `json:"sha"`
		Message string `json:"message"`
	} `json:"commit"`
}

// apiErrorBody is the error envelope GitHub returns on non-2xx responses.
type apiErrorBody struct {
	Message string `json:"message"`
}

// Decoded returns the raw file bytes. GitHub wraps base64 content at 60
// columns, so whitespace is stripped before decoding.
func (f *File) Decoded() ([]byte, error) {
	if f.Encoding != "" && f.Encoding != "base64" {
		return nil, errors.Errorf("github: unsupported content encoding %q", f.Encoding)
	}
	clean := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, f.Content)
	return base64.StdEncoding.DecodeString(clean)
}

// Encode base64-encodes file bytes for a PutRequest.
func Encode(content []byte) string {
	return base64.StdEncoding.EncodeToString(content)
}

// BlobSHA is the git blob hash GitHub reports as a file's sha.
func BlobSHA(content []byte) string {
	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", len(content))
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}
