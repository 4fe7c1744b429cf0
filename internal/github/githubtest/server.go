// Package githubtest provides an in-memory stand-in for the GitHub contents
// API for use with httptest.
package githubtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gorilla/mux"

	"github.com/aryannaik/cellar/internal/github"
)

const (
	Owner = "octo"
	Repo  = "cellar-data"
	Token = "test-token"
)

// Server holds repository files in memory. Branches are ignored.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	files      map[string][]byte
	failReads  bool
	failWrites bool
	reads      int
	writes     int
}

func NewServer() *Server {
	s := &Server{files: make(map[string][]byte)}

	r := mux.NewRouter()
	r.HandleFunc("/repos/{owner}/{repo}/contents/{path:.+}", s.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/repos/{owner}/{repo}/contents/{path:.+}", s.handlePut).Methods(http.MethodPut)
	r.Use(s.authorize)

	s.Server = httptest.NewServer(r)
	return s
}

// Client returns a contents client pointed at the fake.
func (s *Server) Client() *github.Client {
	return github.NewClient(s.URL, Owner, Repo, Token, 0)
}

// SetFile overwrites a file as if another writer had committed it.
func (s *Server) SetFile(path string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = append([]byte(nil), content...)
}

// File returns the current content of a file.
func (s *Server) File(path string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.files[path]
	return b, ok
}

// FailReads makes every GET answer 502.
func (s *Server) FailReads(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failReads = fail
}

// FailWrites makes every PUT answer 502.
func (s *Server) FailWrites(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWrites = fail
}

// Counts reports how many reads and writes reached the handlers.
func (s *Server) Counts() (reads, writes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads, s.writes
}

func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		if r.Header.Get("Authorization") != "Bearer "+Token {
			writeError(w, http.StatusUnauthorized, "Bad credentials")
			return
		}
		if vars["owner"] != Owner || vars["repo"] != Repo {
			writeError(w, http.StatusNotFound, "Not Found")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	path := mux.Vars(r)["path"]

	s.mu.Lock()
	s.reads++
	fail := s.failReads
	content, ok := s.files[path]
	s.mu.Unlock()

	if fail {
		writeError(w, http.StatusBadGateway, "upstream unavailable")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}

	writeJSON(w, http.StatusOK, github.File{
		Path:     path,
		SHA:      github.BlobSHA(content),
		Encoding: "base64",
		Content:  wrap(github.Encode(content), 60),
	})
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	path := mux.Vars(r)["path"]

	var put github.PutRequest
	if err := json.NewDecoder(r.Body).Decode(&put); err != nil {
		writeError(w, http.StatusBadRequest, "Problems parsing JSON")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++

	if s.failWrites {
		writeError(w, http.StatusBadGateway, "upstream unavailable")
		return
	}

	current, exists := s.files[path]
	switch {
	case exists && put.SHA == "":
		writeError(w, http.StatusUnprocessableEntity, `Invalid request. "sha" wasn't supplied.`)
		return
	case exists && put.SHA != github.BlobSHA(current):
		writeError(w, http.StatusConflict, path+" does not match "+put.SHA)
		return
	}

	content, err := (&github.File{Content: put.Content}).Decoded()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "content is not valid Base64")
		return
	}

	s.files[path] = content

	var resp github.PutResponse
	resp.Content.Path = path
	resp.Content.SHA = github.BlobSHA(content)
	resp.Commit.SHA = github.BlobSHA([]byte(put.Message + resp.Content.SHA))
	resp.Commit.Message = put.Message

	status := http.StatusOK
	if !exists {
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}

func wrap(s string, width int) string {
	var b strings.Builder
	for len(s) > width {
		b.WriteString(s[:width])
		b.WriteByte('\n')
		s = s[width:]
	}
	b.WriteString(s)
	b.WriteByte('\n')
	return b.String()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
