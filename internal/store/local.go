package store

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/aryannaik/cellar/internal/wine"
)

// localBackend keeps each dataset as a JSON file under dir. There is no
// version control: the last writer wins.
type localBackend struct {
	dir string
}

func (l *localBackend) path(file string) string {
	return filepath.Join(l.dir, file)
}

// read returns an empty dataset when the file does not exist.
func (l *localBackend) read(file string) (wine.Dataset, error) {
	p := l.path(file)
	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return wine.Dataset{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", p)
	}
	return decode(data)
}

// write replaces the file through a temp file and rename so readers never
// observe a half-written document.
func (l *localBackend) write(file string, data []byte) error {
	p := l.path(file)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return errors.Wrap(err, "create data dir")
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), filepath.Base(p)+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "create temp file for %s", p)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "write %s", tmp.Name())
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %s", tmp.Name())
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return errors.Wrapf(err, "chmod %s", tmp.Name())
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return errors.Wrapf(err, "replace %s", p)
	}
	return nil
}
