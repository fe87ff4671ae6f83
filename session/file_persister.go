package session

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	apierrors "github.com/jrsteele09/pool-admin/internal/errors"
	"github.com/pkg/errors"
)

const sessionFileName = "session.json"

// FilePersister keeps the session in a JSON file readable only by the owner,
// so separate CLI invocations share one login.
type FilePersister struct {
	path string
}

var _ Persister = (*FilePersister)(nil)

func NewFilePersister(dataFolder string) *FilePersister {
	return &FilePersister{path: filepath.Join(dataFolder, sessionFileName)}
}

func (p *FilePersister) Path() string {
	return p.path
}

func (p *FilePersister) Save(_ context.Context, sess Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "[FilePersister.Save] marshal session")
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return errors.Wrap(err, "[FilePersister.Save] create data folder")
	}

	tmp, err := os.CreateTemp(filepath.Dir(p.path), sessionFileName+".*")
	if err != nil {
		return errors.Wrap(err, "[FilePersister.Save] create temp file")
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return errors.Wrap(err, "[FilePersister.Save] chmod temp file")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "[FilePersister.Save] write temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "[FilePersister.Save] close temp file")
	}
	return errors.Wrap(os.Rename(tmp.Name(), p.path), "[FilePersister.Save] replace session file")
}

func (p *FilePersister) Load(_ context.Context) (Session, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Session{}, apierrors.ErrNotFound
		}
		return Session{}, errors.Wrap(err, "[FilePersister.Load] read session file")
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, errors.Wrap(err, "[FilePersister.Load] decode session file")
	}
	return sess, nil
}

func (p *FilePersister) Delete(_ context.Context) error {
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[FilePersister.Delete] remove session file")
	}
	return nil
}
