package repository

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	errorvalues "github.com/limbo/habitadventure/internal/error_values"
	"github.com/limbo/habitadventure/pkg/entity"
)

// LocalRepository persists state documents as JSON files under a data
// directory, one file per owner. This is the not-signed-in backend.
type LocalRepository struct {
	dir string
}

func NewLocalRepo(dir string) *LocalRepository {
	if dir == "" {
		log.Fatal("provided empty data dir for localRepo")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Fatal("creating data dir for localRepo error: " + err.Error())
	}
	return &LocalRepository{dir: dir}
}

func (lr *LocalRepository) path(owner string) string {
	return filepath.Join(lr.dir, owner+".json")
}

func (lr *LocalRepository) Load(_ context.Context, owner string) (*entity.State, error) {
	raw, err := os.ReadFile(lr.path(owner))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errorvalues.ErrStateNotFound
		}
		return nil, errors.New("reading state file error: " + err.Error())
	}
	var st entity.State
	if err := sonic.Unmarshal(raw, &st); err != nil {
		return nil, errors.New("unmarshalling state file error: " + err.Error())
	}
	return &st, nil
}

// Save writes through a temp file and renames it over the target, so a crash
// mid-write never leaves a torn document behind.
func (lr *LocalRepository) Save(_ context.Context, owner string, st *entity.State) error {
	if st == nil {
		return errors.New("state is nil")
	}
	raw, err := sonic.Marshal(st)
	if err != nil {
		return errors.New("marshalling state file error: " + err.Error())
	}
	tmp, err := os.CreateTemp(lr.dir, owner+"-*.tmp")
	if err != nil {
		return errors.New("creating temp state file error: " + err.Error())
	}
	if _, err = tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.New("writing temp state file error: " + err.Error())
	}
	if err = tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.New("closing temp state file error: " + err.Error())
	}
	if err = os.Rename(tmp.Name(), lr.path(owner)); err != nil {
		os.Remove(tmp.Name())
		return errors.New("replacing state file error: " + err.Error())
	}
	return nil
}

func (lr *LocalRepository) Delete(_ context.Context, owner string) error {
	err := os.Remove(lr.path(owner))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.New("deleting state file error: " + err.Error())
	}
	return nil
}
