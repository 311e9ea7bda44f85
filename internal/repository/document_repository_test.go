package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"
	errorvalues "github.com/limbo/habitadventure/internal/error_values"
	"github.com/limbo/habitadventure/internal/repository"
	"github.com/limbo/habitadventure/pkg/entity"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
)

func TestLoadState(t *testing.T) {
	conn, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	repo := repository.NewDocumentRepoWithConn(conn)
	owner := "test_owner"
	query := regexp.QuoteMeta(`SELECT doc FROM states WHERE owner_id = $1;`)
	st := entity.DefaultState()
	st.DarkMode = true
	doc, err := sonic.Marshal(st)
	if err != nil {
		t.Fatal(err)
	}
	t.Run("found", func(t *testing.T) {
		conn.ExpectQuery(query).
			WithArgs(owner).
			WillReturnRows(pgxmock.NewRows([]string{"doc"}).AddRow(doc))
		result, err := repo.Load(ctx, owner)
		assert.NoError(t, err)
		assert.True(t, result.DarkMode)
		assert.Equal(t, st.User.Name, result.User.Name)
	})
	t.Run("not found", func(t *testing.T) {
		conn.ExpectQuery(query).
			WithArgs(owner).
			WillReturnError(pgx.ErrNoRows)
		_, err := repo.Load(ctx, owner)
		assert.ErrorIs(t, err, errorvalues.ErrStateNotFound)
	})
	t.Run("db error", func(t *testing.T) {
		conn.ExpectQuery(query).
			WithArgs(owner).
			WillReturnError(errors.New("db error"))
		_, err := repo.Load(ctx, owner)
		assert.Error(t, err)
	})
	t.Run("corrupted doc", func(t *testing.T) {
		conn.ExpectQuery(query).
			WithArgs(owner).
			WillReturnRows(pgxmock.NewRows([]string{"doc"}).AddRow([]byte("not json")))
		_, err := repo.Load(ctx, owner)
		assert.Error(t, err)
	})
}

func TestSaveState(t *testing.T) {
	conn, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	repo := repository.NewDocumentRepoWithConn(conn)
	owner := "test_owner"
	query := regexp.QuoteMeta(`INSERT INTO states (owner_id, doc, updated_at) VALUES ($1, $2, NOW()) ON CONFLICT (owner_id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = NOW();`)
	st := entity.DefaultState()
	doc, err := sonic.Marshal(st)
	if err != nil {
		t.Fatal(err)
	}
	t.Run("upserted", func(t *testing.T) {
		conn.ExpectExec(query).
			WithArgs(owner, doc).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		err := repo.Save(ctx, owner, st)
		assert.NoError(t, err)
	})
	t.Run("db error", func(t *testing.T) {
		conn.ExpectExec(query).
			WithArgs(owner, doc).
			WillReturnError(errors.New("db error"))
		err := repo.Save(ctx, owner, st)
		assert.Error(t, err)
	})
	t.Run("nil state rejected", func(t *testing.T) {
		err := repo.Save(ctx, owner, nil)
		assert.Error(t, err)
	})
}

func TestDeleteState(t *testing.T) {
	conn, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	repo := repository.NewDocumentRepoWithConn(conn)
	owner := "test_owner"
	query := regexp.QuoteMeta(`DELETE FROM states WHERE owner_id = $1;`)
	t.Run("deleted", func(t *testing.T) {
		conn.ExpectExec(query).
			WithArgs(owner).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))
		err := repo.Delete(ctx, owner)
		assert.NoError(t, err)
	})
	t.Run("db error", func(t *testing.T) {
		conn.ExpectExec(query).
			WithArgs(owner).
			WillReturnError(errors.New("db error"))
		err := repo.Delete(ctx, owner)
		assert.Error(t, err)
	})
}
