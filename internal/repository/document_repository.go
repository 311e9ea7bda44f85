package repository

import (
	"context"
	"errors"
	"log"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	errorvalues "github.com/limbo/habitadventure/internal/error_values"
	"github.com/limbo/habitadventure/pkg/cleanup"
	"github.com/limbo/habitadventure/pkg/entity"
)

// DocumentRepository keeps one JSONB state document per owner. Saves are
// last-writer-wins; there is no version vector.
type DocumentRepository struct {
	conn PgConnection
}

func NewDocumentRepo(cfg DBConfig) *DocumentRepository {
	pool, err := pgxpool.New(context.Background(), cfg.ConnString())
	if err != nil {
		log.Fatal("creating connection for documentRepo error: " + err.Error())
	}
	err = pool.Ping(context.Background())
	if err != nil {
		log.Fatal("error while pinging connection for documentRepo: " + err.Error())
	}
	cleanup.Register(&cleanup.Job{
		Name: "closing states pgxpool",
		F: func() error {
			pool.Close()
			return nil
		},
	})
	return &DocumentRepository{
		conn: pool,
	}
}

func NewDocumentRepoWithConn(conn PgConnection) *DocumentRepository {
	err := conn.Ping(context.Background())
	if err != nil {
		log.Fatal("error while pinging connection for documentRepo: " + err.Error())
	}
	return &DocumentRepository{
		conn: conn,
	}
}

func (dr *DocumentRepository) Load(ctx context.Context, owner string) (*entity.State, error) {
	var doc []byte
	row := dr.conn.QueryRow(ctx, `SELECT doc FROM states WHERE owner_id = $1;`, owner)
	if err := row.Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorvalues.ErrStateNotFound
		}
		return nil, errors.New("loading state doc error: " + err.Error())
	}
	var st entity.State
	if err := sonic.Unmarshal(doc, &st); err != nil {
		return nil, errors.New("unmarshalling state doc error: " + err.Error())
	}
	return &st, nil
}

func (dr *DocumentRepository) Save(ctx context.Context, owner string, st *entity.State) error {
	if st == nil {
		return errors.New("state is nil")
	}
	doc, err := sonic.Marshal(st)
	if err != nil {
		return errors.New("marshalling state doc error: " + err.Error())
	}
	_, err = dr.conn.Exec(ctx, `INSERT INTO states (owner_id, doc, updated_at) VALUES ($1, $2, NOW()) ON CONFLICT (owner_id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = NOW();`, owner, doc)
	if err != nil {
		return errors.New("saving state doc error: " + err.Error())
	}
	return nil
}

func (dr *DocumentRepository) Delete(ctx context.Context, owner string) error {
	_, err := dr.conn.Exec(ctx, `DELETE FROM states WHERE owner_id = $1;`, owner)
	if err != nil {
		return errors.New("deleting state doc error: " + err.Error())
	}
	return nil
}
