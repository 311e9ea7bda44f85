package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/limbo/habitadventure/pkg/entity"
)

type AccountsRepositoryI interface {
	// Creates new account in database
	Create(ctx context.Context, acc *entity.Account) error
	// Looks up account by name. Can be used for login
	FindByName(ctx context.Context, name string) (*entity.Account, error)
	// Looks up account by uid. Can be used for authorization middleware
	FindByID(ctx context.Context, uid uuid.UUID) (*entity.Account, error)
	// Deletes account together with its saved state
	Delete(ctx context.Context, uid uuid.UUID) error
}

type StateRepositoryI interface {
	// Loads the full state document for owner. ErrStateNotFound when the
	// owner never saved
	Load(ctx context.Context, owner string) (*entity.State, error)
	// Durably replaces the owner's state document
	Save(ctx context.Context, owner string, st *entity.State) error
	// Removes the owner's state document, if any
	Delete(ctx context.Context, owner string) error
}

type DBConfig interface {
	ConnString() string
}

type PgConnection interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PGCfg struct {
	Address  string
	Username string
	Password string
	DB       string
}

func (pgcfg *PGCfg) ConnString() string {
	return fmt.Sprintf("postgresql://%s:%s@%s/%s", pgcfg.Username, pgcfg.Password, pgcfg.Address, pgcfg.DB)
}
