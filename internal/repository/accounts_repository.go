package repository

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	errorvalues "github.com/limbo/habitadventure/internal/error_values"
	"github.com/limbo/habitadventure/pkg/cleanup"
	"github.com/limbo/habitadventure/pkg/entity"
)

type AccountsRepository struct {
	conn PgConnection
}

func NewAccountsRepo(cfg DBConfig) *AccountsRepository {
	pool, err := pgxpool.New(context.Background(), cfg.ConnString())
	if err != nil {
		log.Fatal("creating connection for accountsRepo error: " + err.Error())
	}
	err = pool.Ping(context.Background())
	if err != nil {
		log.Fatal("error while pinging connection for accountsRepo: " + err.Error())
	}
	cleanup.Register(&cleanup.Job{
		Name: "closing accounts pgxpool",
		F: func() error {
			pool.Close()
			return nil
		},
	})
	return &AccountsRepository{
		conn: pool,
	}
}

func NewAccountsRepoWithConn(conn PgConnection) *AccountsRepository {
	err := conn.Ping(context.Background())
	if err != nil {
		log.Fatal("error while pinging connection for accountsRepo: " + err.Error())
	}
	return &AccountsRepository{
		conn: conn,
	}
}

func (ar *AccountsRepository) Create(ctx context.Context, acc *entity.Account) error {
	if acc == nil {
		return errors.New("account is nil")
	}
	_, err := ar.conn.Exec(ctx, `INSERT INTO accounts (name, password_hash) VALUES ($1, $2);`, acc.Name, acc.PasswordHash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			// Unique violation
			case "23505":
				return errorvalues.ErrUserExists
			}
		}
		return errors.New("creating account db error: " + err.Error())
	}
	return nil
}

func (ar *AccountsRepository) FindByName(ctx context.Context, name string) (*entity.Account, error) {
	var acc entity.Account
	row := ar.conn.QueryRow(ctx, `SELECT id, name, password_hash FROM accounts WHERE name = $1;`, name)
	if err := row.Scan(&acc.ID, &acc.Name, &acc.PasswordHash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorvalues.ErrUserNotFound
		}
		return nil, errors.New("searching account by name error: " + err.Error())
	}
	return &acc, nil
}

func (ar *AccountsRepository) FindByID(ctx context.Context, uid uuid.UUID) (*entity.Account, error) {
	var acc entity.Account
	row := ar.conn.QueryRow(ctx, `SELECT id, name, password_hash FROM accounts WHERE id = $1;`, uid)
	if err := row.Scan(&acc.ID, &acc.Name, &acc.PasswordHash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorvalues.ErrUserNotFound
		}
		return nil, errors.New("searching account by id error: " + err.Error())
	}
	return &acc, nil
}

func (ar *AccountsRepository) Delete(ctx context.Context, uid uuid.UUID) error {
	tx, err := ar.conn.Begin(ctx)
	if err != nil {
		return errors.New("starting deletion tx error: " + err.Error())
	}
	defer tx.Rollback(ctx)
	if _, err = tx.Exec(ctx, `DELETE FROM states WHERE owner_id = $1;`, uid.String()); err != nil {
		return errors.New("deleting account state error: " + err.Error())
	}
	ct, err := tx.Exec(ctx, `DELETE FROM accounts WHERE id = $1;`, uid)
	if err != nil {
		return errors.New("deleting account error: " + err.Error())
	}
	if ct.RowsAffected() == 0 {
		return errorvalues.ErrUserNotFound
	}
	return tx.Commit(ctx)
}
