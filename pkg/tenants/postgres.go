// pkg/tenants/postgres.go
package tenants

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// pgStore implements Store backed by PostgreSQL so installations survive
// restarts.
type pgStore struct {
	dbPool *pgxpool.Pool
	log    *zap.SugaredLogger
}

func NewPostgresStore(dbPool *pgxpool.Pool, log *zap.SugaredLogger) Store {
	return &pgStore{dbPool: dbPool, log: log}
}

// EnsureSchema creates the installations table if it does not already exist.
// Safe to call repeatedly (idempotent).
func EnsureSchema(ctx context.Context, dbPool *pgxpool.Pool) error {
	_, err := dbPool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS installations (
  client_key text PRIMARY KEY,
  base_url text NOT NULL,
  shared_secret text NOT NULL,
  public_key text DEFAULT '',
  installed_at timestamptz NOT NULL DEFAULT NOW()
);
`)
	return err
}

func (s *pgStore) Get(ctx context.Context, clientKey string) (Installation, error) {
	row := s.dbPool.QueryRow(ctx, `SELECT client_key, base_url, shared_secret, COALESCE(public_key,''), installed_at FROM installations WHERE client_key=$1`, clientKey)
	var inst Installation
	if err := row.Scan(&inst.ClientKey, &inst.BaseURL, &inst.SharedSecret, &inst.PublicKey, &inst.InstalledAt); err != nil {
		return Installation{}, ErrNotInstalled
	}
	return inst, nil
}

func (s *pgStore) Put(ctx context.Context, inst Installation) error {
	_, err := s.dbPool.Exec(ctx, `INSERT INTO installations(client_key, base_url, shared_secret, public_key, installed_at)
	  VALUES ($1,$2,$3,$4,$5)
	  ON CONFLICT (client_key) DO UPDATE SET base_url=EXCLUDED.base_url, shared_secret=EXCLUDED.shared_secret, public_key=EXCLUDED.public_key, installed_at=EXCLUDED.installed_at`,
		inst.ClientKey, inst.BaseURL, inst.SharedSecret, inst.PublicKey, inst.InstalledAt)
	return err
}

func (s *pgStore) Delete(ctx context.Context, clientKey string) error {
	_, err := s.dbPool.Exec(ctx, `DELETE FROM installations WHERE client_key=$1`, clientKey)
	return err
}

func (s *pgStore) List(ctx context.Context) ([]Installation, error) {
	rows, err := s.dbPool.Query(ctx, `SELECT client_key, base_url, shared_secret, COALESCE(public_key,''), installed_at FROM installations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Installation
	for rows.Next() {
		var inst Installation
		if err := rows.Scan(&inst.ClientKey, &inst.BaseURL, &inst.SharedSecret, &inst.PublicKey, &inst.InstalledAt); err != nil {
			continue
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}
