package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps the cache record in a table for deployments that
// already run Postgres. Same best-effort contract as the file store.
type PostgresStore struct {
	pool *pgxpool.Pool
	Now  func() time.Time
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS mint_cache (
    name TEXT PRIMARY KEY,
    payload BYTEA NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);
`

const (
	snapshotKey = "snapshot"
	referralKey = "referral"
)

// NewPostgresStore connects using the DSN and ensures the table exists.
// Unlike the Store methods, construction does fail loudly: a misconfigured
// DSN should stop startup, not silently drop caching.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is empty")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func (p *PostgresStore) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

func (p *PostgresStore) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *PostgresStore) get(ctx context.Context, name string) []byte {
	row := p.pool.QueryRow(ctx, `SELECT payload FROM mint_cache WHERE name = $1`, name)
	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			log.Printf("cache pg read error: %v", err)
		}
		return nil
	}
	return payload
}

func (p *PostgresStore) put(ctx context.Context, name string, payload []byte) {
	_, err := p.pool.Exec(ctx, `
INSERT INTO mint_cache (name, payload, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (name) DO UPDATE
SET payload = EXCLUDED.payload,
    updated_at = EXCLUDED.updated_at
`, name, payload, p.now())
	if err != nil {
		log.Printf("cache pg write error: %v", err)
	}
}

func (p *PostgresStore) Merge(ctx context.Context, partial Snapshot) {
	snap := p.Load(ctx)
	snap.mergeFrom(partial)
	snap.UpdatedAt = p.now()
	blob, err := json.Marshal(snap)
	if err != nil {
		log.Printf("cache pg encode error: %v", err)
		return
	}
	p.put(ctx, snapshotKey, blob)
}

func (p *PostgresStore) Load(ctx context.Context) Snapshot {
	payload := p.get(ctx, snapshotKey)
	if payload == nil {
		return Snapshot{}
	}
	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		log.Printf("cache pg decode error: %v", err)
		return Snapshot{}
	}
	return snap
}

func (p *PostgresStore) SaveReferralCode(ctx context.Context, code string) {
	p.put(ctx, referralKey, []byte(code))
}

func (p *PostgresStore) ReferralCode(ctx context.Context) string {
	return string(p.get(ctx, referralKey))
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}
