package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ppiankov/truthpost/internal/model"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS claim_sequence (
		id    SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
		value BIGINT NOT NULL
	)`,
	`INSERT INTO claim_sequence (id, value) VALUES (1, 0) ON CONFLICT (id) DO NOTHING`,
	`CREATE TABLE IF NOT EXISTS claims (
		seq          BIGINT PRIMARY KEY,
		id           TEXT NOT NULL UNIQUE,
		text         TEXT NOT NULL,
		source_url   TEXT NOT NULL,
		submitter    TEXT NOT NULL,
		verdict      TEXT NOT NULL DEFAULT 'pending',
		explanation  TEXT NOT NULL DEFAULT '',
		resolved     BOOLEAN NOT NULL DEFAULT FALSE,
		digest       TEXT NOT NULL DEFAULT '',
		submitted_at TIMESTAMPTZ NOT NULL,
		resolved_at  TIMESTAMPTZ,
		CHECK (NOT resolved OR verdict <> 'pending')
	)`,
	`CREATE TABLE IF NOT EXISTS reputation (
		identity TEXT PRIMARY KEY,
		score    BIGINT NOT NULL DEFAULT 0 CHECK (score >= 0)
	)`,
}

const selectClaimColumns = `SELECT seq, id, text, source_url, submitter, verdict, explanation,
	resolved, digest, submitted_at, resolved_at FROM claims`

// PostgresStore implements Store on PostgreSQL through a pgx pool
type PostgresStore struct {
	db  *pgxpool.Pool
	now func() time.Time
}

// NewPostgresStore wraps an existing pool
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

// OpenPostgres connects, pings and migrates
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := NewPostgresStore(pool)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the schema if it does not exist
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate postgres: %w", err)
		}
	}
	return nil
}

// Submit allocates the next sequence value and inserts the claim in one transaction
func (s *PostgresStore) Submit(ctx context.Context, d Draft) (model.Claim, error) {
	var c model.Claim
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		var seq int64
		if err := tx.QueryRow(ctx,
			`UPDATE claim_sequence SET value = value + 1 WHERE id = 1 RETURNING value`,
		).Scan(&seq); err != nil {
			return fmt.Errorf("allocate claim id: %w", err)
		}

		c = model.NewPendingClaim(seq, d.Text, d.SourceURL, d.Submitter, s.now())
		_, err := tx.Exec(ctx,
			`INSERT INTO claims (seq, id, text, source_url, submitter, verdict, explanation, resolved, digest, submitted_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			c.Seq, c.ID, c.Text, c.SourceURL, c.Submitter, string(c.Verdict), c.Explanation, c.Resolved, c.Digest, c.SubmittedAt,
		)
		if err != nil {
			return fmt.Errorf("insert claim: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Claim{}, err
	}
	return c, nil
}

// Get returns a claim by id
func (s *PostgresStore) Get(ctx context.Context, id string) (model.Claim, error) {
	c, err := scanClaim(s.db.QueryRow(ctx, selectClaimColumns+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Claim{}, ErrNotFound
		}
		return model.Claim{}, err
	}
	return c, nil
}

// List returns claims in submission order
func (s *PostgresStore) List(ctx context.Context) ([]model.Claim, error) {
	rows, err := s.db.Query(ctx, selectClaimColumns+` ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Claim, error) {
		return scanClaim(row)
	})
}

// Reputation returns every ledger entry
func (s *PostgresStore) Reputation(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.Query(ctx, `SELECT identity, score FROM reputation`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var identity string
		var score int64
		if err := rows.Scan(&identity, &score); err != nil {
			return nil, err
		}
		out[identity] = score
	}
	return out, rows.Err()
}

// UserReputation returns one identity's score, 0 when absent
func (s *PostgresStore) UserReputation(ctx context.Context, identity string) (int64, error) {
	var score int64
	err := s.db.QueryRow(ctx, `SELECT score FROM reputation WHERE identity = $1`, identity).Scan(&score)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return score, nil
}

// Resolve locks the claim row, re-checks it is pending, then writes the
// verdict and upserts the reputation row in the same transaction.
func (s *PostgresStore) Resolve(ctx context.Context, id string, r model.Resolution) (model.Claim, error) {
	if !r.Verdict.IsTerminal() {
		return model.Claim{}, errInvalidResolution(r.Verdict)
	}

	var resolved model.Claim
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		c, err := scanClaim(tx.QueryRow(ctx, selectClaimColumns+` WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		if c.Resolved {
			return ErrAlreadyResolved
		}

		resolved = r.Apply(c)
		tag, err := tx.Exec(ctx,
			`UPDATE claims SET verdict = $2, explanation = $3, digest = $4, resolved = TRUE, resolved_at = $5
			 WHERE id = $1 AND resolved = FALSE`,
			id, string(resolved.Verdict), resolved.Explanation, resolved.Digest, *resolved.ResolvedAt,
		)
		if err != nil {
			return fmt.Errorf("update claim: %w", err)
		}
		if tag.RowsAffected() != 1 {
			return ErrAlreadyResolved
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO reputation (identity, score) VALUES ($1, 1)
			 ON CONFLICT (identity) DO UPDATE SET score = reputation.score + 1`,
			resolved.Submitter,
		); err != nil {
			return fmt.Errorf("increment reputation: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Claim{}, err
	}
	return resolved, nil
}

// Close releases the pool
func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClaim(row rowScanner) (model.Claim, error) {
	var c model.Claim
	var verdict string
	err := row.Scan(&c.Seq, &c.ID, &c.Text, &c.SourceURL, &c.Submitter, &verdict, &c.Explanation,
		&c.Resolved, &c.Digest, &c.SubmittedAt, &c.ResolvedAt)
	if err != nil {
		return model.Claim{}, err
	}
	c.Verdict = model.Verdict(verdict)
	return c, nil
}
