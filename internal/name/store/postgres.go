package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lib/pq"

	"hvn/internal/name/models"
	"hvn/pkg/platform/sentinel"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const pgUniqueViolation = "23505"

// PostgresStore persists the registry and nonce ledger in PostgreSQL.
// Atomicity of each mutation rests on a single sql.Tx; the primary keys on
// names(label) and nonces(nonce) are the sole concurrency control.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres connects, applies embedded migrations, and returns the store.
func OpenPostgres(dsn string, maxOpenConns int) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if maxOpenConns <= 0 {
		maxOpenConns = 25
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxOpenConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return NewPostgres(db), nil
}

// NewPostgres wraps an existing connection without running migrations.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func runMigrations(db *sql.DB) error {
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func (s *PostgresStore) DB() *sql.DB { return s.db }

const nameColumns = `label, label_display, holder, registered_at, expires_at, grace_ends_at, profile_cid`

func (s *PostgresStore) Find(ctx context.Context, label string) (*models.NameRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+nameColumns+` FROM names WHERE label = $1`, label)
	rec, err := scanName(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find name: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) FindByHolder(ctx context.Context, holder string, now time.Time) (*models.NameRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+nameColumns+` FROM names
		 WHERE holder = $1 AND grace_ends_at >= $2
		 ORDER BY registered_at DESC
		 LIMIT 1`, holder, now)
	rec, err := scanName(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find name by holder: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) Register(ctx context.Context, rec models.NameRecord, nonce models.NonceRecord) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := consumeNonce(ctx, tx, nonce); err != nil {
			return err
		}

		// Clear a fully-expired prior holder in the same batch; a live row is
		// left in place so the PRIMARY KEY rejects the insert below. The
		// uniqueness violation, not a pre-check, is the authoritative
		// "taken" signal.
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM names WHERE label = $1 AND grace_ends_at < $2`,
			rec.Label, rec.RegisteredAt); err != nil {
			return fmt.Errorf("clear expired name: %w", err)
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO names (`+nameColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			rec.Label, rec.LabelDisplay, rec.Holder,
			rec.RegisteredAt, rec.ExpiresAt, rec.GraceEndsAt, rec.ProfileCID)
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		if err != nil {
			return fmt.Errorf("insert name: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) Renew(ctx context.Context, label, holder string, expiresAt, graceEndsAt, now time.Time, nonce models.NonceRecord) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := consumeNonce(ctx, tx, nonce); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE names SET expires_at = $1, grace_ends_at = $2
			 WHERE label = $3 AND holder = $4 AND grace_ends_at >= $5`,
			expiresAt, graceEndsAt, label, holder, now)
		if err != nil {
			return fmt.Errorf("renew name: %w", err)
		}
		return requireOneRow(res)
	})
}

func (s *PostgresStore) UpdateProfile(ctx context.Context, label, holder, profileCID string, now time.Time, nonce models.NonceRecord) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := consumeNonce(ctx, tx, nonce); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE names SET profile_cid = $1
			 WHERE label = $2 AND holder = $3 AND expires_at >= $4`,
			profileCID, label, holder, now)
		if err != nil {
			return fmt.Errorf("update profile: %w", err)
		}
		return requireOneRow(res)
	})
}

func (s *PostgresStore) PurgeExpiredNonces(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM nonces WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("purge nonces: %w", err)
	}
	return res.RowsAffected()
}

func (s *PostgresStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func consumeNonce(ctx context.Context, tx *sql.Tx, nonce models.NonceRecord) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO nonces (nonce, signer, used_at, expires_at) VALUES ($1, $2, $3, $4)`,
		nonce.Nonce, nonce.Signer, nonce.UsedAt, nonce.ExpiresAt)
	if isUniqueViolation(err) {
		return sentinel.ErrAlreadyUsed
	}
	if err != nil {
		return fmt.Errorf("consume nonce: %w", err)
	}
	return nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation
}

func scanName(row *sql.Row) (*models.NameRecord, error) {
	var rec models.NameRecord
	err := row.Scan(&rec.Label, &rec.LabelDisplay, &rec.Holder,
		&rec.RegisteredAt, &rec.ExpiresAt, &rec.GraceEndsAt, &rec.ProfileCID)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
