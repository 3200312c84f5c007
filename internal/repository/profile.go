package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/joseph-ayodele/installments-tracker/internal/common"
	"github.com/joseph-ayodele/installments-tracker/internal/entity"
)

// ErrProfileExists is returned by Create when the key is taken.
var ErrProfileExists = errors.New("parsing profile already exists")

// ProfileStore persists parsing profiles keyed by their unique key.
type ProfileStore interface {
	Migrate(ctx context.Context) error
	Create(ctx context.Context, p *entity.ParsingProfile) (*entity.ParsingProfile, error)
	Get(ctx context.Context, key string) (*entity.ParsingProfile, error)
	List(ctx context.Context) ([]entity.ParsingProfile, error)
	Update(ctx context.Context, p *entity.ParsingProfile) (*entity.ParsingProfile, error)
	Delete(ctx context.Context, key string) error
}

// PgxQuerier is the part of *pgxpool.Pool the store uses; pgxmock satisfies it.
type PgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const profileColumns = `id, key, description, keywords, seq_pattern, date_pattern, amount_pattern,
	tributo_pattern, anno_pattern, debito_pattern, interessi_pattern, created_at, updated_at`

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS parsing_profiles (
		id UUID PRIMARY KEY,
		key TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		keywords TEXT[] NOT NULL DEFAULT '{}',
		seq_pattern TEXT NOT NULL DEFAULT '',
		date_pattern TEXT NOT NULL DEFAULT '',
		amount_pattern TEXT NOT NULL DEFAULT '',
		tributo_pattern TEXT NOT NULL DEFAULT '',
		anno_pattern TEXT NOT NULL DEFAULT '',
		debito_pattern TEXT NOT NULL DEFAULT '',
		interessi_pattern TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`

type PostgresProfileStore struct {
	db     PgxQuerier
	logger *slog.Logger
}

func NewPostgresProfileStore(db PgxQuerier, logger *slog.Logger) *PostgresProfileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresProfileStore{db: db, logger: logger}
}

func (s *PostgresProfileStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, postgresSchema); err != nil {
		s.logger.Error("failed to migrate parsing_profiles", "error", err)
		return fmt.Errorf("%w: migrate: %w", common.ErrDatabase, err)
	}
	return nil
}

func (s *PostgresProfileStore) Create(ctx context.Context, p *entity.ParsingProfile) (*entity.ParsingProfile, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	query := `
		INSERT INTO parsing_profiles (
			id, key, description, keywords, seq_pattern, date_pattern, amount_pattern,
			tributo_pattern, anno_pattern, debito_pattern, interessi_pattern
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (key) DO NOTHING
		RETURNING ` + profileColumns

	out, err := scanProfile(s.db.QueryRow(ctx, query,
		p.ID, p.Key, p.Description, keywordsOrEmpty(p.Keywords),
		p.SeqPattern, p.DatePattern, p.AmountPattern,
		p.TributoPattern, p.AnnoPattern, p.DebitoPattern, p.InteressiPattern,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrProfileExists, p.Key)
	}
	if err != nil {
		s.logger.Error("failed to create parsing profile", "key", p.Key, "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	return out, nil
}

func (s *PostgresProfileStore) Get(ctx context.Context, key string) (*entity.ParsingProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM parsing_profiles WHERE key = $1`
	out, err := scanProfile(s.db.QueryRow(ctx, query, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: parsing profile %q", common.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	return out, nil
}

func (s *PostgresProfileStore) List(ctx context.Context) ([]entity.ParsingProfile, error) {
	rows, err := s.db.Query(ctx, `SELECT `+profileColumns+` FROM parsing_profiles ORDER BY key`)
	if err != nil {
		s.logger.Error("failed to list parsing profiles", "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []entity.ParsingProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	return out, nil
}

func (s *PostgresProfileStore) Update(ctx context.Context, p *entity.ParsingProfile) (*entity.ParsingProfile, error) {
	query := `
		UPDATE parsing_profiles SET
			description = $2, keywords = $3, seq_pattern = $4, date_pattern = $5,
			amount_pattern = $6, tributo_pattern = $7, anno_pattern = $8,
			debito_pattern = $9, interessi_pattern = $10, updated_at = now()
		WHERE key = $1
		RETURNING ` + profileColumns

	out, err := scanProfile(s.db.QueryRow(ctx, query,
		p.Key, p.Description, keywordsOrEmpty(p.Keywords),
		p.SeqPattern, p.DatePattern, p.AmountPattern,
		p.TributoPattern, p.AnnoPattern, p.DebitoPattern, p.InteressiPattern,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: parsing profile %q", common.ErrNotFound, p.Key)
	}
	if err != nil {
		s.logger.Error("failed to update parsing profile", "key", p.Key, "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	return out, nil
}

func (s *PostgresProfileStore) Delete(ctx context.Context, key string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM parsing_profiles WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: parsing profile %q", common.ErrNotFound, key)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*entity.ParsingProfile, error) {
	var (
		p                    entity.ParsingProfile
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(
		&p.ID, &p.Key, &p.Description, &p.Keywords,
		&p.SeqPattern, &p.DatePattern, &p.AmountPattern,
		&p.TributoPattern, &p.AnnoPattern, &p.DebitoPattern, &p.InteressiPattern,
		&createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	p.CreatedAt, p.UpdatedAt = createdAt.UTC(), updatedAt.UTC()
	return &p, nil
}

func keywordsOrEmpty(k []string) []string {
	if k == nil {
		return []string{}
	}
	return k
}
