package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/installments-tracker/internal/common"
	"github.com/joseph-ayodele/installments-tracker/internal/entity"
)

const profilesTable = "parsing_profiles"

var sqliteColumns = []string{
	"id", "key", "description", "keywords", "seq_pattern", "date_pattern", "amount_pattern",
	"tributo_pattern", "anno_pattern", "debito_pattern", "interessi_pattern", "created_at", "updated_at",
}

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS parsing_profiles (
		id TEXT PRIMARY KEY,
		key TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		keywords TEXT NOT NULL DEFAULT '[]',
		seq_pattern TEXT NOT NULL DEFAULT '',
		date_pattern TEXT NOT NULL DEFAULT '',
		amount_pattern TEXT NOT NULL DEFAULT '',
		tributo_pattern TEXT NOT NULL DEFAULT '',
		anno_pattern TEXT NOT NULL DEFAULT '',
		debito_pattern TEXT NOT NULL DEFAULT '',
		interessi_pattern TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`

// SQLiteProfileStore keeps profiles in a local SQLite file. Keywords are a
// JSON array, timestamps RFC 3339 text.
type SQLiteProfileStore struct {
	drv    *entsql.Driver
	logger *slog.Logger
	now    func() time.Time
}

func NewSQLiteProfileStore(drv *entsql.Driver, logger *slog.Logger) *SQLiteProfileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteProfileStore{drv: drv, logger: logger, now: time.Now}
}

func (s *SQLiteProfileStore) builder() *entsql.DialectBuilder {
	return entsql.Dialect(dialect.SQLite)
}

func (s *SQLiteProfileStore) Migrate(ctx context.Context) error {
	var res sql.Result
	if err := s.drv.Exec(ctx, sqliteSchema, []any{}, &res); err != nil {
		s.logger.Error("failed to migrate parsing_profiles", "error", err)
		return fmt.Errorf("%w: migrate: %w", common.ErrDatabase, err)
	}
	return nil
}

func (s *SQLiteProfileStore) Create(ctx context.Context, p *entity.ParsingProfile) (*entity.ParsingProfile, error) {
	if _, err := s.Get(ctx, p.Key); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrProfileExists, p.Key)
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	out := *p
	if out.ID == uuid.Nil {
		out.ID = uuid.New()
	}
	now := s.now().UTC().Truncate(time.Second)
	out.CreatedAt, out.UpdatedAt = now, now
	kw, err := encodeKeywords(out.Keywords)
	if err != nil {
		return nil, err
	}

	query, args := s.builder().Insert(profilesTable).
		Columns(sqliteColumns...).
		Values(out.ID.String(), out.Key, out.Description, kw,
			out.SeqPattern, out.DatePattern, out.AmountPattern,
			out.TributoPattern, out.AnnoPattern, out.DebitoPattern, out.InteressiPattern,
			now.Format(time.RFC3339), now.Format(time.RFC3339)).
		Query()
	var res sql.Result
	if err := s.drv.Exec(ctx, query, args, &res); err != nil {
		s.logger.Error("failed to create parsing profile", "key", p.Key, "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	return &out, nil
}

func (s *SQLiteProfileStore) Get(ctx context.Context, key string) (*entity.ParsingProfile, error) {
	query, args := s.builder().Select(sqliteColumns...).
		From(entsql.Table(profilesTable)).
		Where(entsql.EQ("key", key)).
		Query()
	list, err := s.query(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: parsing profile %q", common.ErrNotFound, key)
	}
	return &list[0], nil
}

func (s *SQLiteProfileStore) List(ctx context.Context) ([]entity.ParsingProfile, error) {
	query, args := s.builder().Select(sqliteColumns...).
		From(entsql.Table(profilesTable)).
		OrderBy("key").
		Query()
	return s.query(ctx, query, args)
}

func (s *SQLiteProfileStore) Update(ctx context.Context, p *entity.ParsingProfile) (*entity.ParsingProfile, error) {
	kw, err := encodeKeywords(p.Keywords)
	if err != nil {
		return nil, err
	}
	query, args := s.builder().Update(profilesTable).
		Set("description", p.Description).
		Set("keywords", kw).
		Set("seq_pattern", p.SeqPattern).
		Set("date_pattern", p.DatePattern).
		Set("amount_pattern", p.AmountPattern).
		Set("tributo_pattern", p.TributoPattern).
		Set("anno_pattern", p.AnnoPattern).
		Set("debito_pattern", p.DebitoPattern).
		Set("interessi_pattern", p.InteressiPattern).
		Set("updated_at", s.now().UTC().Format(time.RFC3339)).
		Where(entsql.EQ("key", p.Key)).
		Query()
	var res sql.Result
	if err := s.drv.Exec(ctx, query, args, &res); err != nil {
		s.logger.Error("failed to update parsing profile", "key", p.Key, "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: parsing profile %q", common.ErrNotFound, p.Key)
	}
	return s.Get(ctx, p.Key)
}

func (s *SQLiteProfileStore) Delete(ctx context.Context, key string) error {
	query, args := s.builder().Delete(profilesTable).
		Where(entsql.EQ("key", key)).
		Query()
	var res sql.Result
	if err := s.drv.Exec(ctx, query, args, &res); err != nil {
		return fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: parsing profile %q", common.ErrNotFound, key)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteProfileStore) Close() error {
	return s.drv.Close()
}

func (s *SQLiteProfileStore) query(ctx context.Context, query string, args []any) ([]entity.ParsingProfile, error) {
	var rows entsql.Rows
	if err := s.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []entity.ParsingProfile
	for rows.Next() {
		var (
			p                    entity.ParsingProfile
			id, kw               string
			createdAt, updatedAt string
		)
		if err := rows.Scan(&id, &p.Key, &p.Description, &kw,
			&p.SeqPattern, &p.DatePattern, &p.AmountPattern,
			&p.TributoPattern, &p.AnnoPattern, &p.DebitoPattern, &p.InteressiPattern,
			&createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
		}
		var err error
		if p.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("%w: profile %q has invalid id: %w", common.ErrDatabase, p.Key, err)
		}
		if err := json.Unmarshal([]byte(kw), &p.Keywords); err != nil {
			return nil, fmt.Errorf("%w: profile %q has invalid keywords: %w", common.ErrDatabase, p.Key, err)
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	return out, nil
}

func encodeKeywords(k []string) (string, error) {
	b, err := json.Marshal(keywordsOrEmpty(k))
	if err != nil {
		return "", fmt.Errorf("encode keywords: %w", err)
	}
	return string(b), nil
}
