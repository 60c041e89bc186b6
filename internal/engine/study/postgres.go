package study

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anatolykoptev/go_study/internal/engine"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// querier is satisfied by *pgxpool.Pool and by pgxmock pools.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore is the server-side Repository.
type PostgresStore struct {
	db    querier
	close func()
}

// NewPostgresStore wraps an existing connection. It does not run migrations.
func NewPostgresStore(db querier) *PostgresStore {
	return &PostgresStore{db: db, close: func() {}}
}

// ConnectPostgres creates a pgx pool, waits for the server, and runs schema migrations.
func ConnectPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	if _, err := engine.RetryDo(ctx, engine.DefaultRetryConfig, func() (struct{}, error) {
		return struct{}{}, pool.Ping(ctx)
	}); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresStore{db: pool, close: pool.Close}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("summary postgres connected", slog.String("addr", config.ConnConfig.Host))
	return s, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() { s.close() }

// Migrate applies the embedded schema files in name order. Files are idempotent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	entries, err := schemaFS.ReadDir("schema")
	if err != nil {
		return fmt.Errorf("read schema dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		data, err := schemaFS.ReadFile("schema/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		if _, err := s.db.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("execute %s: %w", entry.Name(), err)
		}
		slog.Info("migration applied", slog.String("file", entry.Name()))
	}
	return nil
}

const pgSelectColumns = `id, video_id, owner_id, source_url, transcript, summary, key_points, topics,
	difficulty, study_minutes, questions, visibility, strategy, created_at`

func (s *PostgresStore) FindByVideo(ctx context.Context, videoID, ownerID string) (*engine.SummaryRecord, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+pgSelectColumns+` FROM video_summaries WHERE video_id = $1 AND owner_id = $2`,
		videoID, ownerID)
	return scanPGRecord(row)
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*engine.SummaryRecord, error) {
	row := s.db.QueryRow(ctx, `SELECT `+pgSelectColumns+` FROM video_summaries WHERE id = $1`, id)
	return scanPGRecord(row)
}

func (s *PostgresStore) Insert(ctx context.Context, rec *engine.SummaryRecord) error {
	keyPoints, err := json.Marshal(nonNil(rec.KeyPoints))
	if err != nil {
		return err
	}
	questions, err := json.Marshal(nonNilQuestions(rec.Questions))
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO video_summaries (id, video_id, owner_id, source_url, transcript, summary, key_points, topics,
		 difficulty, study_minutes, questions, visibility, strategy, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		rec.ID, rec.VideoID, rec.OwnerID, rec.SourceURL, rec.Transcript, rec.Summary, keyPoints, nonNil(rec.Topics),
		string(rec.Difficulty), rec.EstimatedStudyTimeMinutes, questions, string(rec.Visibility),
		string(rec.TranscriptStrategy), rec.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: video %s for owner %s", engine.ErrDuplicate, rec.VideoID, rec.OwnerID)
	}
	return err
}

func (s *PostgresStore) List(ctx context.Context, ownerID string, f engine.SummaryFilter) ([]engine.SummaryRecord, error) {
	f = normalizeFilter(f)

	var sb strings.Builder
	sb.WriteString(`SELECT id, video_id, owner_id, source_url, '' AS transcript, summary, key_points, topics,
	difficulty, study_minutes, questions, visibility, strategy, created_at
	FROM video_summaries WHERE owner_id = $1`)
	args := []any{ownerID}

	if f.Difficulty != "" {
		args = append(args, string(f.Difficulty))
		fmt.Fprintf(&sb, ` AND difficulty = $%d`, len(args))
	}
	if len(f.Topics) > 0 {
		args = append(args, f.Topics)
		fmt.Fprintf(&sb, ` AND EXISTS (SELECT 1 FROM unnest(topics) AS t WHERE lower(t) = ANY($%d))`, len(args))
	}
	if f.Search != "" {
		args = append(args, likePattern(f.Search))
		fmt.Fprintf(&sb, ` AND lower(summary) LIKE $%d ESCAPE '\'`, len(args))
	}
	args = append(args, f.Limit)
	fmt.Fprintf(&sb, ` ORDER BY created_at DESC LIMIT $%d`, len(args))

	rows, err := s.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []engine.SummaryRecord{}
	for rows.Next() {
		rec, err := scanPGRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM video_summaries WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return engine.ErrNotFound
	}
	return nil
}

func scanPGRecord(row pgx.Row) (*engine.SummaryRecord, error) {
	var (
		rec                  engine.SummaryRecord
		keyPoints, questions []byte
		difficulty, vis, st  string
		createdAt            time.Time
	)
	err := row.Scan(&rec.ID, &rec.VideoID, &rec.OwnerID, &rec.SourceURL, &rec.Transcript, &rec.Summary,
		&keyPoints, &rec.Topics, &difficulty, &rec.EstimatedStudyTimeMinutes, &questions, &vis, &st, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, engine.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := decodeJSONColumns(&rec, keyPoints, questions); err != nil {
		return nil, err
	}
	rec.Difficulty = engine.Difficulty(difficulty)
	rec.Visibility = engine.Visibility(vis)
	rec.TranscriptStrategy = engine.StrategyName(st)
	rec.CreatedAt = createdAt.UTC()
	rec.Topics = nonNil(rec.Topics)
	return &rec, nil
}

// decodeJSONColumns fills the list fields stored as JSON.
func decodeJSONColumns(rec *engine.SummaryRecord, keyPoints, questions []byte) error {
	if len(keyPoints) > 0 {
		if err := json.Unmarshal(keyPoints, &rec.KeyPoints); err != nil {
			return fmt.Errorf("decode key_points: %w", err)
		}
	}
	if len(questions) > 0 {
		if err := json.Unmarshal(questions, &rec.Questions); err != nil {
			return fmt.Errorf("decode questions: %w", err)
		}
	}
	rec.KeyPoints = nonNil(rec.KeyPoints)
	rec.Questions = nonNilQuestions(rec.Questions)
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilQuestions(q []engine.ExpectedQuestion) []engine.ExpectedQuestion {
	if q == nil {
		return []engine.ExpectedQuestion{}
	}
	return q
}
