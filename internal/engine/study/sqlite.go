package study

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/anatolykoptev/go_study/internal/engine"
)

// sqliteTimeLayout is fixed-width UTC so created_at sorts lexically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore is the single-node Repository used when no DATABASE_URL is set.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and ensures the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("sqlite: mkdir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	if err := initSQLiteSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func initSQLiteSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS video_summaries (
		id            TEXT PRIMARY KEY,
		video_id      TEXT NOT NULL,
		owner_id      TEXT NOT NULL,
		source_url    TEXT NOT NULL,
		transcript    TEXT NOT NULL DEFAULT '',
		summary       TEXT NOT NULL,
		key_points    TEXT NOT NULL DEFAULT '[]',
		topics        TEXT NOT NULL DEFAULT '[]',
		difficulty    TEXT NOT NULL DEFAULT 'intermediate',
		study_minutes INTEGER NOT NULL DEFAULT 15,
		questions     TEXT NOT NULL DEFAULT '[]',
		visibility    TEXT NOT NULL DEFAULT 'private',
		strategy      TEXT NOT NULL DEFAULT '',
		created_at    TEXT NOT NULL,
		UNIQUE (video_id, owner_id)
	);
	CREATE INDEX IF NOT EXISTS idx_video_summaries_owner_created
		ON video_summaries (owner_id, created_at DESC)`)
	return err
}

const sqliteSelectColumns = `id, video_id, owner_id, source_url, transcript, summary, key_points, topics,
	difficulty, study_minutes, questions, visibility, strategy, created_at`

func (s *SQLiteStore) FindByVideo(ctx context.Context, videoID, ownerID string) (*engine.SummaryRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteSelectColumns+` FROM video_summaries WHERE video_id = ? AND owner_id = ?`,
		videoID, ownerID)
	return scanSQLiteRecord(row)
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*engine.SummaryRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteSelectColumns+` FROM video_summaries WHERE id = ?`, id)
	return scanSQLiteRecord(row)
}

func (s *SQLiteStore) Insert(ctx context.Context, rec *engine.SummaryRecord) error {
	keyPoints, err := json.Marshal(nonNil(rec.KeyPoints))
	if err != nil {
		return err
	}
	topics, err := json.Marshal(nonNil(rec.Topics))
	if err != nil {
		return err
	}
	questions, err := json.Marshal(nonNilQuestions(rec.Questions))
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO video_summaries (id, video_id, owner_id, source_url, transcript, summary, key_points, topics,
		 difficulty, study_minutes, questions, visibility, strategy, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.VideoID, rec.OwnerID, rec.SourceURL, rec.Transcript, rec.Summary,
		string(keyPoints), string(topics), string(rec.Difficulty), rec.EstimatedStudyTimeMinutes,
		string(questions), string(rec.Visibility), string(rec.TranscriptStrategy),
		rec.CreatedAt.UTC().Format(sqliteTimeLayout),
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: video %s for owner %s", engine.ErrDuplicate, rec.VideoID, rec.OwnerID)
	}
	return err
}

func (s *SQLiteStore) List(ctx context.Context, ownerID string, f engine.SummaryFilter) ([]engine.SummaryRecord, error) {
	f = normalizeFilter(f)

	var sb strings.Builder
	sb.WriteString(`SELECT id, video_id, owner_id, source_url, '' AS transcript, summary, key_points, topics,
	difficulty, study_minutes, questions, visibility, strategy, created_at
	FROM video_summaries WHERE owner_id = ?`)
	args := []any{ownerID}

	if f.Difficulty != "" {
		sb.WriteString(` AND difficulty = ?`)
		args = append(args, string(f.Difficulty))
	}
	if len(f.Topics) > 0 {
		sb.WriteString(` AND EXISTS (SELECT 1 FROM json_each(video_summaries.topics) AS t WHERE lower(t.value) IN (?` +
			strings.Repeat(", ?", len(f.Topics)-1) + `))`)
		for _, t := range f.Topics {
			args = append(args, t)
		}
	}
	if f.Search != "" {
		sb.WriteString(` AND lower(summary) LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(f.Search))
	}
	sb.WriteString(` ORDER BY created_at DESC LIMIT ?`)
	args = append(args, f.Limit)

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []engine.SummaryRecord{}
	for rows.Next() {
		rec, err := scanSQLiteRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM video_summaries WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return engine.ErrNotFound
	}
	return nil
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRecord(row rowScanner) (*engine.SummaryRecord, error) {
	var (
		rec                          engine.SummaryRecord
		keyPoints, topics, questions string
		difficulty, vis, st, created string
	)
	err := row.Scan(&rec.ID, &rec.VideoID, &rec.OwnerID, &rec.SourceURL, &rec.Transcript, &rec.Summary,
		&keyPoints, &topics, &difficulty, &rec.EstimatedStudyTimeMinutes, &questions, &vis, &st, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, engine.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := decodeJSONColumns(&rec, []byte(keyPoints), []byte(questions)); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(topics), &rec.Topics); err != nil {
		return nil, fmt.Errorf("decode topics: %w", err)
	}
	rec.Topics = nonNil(rec.Topics)
	rec.Difficulty = engine.Difficulty(difficulty)
	rec.Visibility = engine.Visibility(vis)
	rec.TranscriptStrategy = engine.StrategyName(st)
	if rec.CreatedAt, err = time.Parse(sqliteTimeLayout, created); err != nil {
		return nil, fmt.Errorf("decode created_at: %w", err)
	}
	return &rec, nil
}
