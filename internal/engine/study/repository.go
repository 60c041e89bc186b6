// Package study turns video transcripts into persisted study summaries.
package study

import (
	"context"
	"strings"

	"github.com/anatolykoptev/go_study/internal/engine"
)

// Repository persists SummaryRecords. (VideoID, OwnerID) is unique; a second
// Insert for the same pair fails with engine.ErrDuplicate.
type Repository interface {
	// FindByVideo returns the owner's record for videoID or engine.ErrNotFound.
	FindByVideo(ctx context.Context, videoID, ownerID string) (*engine.SummaryRecord, error)
	// Insert stores a new record.
	Insert(ctx context.Context, rec *engine.SummaryRecord) error
	// Get returns a record by ID or engine.ErrNotFound.
	Get(ctx context.Context, id string) (*engine.SummaryRecord, error)
	// List returns the owner's records newest first, without transcripts.
	List(ctx context.Context, ownerID string, f engine.SummaryFilter) ([]engine.SummaryRecord, error)
	// Delete removes a record by ID or returns engine.ErrNotFound.
	Delete(ctx context.Context, id string) error
}

// List limits.
const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

// normalizeFilter clamps the limit and lowercases topics for case-insensitive matching.
func normalizeFilter(f engine.SummaryFilter) engine.SummaryFilter {
	switch {
	case f.Limit <= 0:
		f.Limit = DefaultListLimit
	case f.Limit > MaxListLimit:
		f.Limit = MaxListLimit
	}
	topics := make([]string, 0, len(f.Topics))
	for _, t := range f.Topics {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			topics = append(topics, t)
		}
	}
	f.Topics = topics
	f.Search = strings.TrimSpace(f.Search)
	return f
}

// likePattern builds a case-insensitive substring pattern with \ as the escape character.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}
