package study

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/anatolykoptev/go_study/internal/engine"
)

type fakeTranscripts struct {
	result engine.TranscriptResult
	err    error
	calls  int
}

func (f *fakeTranscripts) Fetch(context.Context, string) (engine.TranscriptResult, error) {
	f.calls++
	return f.result, f.err
}

// fakeLLM answers summary and question prompts separately.
type fakeLLM struct {
	mu        sync.Mutex
	summary   func(ctx context.Context, prompt string) (string, error)
	questions func(ctx context.Context, prompt string) (string, error)
	prompts   []string
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if strings.Contains(prompt, "important questions") {
		return f.questions(ctx, prompt)
	}
	return f.summary(ctx, prompt)
}

func (f *fakeLLM) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func reply(s string) func(context.Context, string) (string, error) {
	return func(context.Context, string) (string, error) { return s, nil }
}

func replyErr(err error) func(context.Context, string) (string, error) {
	return func(context.Context, string) (string, error) { return "", err }
}

// memRepo is an in-memory Repository with the same uniqueness rule as the stores.
type memRepo struct {
	mu      sync.Mutex
	byID    map[string]*engine.SummaryRecord
	inserts int
	// beforeInsert runs once before the next Insert, e.g. to simulate a concurrent writer.
	beforeInsert func(*memRepo)
}

func newMemRepo() *memRepo {
	return &memRepo{byID: map[string]*engine.SummaryRecord{}}
}

func (m *memRepo) put(rec *engine.SummaryRecord) {
	cp := *rec
	m.byID[rec.ID] = &cp
}

func (m *memRepo) FindByVideo(_ context.Context, videoID, ownerID string) (*engine.SummaryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.byID {
		if r.VideoID == videoID && r.OwnerID == ownerID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, engine.ErrNotFound
}

func (m *memRepo) Insert(_ context.Context, rec *engine.SummaryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hook := m.beforeInsert; hook != nil {
		m.beforeInsert = nil
		hook(m)
	}
	m.inserts++
	for _, r := range m.byID {
		if r.VideoID == rec.VideoID && r.OwnerID == rec.OwnerID {
			return engine.ErrDuplicate
		}
	}
	m.put(rec)
	return nil
}

func (m *memRepo) Get(_ context.Context, id string) (*engine.SummaryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byID[id]
	if !ok {
		return nil, engine.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memRepo) List(_ context.Context, ownerID string, _ engine.SummaryFilter) ([]engine.SummaryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []engine.SummaryRecord
	for _, r := range m.byID {
		if r.OwnerID == ownerID {
			cp := *r
			cp.Transcript = ""
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return engine.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}
