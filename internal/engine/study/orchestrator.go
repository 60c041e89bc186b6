package study

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/anatolykoptev/go_study/internal/engine"
	"github.com/anatolykoptev/go_study/internal/engine/sources"
)

// Transcripts fetches a transcript for a video identifier.
type Transcripts interface {
	Fetch(ctx context.Context, videoID string) (engine.TranscriptResult, error)
}

// Options bound the pipeline. Zero fields take the engine defaults.
type Options struct {
	MinTranscriptChars   int
	MaxTranscriptChars   int
	QuestionExcerptChars int
	MaxQuestions         int
	PipelineTimeout      time.Duration // 0 = no overall deadline
}

// OptionsFromConfig maps engine configuration onto pipeline options.
func OptionsFromConfig(cfg engine.Config) Options {
	return Options{
		MinTranscriptChars: cfg.SummaryMinTranscriptChars,
		MaxTranscriptChars: cfg.SummaryMaxTranscriptChars,
		MaxQuestions:       cfg.SummaryMaxQuestions,
		PipelineTimeout:    cfg.PipelineTimeout,
	}
}

func (o Options) withDefaults() Options {
	if o.MinTranscriptChars <= 0 {
		o.MinTranscriptChars = engine.DefaultSummaryMinTranscriptChars
	}
	if o.MaxTranscriptChars <= 0 {
		o.MaxTranscriptChars = engine.DefaultSummaryMaxTranscriptChars
	}
	if o.QuestionExcerptChars <= 0 {
		o.QuestionExcerptChars = 2000
	}
	if o.MaxQuestions <= 0 {
		o.MaxQuestions = engine.DefaultSummaryMaxQuestions
	}
	return o
}

// Orchestrator runs the summarize pipeline and the record operations around it.
type Orchestrator struct {
	transcripts Transcripts
	llm         engine.Completer
	repo        Repository
	opts        Options

	now   func() time.Time
	newID func() string
}

// New wires an orchestrator.
func New(transcripts Transcripts, llm engine.Completer, repo Repository, opts Options) *Orchestrator {
	return &Orchestrator{
		transcripts: transcripts,
		llm:         llm,
		repo:        repo,
		opts:        opts.withDefaults(),
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// Summarize returns the owner's summary for the video at rawURL, creating it on
// first request. cached reports whether an existing record was returned; in
// that case no transcript or inference call was made.
func (o *Orchestrator) Summarize(ctx context.Context, rawURL, ownerID string, isPublic bool) (rec *engine.SummaryRecord, cached bool, err error) {
	videoID, ok := sources.ExtractVideoID(rawURL)
	if !ok {
		return nil, false, fmt.Errorf("%w: %q", engine.ErrInvalidURL, rawURL)
	}

	if o.opts.PipelineTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.PipelineTimeout)
		defer cancel()
	}

	existing, err := o.repo.FindByVideo(ctx, videoID, ownerID)
	switch {
	case err == nil:
		engine.IncrSummaryCacheHits()
		slog.Debug("summary: cache hit", slog.String("video", videoID), slog.String("owner", ownerID))
		return existing, true, nil
	case !errors.Is(err, engine.ErrNotFound):
		return nil, false, o.fail(ctx, nil, fmt.Errorf("lookup summary: %w", err))
	}

	tr, err := o.transcripts.Fetch(ctx, videoID)
	if err != nil {
		return nil, false, o.fail(ctx, engine.ErrTranscriptUnavailable, err)
	}
	if n := engine.RuneLen(tr.Text); n < o.opts.MinTranscriptChars {
		return nil, false, fmt.Errorf("%w: %d chars for %s", engine.ErrTranscriptUnavailable, n, videoID)
	}
	transcript := o.truncate(tr.Text)

	summary, err := o.generateSummary(ctx, transcript, "")
	if err != nil {
		return nil, false, o.fail(ctx, engine.ErrSummaryGenerationFailed, err)
	}

	questions := o.questionsOrEmpty(ctx, videoID, transcript, summary.Summary)

	visibility := engine.VisibilityPrivate
	if isPublic {
		visibility = engine.VisibilityPublic
	}
	rec = &engine.SummaryRecord{
		ID:                 o.newID(),
		VideoID:            videoID,
		SourceURL:          rawURL,
		Transcript:         transcript,
		StructuredSummary:  summary,
		Questions:          questions,
		OwnerID:            ownerID,
		Visibility:         visibility,
		TranscriptStrategy: tr.StrategyUsed,
		CreatedAt:          o.now().UTC().Truncate(time.Microsecond),
	}

	if err := o.repo.Insert(ctx, rec); err != nil {
		if !errors.Is(err, engine.ErrDuplicate) {
			return nil, false, o.fail(ctx, nil, fmt.Errorf("save summary: %w", err))
		}
		// A concurrent request created it first; theirs wins.
		existing, lookupErr := o.repo.FindByVideo(ctx, videoID, ownerID)
		if lookupErr != nil {
			return nil, false, o.fail(ctx, nil, fmt.Errorf("lookup after duplicate: %w", lookupErr))
		}
		slog.Info("summary: concurrent duplicate resolved", slog.String("video", videoID), slog.String("owner", ownerID))
		return existing, true, nil
	}

	engine.IncrSummariesCreated()
	slog.Info("summary: created",
		slog.String("id", rec.ID), slog.String("video", videoID), slog.String("strategy", string(tr.StrategyUsed)),
		slog.Int("transcript_chars", engine.RuneLen(transcript)), slog.Int("questions", len(questions)))
	return rec, false, nil
}

// SummarizeTranscript summarizes caller-supplied text without persisting anything.
func (o *Orchestrator) SummarizeTranscript(ctx context.Context, transcript, title string) (engine.StructuredSummary, []engine.ExpectedQuestion, error) {
	transcript = strings.TrimSpace(transcript)
	if n := engine.RuneLen(transcript); n < o.opts.MinTranscriptChars {
		return engine.StructuredSummary{}, nil, fmt.Errorf("%w: %d chars", engine.ErrTranscriptUnavailable, n)
	}
	if o.opts.PipelineTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.PipelineTimeout)
		defer cancel()
	}
	transcript = o.truncate(transcript)

	summary, err := o.generateSummary(ctx, transcript, strings.TrimSpace(title))
	if err != nil {
		return engine.StructuredSummary{}, nil, o.fail(ctx, engine.ErrSummaryGenerationFailed, err)
	}
	return summary, o.questionsOrEmpty(ctx, "", transcript, summary.Summary), nil
}

// Transcript fetches only the transcript for rawURL.
func (o *Orchestrator) Transcript(ctx context.Context, rawURL string) (string, engine.TranscriptResult, error) {
	videoID, ok := sources.ExtractVideoID(rawURL)
	if !ok {
		return "", engine.TranscriptResult{}, fmt.Errorf("%w: %q", engine.ErrInvalidURL, rawURL)
	}
	tr, err := o.transcripts.Fetch(ctx, videoID)
	if err != nil {
		return videoID, engine.TranscriptResult{}, err
	}
	return videoID, tr, nil
}

// List returns the owner's summaries, newest first, without transcripts.
func (o *Orchestrator) List(ctx context.Context, ownerID string, f engine.SummaryFilter) ([]engine.SummaryRecord, error) {
	return o.repo.List(ctx, ownerID, f)
}

// Get returns a record visible to requesterID: their own, or a public one.
func (o *Orchestrator) Get(ctx context.Context, id, requesterID string) (*engine.SummaryRecord, error) {
	rec, err := o.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.OwnerID != requesterID && !rec.IsPublic() {
		return nil, fmt.Errorf("%w: summary %s", engine.ErrForbidden, id)
	}
	return rec, nil
}

// Delete removes a record owned by requesterID. Public records are still owner-only.
func (o *Orchestrator) Delete(ctx context.Context, id, requesterID string) error {
	rec, err := o.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if rec.OwnerID != requesterID {
		return fmt.Errorf("%w: summary %s", engine.ErrForbidden, id)
	}
	if err := o.repo.Delete(ctx, id); err != nil {
		return err
	}
	slog.Info("summary: deleted", slog.String("id", id), slog.String("video", rec.VideoID))
	return nil
}

// truncate cuts the transcript to the prompt budget, marking the cut with "...".
func (o *Orchestrator) truncate(s string) string {
	if engine.RuneLen(s) <= o.opts.MaxTranscriptChars {
		return s
	}
	return string([]rune(s)[:o.opts.MaxTranscriptChars]) + "..."
}

// questionsOrEmpty degrades any question failure to an empty list.
func (o *Orchestrator) questionsOrEmpty(ctx context.Context, videoID, transcript, summary string) []engine.ExpectedQuestion {
	qs, err := o.generateQuestions(ctx, transcript, summary)
	if err != nil {
		engine.IncrQuestionDegrades()
		slog.Warn("summary: question generation failed, continuing without questions",
			slog.String("video", videoID), slog.Any("error", err))
		return []engine.ExpectedQuestion{}
	}
	return qs
}

// fail tags err with kind, or with ErrPipelineTimeout when ctx ran out of time.
func (o *Orchestrator) fail(ctx context.Context, kind, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", engine.ErrPipelineTimeout, err)
	}
	if kind == nil {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}
