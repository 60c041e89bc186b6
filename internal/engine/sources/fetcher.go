package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/anatolykoptev/go_study/internal/engine"
)

// Strategy is one way of obtaining a transcript for a video.
type Strategy struct {
	Name  engine.StrategyName
	Fetch func(ctx context.Context, videoID string) (string, error)
}

// Fetcher tries strategies strictly one after another and returns the first
// transcript that meets the minimum length. It never runs strategies concurrently.
type Fetcher struct {
	strategies []Strategy
	minChars   int
}

// NewFetcher returns a fetcher over strategies in the given order.
func NewFetcher(minChars int, strategies ...Strategy) *Fetcher {
	if minChars <= 0 {
		minChars = engine.DefaultTranscriptMinChars
	}
	return &Fetcher{strategies: strategies, minChars: minChars}
}

// Fetch returns the first qualifying transcript. When every strategy fails or
// under-qualifies it returns a *engine.NoTranscriptError; a cancelled ctx
// stops the chain and returns ctx.Err().
func (f *Fetcher) Fetch(ctx context.Context, videoID string) (engine.TranscriptResult, error) {
	engine.IncrTranscriptRequests()

	attempts := make([]string, 0, len(f.strategies))
	var lastErr error
	for _, s := range f.strategies {
		if err := ctx.Err(); err != nil {
			return engine.TranscriptResult{}, err
		}
		attempts = append(attempts, string(s.Name))

		text, err := s.Fetch(ctx, videoID)
		if err == nil {
			if n := engine.RuneLen(text); n < f.minChars {
				err = fmt.Errorf("transcript too short (%d chars)", n)
			}
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return engine.TranscriptResult{}, ctxErr
			}
			slog.Debug("transcript: strategy failed",
				slog.String("video", videoID), slog.String("strategy", string(s.Name)), slog.Any("error", err))
			lastErr = fmt.Errorf("%s: %w", s.Name, err)
			continue
		}

		slog.Info("transcript: fetched",
			slog.String("video", videoID), slog.String("strategy", string(s.Name)), slog.Int("length", len(text)))
		engine.IncrStrategyWin(s.Name)
		return engine.TranscriptResult{Text: text, StrategyUsed: s.Name}, nil
	}

	engine.IncrTranscriptFailures()
	slog.Warn("transcript: all strategies failed",
		slog.String("video", videoID), slog.Int("attempts", len(attempts)), slog.Any("error", lastErr))
	return engine.TranscriptResult{}, &engine.NoTranscriptError{VideoID: videoID, Attempts: attempts, LastErr: lastErr}
}

// NewYouTubeFetcher wires the YouTube strategies into a Fetcher.
func NewYouTubeFetcher(cfg engine.Config) *Fetcher {
	yt := NewYouTube(cfg)
	return NewFetcher(yt.minChars, yt.Strategies()...)
}
