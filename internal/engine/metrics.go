package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// metrics tracks operational counters across the engine.
var metrics struct {
	TranscriptRequests atomic.Int64
	TranscriptFailures atomic.Int64
	LLMCalls           atomic.Int64
	LLMErrors          atomic.Int64
	SummariesCreated   atomic.Int64
	SummaryCacheHits   atomic.Int64
	QuestionDegrades   atomic.Int64
	CacheHits          atomic.Int64
	CacheMisses        atomic.Int64
}

// strategyWins counts winning transcript strategies by name.
var strategyWins sync.Map // StrategyName → *atomic.Int64

// Incrementors for the sources/ and study/ sub-packages.
func IncrTranscriptRequests() { metrics.TranscriptRequests.Add(1) }
func IncrTranscriptFailures() { metrics.TranscriptFailures.Add(1) }
func IncrSummariesCreated()   { metrics.SummariesCreated.Add(1) }
func IncrSummaryCacheHits()   { metrics.SummaryCacheHits.Add(1) }
func IncrQuestionDegrades()   { metrics.QuestionDegrades.Add(1) }

// IncrStrategyWin records that strategy produced the accepted transcript.
func IncrStrategyWin(strategy StrategyName) {
	v, _ := strategyWins.LoadOrStore(strategy, new(atomic.Int64))
	v.(*atomic.Int64).Add(1)
}

// GetMetrics returns a snapshot of all metrics.
func GetMetrics() map[string]int64 {
	m := map[string]int64{
		"transcript_requests": metrics.TranscriptRequests.Load(),
		"transcript_failures": metrics.TranscriptFailures.Load(),
		"llm_calls":           metrics.LLMCalls.Load(),
		"llm_errors":          metrics.LLMErrors.Load(),
		"summaries_created":   metrics.SummariesCreated.Load(),
		"summary_cache_hits":  metrics.SummaryCacheHits.Load(),
		"question_degrades":   metrics.QuestionDegrades.Load(),
		"cache_hits":          metrics.CacheHits.Load(),
		"cache_misses":        metrics.CacheMisses.Load(),
	}
	strategyWins.Range(func(k, v any) bool {
		m["strategy_wins_"+string(k.(StrategyName))] = v.(*atomic.Int64).Load()
		return true
	})
	return m
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	keys := []string{
		"transcript_requests", "transcript_failures",
		"llm_calls", "llm_errors",
		"summaries_created", "summary_cache_hits", "question_degrades",
		"cache_hits", "cache_misses",
	}
	for _, s := range []StrategyName{
		StrategyJSON3, StrategyPageScrape, StrategyLegacyXML, StrategyMultiLocale,
		StrategyInnertubePlayer, StrategyEngagementPanel,
	} {
		keys = append(keys, "strategy_wins_"+string(s))
	}
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, threshold time.Duration, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > threshold {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
