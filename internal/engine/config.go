package engine

import (
	"net/http"
	"time"
)

// Config holds all engine configuration, injected from main.
type Config struct {
	LLMProvider        string // "openai" (default) or "kit"
	LLMAPIKey          string
	LLMAPIKeyFallbacks []string
	LLMAPIBase         string
	LLMModel           string
	LLMTemperature     float64
	LLMTopP            float64
	LLMMaxTokens       int
	LLMTimeout         time.Duration

	YouTubeBaseURL        string
	TranscriptCallTimeout time.Duration
	TranscriptMinChars    int
	TranscriptLocales     []string
	YouTubeRPS            float64
	YouTubeBurst          int
	InnertubeFallback     bool
	BrowserClient         *BrowserClient // nil = watch page via HTTPClient

	SummaryMinTranscriptChars int
	SummaryMaxTranscriptChars int
	SummaryMaxQuestions       int
	PipelineTimeout           time.Duration // 0 = no overall deadline

	DatabaseURL string // postgres; empty selects SQLite
	SQLitePath  string

	RedisURL             string
	CacheTTL             time.Duration
	CacheMaxEntries      int
	CacheCleanupInterval time.Duration

	HTTPClient *http.Client
}

// Defaults used when a Config field is left at its zero value.
const (
	DefaultTranscriptMinChars        = 100
	DefaultSummaryMinTranscriptChars = 100
	DefaultSummaryMaxTranscriptChars = 8000
	DefaultSummaryMaxQuestions       = 5
	DefaultTranscriptCallTimeout     = 5 * time.Second
	DefaultYouTubeBaseURL            = "https://www.youtube.com"
)

// DefaultTranscriptLocales are the English variants tried by the multi-locale strategy.
var DefaultTranscriptLocales = []string{"en", "en-US", "en-GB", "a.en"}
