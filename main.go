// go_study: YouTube study-summary MCP server.
//
// Exposes six MCP tools: video_summarize, video_summaries_list, video_summary_get,
// video_summary_delete, youtube_transcript, transcript_summarize.
// Runs as HTTP MCP server or stdio transport.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-kit/llm"
	"github.com/anatolykoptev/go-mcpserver"
	"github.com/anatolykoptev/go_study/internal/engine"
	"github.com/anatolykoptev/go_study/internal/engine/sources"
	"github.com/anatolykoptev/go_study/internal/engine/study"
	"github.com/anatolykoptev/go_study/internal/studyserver"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	version = "dev"
	mcpPort = env.Str("MCP_PORT", "8893")
)

func main() {
	cfg := loadConfig()

	if env.Str("YOUTUBE_TLS_FINGERPRINT", "false") == "true" {
		bc, err := engine.NewBrowserClient(cfg.TranscriptCallTimeout)
		if err != nil {
			slog.Warn("browser client init failed, watch page via plain HTTP", slog.Any("error", err))
		} else {
			cfg.BrowserClient = bc
			slog.Info("browser client initialized")
		}
	}

	slog.Info("starting go_study",
		slog.String("port", mcpPort),
		slog.String("llm_provider", cfg.LLMProvider),
		slog.String("llm_model", cfg.LLMModel),
	)

	repo, closeRepo := openRepository(cfg)
	defer closeRepo()

	cache := engine.NewTieredCache(cfg.RedisURL, cfg.CacheTTL, cfg.CacheMaxEntries, cfg.CacheCleanupInterval)
	defer cache.Close()

	orch := study.New(
		sources.NewYouTubeFetcher(cfg),
		newGateway(cfg),
		study.NewCachedRepository(repo, cache),
		study.OptionsFromConfig(cfg),
	)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_study",
		Version: version,
	}, nil)

	studyserver.RegisterTools(server, orch)
	slog.Info("tools registered", slog.Int("count", studyserver.ToolCount))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_study",
		Version:      version,
		Port:         mcpPort,
		WriteTimeout: 300 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}
}

func loadConfig() engine.Config {
	return engine.Config{
		LLMProvider:        strings.ToLower(env.Str("LLM_PROVIDER", "openai")),
		LLMAPIKey:          env.Str("LLM_API_KEY", ""),
		LLMAPIKeyFallbacks: env.List("LLM_API_KEY_FALLBACKS", ""),
		LLMAPIBase:         env.Str("LLM_API_BASE", "https://api.groq.com/openai/v1"),
		LLMModel:           env.Str("LLM_MODEL", "llama-3.3-70b-versatile"),
		LLMTemperature:     env.Float("LLM_TEMPERATURE", 0.2),
		LLMTopP:            env.Float("LLM_TOP_P", 1.0),
		LLMMaxTokens:       env.Int("LLM_MAX_TOKENS", 2000),
		LLMTimeout:         env.Duration("LLM_TIMEOUT", 60*time.Second),

		YouTubeBaseURL:        env.Str("YOUTUBE_BASE_URL", engine.DefaultYouTubeBaseURL),
		TranscriptCallTimeout: env.Duration("TRANSCRIPT_CALL_TIMEOUT", engine.DefaultTranscriptCallTimeout),
		TranscriptMinChars:    env.Int("TRANSCRIPT_MIN_CHARS", engine.DefaultTranscriptMinChars),
		TranscriptLocales:     env.List("TRANSCRIPT_LOCALES", strings.Join(engine.DefaultTranscriptLocales, ",")),
		YouTubeRPS:            env.Float("YOUTUBE_RPS", 2),
		YouTubeBurst:          env.Int("YOUTUBE_BURST", 4),
		InnertubeFallback:     env.Str("YOUTUBE_INNERTUBE_FALLBACK", "false") == "true",

		SummaryMinTranscriptChars: env.Int("SUMMARY_MIN_TRANSCRIPT_CHARS", engine.DefaultSummaryMinTranscriptChars),
		SummaryMaxTranscriptChars: env.Int("SUMMARY_MAX_TRANSCRIPT_CHARS", engine.DefaultSummaryMaxTranscriptChars),
		SummaryMaxQuestions:       env.Int("SUMMARY_MAX_QUESTIONS", engine.DefaultSummaryMaxQuestions),
		PipelineTimeout:           env.Duration("PIPELINE_TIMEOUT", 0),

		DatabaseURL: env.Str("DATABASE_URL", ""),
		SQLitePath:  expandHome(env.Str("SQLITE_PATH", "~/.go_study/summaries.db")),

		RedisURL:             env.Str("REDIS_URL", ""),
		CacheTTL:             env.Duration("CACHE_TTL", 15*time.Minute),
		CacheMaxEntries:      env.Int("CACHE_MAX_ENTRIES", 1000),
		CacheCleanupInterval: env.Duration("CACHE_CLEANUP_INTERVAL", 300*time.Second),

		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}
}

// newGateway picks the chat-completion client. "kit" rotates through fallback keys.
func newGateway(cfg engine.Config) engine.Completer {
	if cfg.LLMProvider != "kit" {
		return engine.NewOpenAIGateway(engine.Config{
			LLMAPIKey:      cfg.LLMAPIKey,
			LLMAPIBase:     cfg.LLMAPIBase,
			LLMModel:       cfg.LLMModel,
			LLMTemperature: cfg.LLMTemperature,
			LLMTopP:        cfg.LLMTopP,
			LLMMaxTokens:   cfg.LLMMaxTokens,
			LLMTimeout:     cfg.LLMTimeout,
		})
	}

	client := llm.NewClient(cfg.LLMAPIBase, cfg.LLMAPIKey, cfg.LLMModel,
		llm.WithFallbackKeys(cfg.LLMAPIKeyFallbacks),
		llm.WithMaxTokens(cfg.LLMMaxTokens),
		llm.WithTemperature(cfg.LLMTemperature),
		llm.WithHTTPClient(&http.Client{Timeout: cfg.LLMTimeout}),
	)
	slog.Info("llm: go-kit client with key rotation", slog.Int("fallback_keys", len(cfg.LLMAPIKeyFallbacks)))
	return engine.NewKitGateway(func(ctx context.Context, system, prompt string) (string, error) {
		return client.Complete(ctx, system, prompt,
			llm.WithChatTemperature(cfg.LLMTemperature),
			llm.WithChatMaxTokens(cfg.LLMMaxTokens),
		)
	})
}

// openRepository connects to Postgres when DATABASE_URL is set, else opens the local SQLite file.
func openRepository(cfg engine.Config) (study.Repository, func()) {
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		pg, err := study.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err == nil {
			return pg, pg.Close
		}
		slog.Warn("postgres init failed, falling back to sqlite", slog.Any("error", err))
	}

	lite, err := study.OpenSQLite(cfg.SQLitePath)
	if err != nil {
		slog.Error("sqlite init failed", slog.String("path", cfg.SQLitePath), slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("summary store: sqlite", slog.String("path", cfg.SQLitePath))
	return lite, func() { _ = lite.Close() }
}

func expandHome(path string) string {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	return path
}
