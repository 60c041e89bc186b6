package studyserver

import (
	"context"
	"errors"
	"log/slog"

	"github.com/anatolykoptev/go_study/internal/engine"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Service is the study pipeline as seen by the tools. *study.Orchestrator implements it.
type Service interface {
	Summarize(ctx context.Context, rawURL, ownerID string, isPublic bool) (*engine.SummaryRecord, bool, error)
	List(ctx context.Context, ownerID string, f engine.SummaryFilter) ([]engine.SummaryRecord, error)
	Get(ctx context.Context, id, requesterID string) (*engine.SummaryRecord, error)
	Delete(ctx context.Context, id, requesterID string) error
	Transcript(ctx context.Context, rawURL string) (string, engine.TranscriptResult, error)
	SummarizeTranscript(ctx context.Context, transcript, title string) (engine.StructuredSummary, []engine.ExpectedQuestion, error)
}

// RegisterTools registers the study tools on the given MCP server:
// video_summarize, video_summaries_list, video_summary_get, video_summary_delete,
// youtube_transcript, transcript_summarize.
func RegisterTools(server *mcp.Server, svc Service) {
	registerVideoSummarize(server, svc)
	registerSummariesList(server, svc)
	registerSummaryGet(server, svc)
	registerSummaryDelete(server, svc)
	registerYouTubeTranscript(server, svc)
	registerTranscriptSummarize(server, svc)
}

// ToolCount is the number of tools RegisterTools adds.
const ToolCount = 6

// userError maps a pipeline error to a message the caller can act on.
// The full error is logged; internal details never reach the client.
func userError(op string, err error) error {
	var msg string
	switch {
	case errors.Is(err, engine.ErrInvalidURL):
		msg = "invalid YouTube URL: expected a watch, youtu.be, embed or shorts link"
	case errors.Is(err, engine.ErrNoTranscriptAvailable):
		msg = "this video has no accessible English captions"
	case errors.Is(err, engine.ErrTranscriptUnavailable):
		msg = "transcript is too short to summarize"
	case errors.Is(err, engine.ErrPipelineTimeout):
		msg = "summarization timed out, please try again"
	case errors.Is(err, engine.ErrSummaryGenerationFailed),
		errors.Is(err, engine.ErrInferenceFailure),
		errors.Is(err, engine.ErrMalformedResponse):
		msg = "AI service unavailable or returned an unusable response, please try again"
	case errors.Is(err, engine.ErrForbidden):
		msg = "you do not have access to this summary"
	case errors.Is(err, engine.ErrNotFound):
		msg = "summary not found"
	case errors.Is(err, context.Canceled):
		msg = "request cancelled"
	default:
		msg = "internal error"
	}
	slog.Warn("tool failed", slog.String("tool", op), slog.Bool("retryable", engine.IsRetryable(err)), slog.Any("error", err))
	return errors.New(msg)
}
