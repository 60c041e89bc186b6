package studyserver

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anatolykoptev/go_study/internal/engine"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerVideoSummarize(server *mcp.Server, svc Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "video_summarize",
		Description: "Summarize a YouTube video for study. Fetches the English transcript (structured captions, watch page, legacy and multi-locale fallbacks), then generates a summary, key points, topics, difficulty, estimated study time and up to 5 practice questions. Results are stored per owner; repeated requests for the same video return the stored summary with cached=true.",
	}, videoSummarize(svc))
}

func videoSummarize(svc Service) func(context.Context, *mcp.CallToolRequest, engine.SummarizeInput) (*mcp.CallToolResult, engine.SummarizeOutput, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input engine.SummarizeInput) (*mcp.CallToolResult, engine.SummarizeOutput, error) {
		if strings.TrimSpace(input.URL) == "" {
			return nil, engine.SummarizeOutput{}, errors.New("url is required")
		}
		if strings.TrimSpace(input.OwnerID) == "" {
			return nil, engine.SummarizeOutput{}, errors.New("owner_id is required")
		}

		var (
			rec    *engine.SummaryRecord
			cached bool
		)
		err := engine.TrackOperation(ctx, "video_summarize", 30*time.Second, func(ctx context.Context) error {
			var err error
			rec, cached, err = svc.Summarize(ctx, strings.TrimSpace(input.URL), input.OwnerID, input.IsPublic)
			return err
		})
		if err != nil {
			return nil, engine.SummarizeOutput{}, userError("video_summarize", err)
		}

		msg := "Summary generated"
		if cached {
			msg = "Summary already exists"
		}
		return nil, engine.SummarizeOutput{
			Message: msg,
			Cached:  cached,
			Summary: engine.NewSummaryView(rec),
		}, nil
	}
}
