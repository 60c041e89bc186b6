package studyserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anatolykoptev/go_study/internal/engine"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerSummariesList(server *mcp.Server, svc Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "video_summaries_list",
		Description: "List the owner's stored video summaries, newest first. Optional filters: difficulty (beginner, intermediate, advanced), topics (comma-separated, any match), search (text in the summary). Transcripts are omitted; use video_summary_get for the full record.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, summariesList(svc))
}

func summariesList(svc Service) func(context.Context, *mcp.CallToolRequest, engine.SummaryListInput) (*mcp.CallToolResult, engine.SummaryListOutput, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input engine.SummaryListInput) (*mcp.CallToolResult, engine.SummaryListOutput, error) {
		if strings.TrimSpace(input.OwnerID) == "" {
			return nil, engine.SummaryListOutput{}, errors.New("owner_id is required")
		}
		filter := engine.SummaryFilter{
			Topics: engine.SplitList(input.Topics),
			Search: input.Search,
			Limit:  input.Limit,
		}
		if d := strings.ToLower(strings.TrimSpace(input.Difficulty)); d != "" {
			parsed, ok := engine.ParseDifficulty(d)
			if !ok {
				return nil, engine.SummaryListOutput{}, fmt.Errorf("difficulty must be beginner, intermediate or advanced, got %q", input.Difficulty)
			}
			filter.Difficulty = parsed
		}

		recs, err := svc.List(ctx, input.OwnerID, filter)
		if err != nil {
			return nil, engine.SummaryListOutput{}, userError("video_summaries_list", err)
		}
		views := make([]engine.SummaryView, 0, len(recs))
		for i := range recs {
			v := engine.NewSummaryView(&recs[i])
			v.Transcript = ""
			views = append(views, v)
		}
		return nil, engine.SummaryListOutput{Count: len(views), Summaries: views}, nil
	}
}

func registerSummaryGet(server *mcp.Server, svc Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "video_summary_get",
		Description: "Get one stored video summary by ID, including the transcript and practice questions. Allowed for the owner, or for anyone if the summary is public.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, summaryGet(svc))
}

func summaryGet(svc Service) func(context.Context, *mcp.CallToolRequest, engine.SummaryByIDInput) (*mcp.CallToolResult, engine.SummaryView, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input engine.SummaryByIDInput) (*mcp.CallToolResult, engine.SummaryView, error) {
		if err := validateByID(input); err != nil {
			return nil, engine.SummaryView{}, err
		}
		rec, err := svc.Get(ctx, input.ID, input.RequesterID)
		if err != nil {
			return nil, engine.SummaryView{}, userError("video_summary_get", err)
		}
		return nil, engine.NewSummaryView(rec), nil
	}
}

func registerSummaryDelete(server *mcp.Server, svc Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "video_summary_delete",
		Description: "Delete a stored video summary by ID. Only the owner may delete, even for public summaries.",
		Annotations: &mcp.ToolAnnotations{DestructiveHint: boolPtr(true)},
	}, summaryDelete(svc))
}

func summaryDelete(svc Service) func(context.Context, *mcp.CallToolRequest, engine.SummaryByIDInput) (*mcp.CallToolResult, engine.SummaryDeleteOutput, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input engine.SummaryByIDInput) (*mcp.CallToolResult, engine.SummaryDeleteOutput, error) {
		if err := validateByID(input); err != nil {
			return nil, engine.SummaryDeleteOutput{}, err
		}
		if err := svc.Delete(ctx, input.ID, input.RequesterID); err != nil {
			return nil, engine.SummaryDeleteOutput{}, userError("video_summary_delete", err)
		}
		return nil, engine.SummaryDeleteOutput{ID: input.ID, Message: "Summary deleted"}, nil
	}
}

func validateByID(input engine.SummaryByIDInput) error {
	if strings.TrimSpace(input.ID) == "" {
		return errors.New("id is required")
	}
	if strings.TrimSpace(input.RequesterID) == "" {
		return errors.New("requester_id is required")
	}
	return nil
}

func boolPtr(b bool) *bool { return &b }
