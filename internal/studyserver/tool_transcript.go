package studyserver

import (
	"context"
	"errors"
	"strings"

	"github.com/anatolykoptev/go_study/internal/engine"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerYouTubeTranscript(server *mcp.Server, svc Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_transcript",
		Description: "Fetch the English transcript of a YouTube video without summarizing it. Returns the text and which caption strategy produced it.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, youtubeTranscript(svc))
}

func youtubeTranscript(svc Service) func(context.Context, *mcp.CallToolRequest, engine.TranscriptInput) (*mcp.CallToolResult, engine.TranscriptOutput, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input engine.TranscriptInput) (*mcp.CallToolResult, engine.TranscriptOutput, error) {
		if strings.TrimSpace(input.URL) == "" {
			return nil, engine.TranscriptOutput{}, errors.New("url is required")
		}
		videoID, tr, err := svc.Transcript(ctx, strings.TrimSpace(input.URL))
		if err != nil {
			return nil, engine.TranscriptOutput{}, userError("youtube_transcript", err)
		}

		out := engine.TranscriptOutput{
			VideoID:    videoID,
			Strategy:   string(tr.StrategyUsed),
			Length:     engine.RuneLen(tr.Text),
			Transcript: tr.Text,
		}
		if input.MaxChars > 0 && out.Length > input.MaxChars {
			out.Transcript = engine.TruncateAtWord(tr.Text, input.MaxChars)
			out.Truncated = true
		}
		return nil, out, nil
	}
}

func registerTranscriptSummarize(server *mcp.Server, svc Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "transcript_summarize",
		Description: "Summarize supplied transcript or lecture text (optionally with a title) into a study summary with key points, topics, difficulty, study time and practice questions. Nothing is stored.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, transcriptSummarize(svc))
}

func transcriptSummarize(svc Service) func(context.Context, *mcp.CallToolRequest, engine.TranscriptSummarizeInput) (*mcp.CallToolResult, engine.TranscriptSummarizeOutput, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input engine.TranscriptSummarizeInput) (*mcp.CallToolResult, engine.TranscriptSummarizeOutput, error) {
		if strings.TrimSpace(input.Transcript) == "" {
			return nil, engine.TranscriptSummarizeOutput{}, errors.New("transcript is required")
		}
		summary, questions, err := svc.SummarizeTranscript(ctx, input.Transcript, input.Title)
		if err != nil {
			return nil, engine.TranscriptSummarizeOutput{}, userError("transcript_summarize", err)
		}
		if questions == nil {
			questions = []engine.ExpectedQuestion{}
		}
		return nil, engine.TranscriptSummarizeOutput{
			Summary:                   summary.Summary,
			KeyPoints:                 summary.KeyPoints,
			Topics:                    summary.Topics,
			Difficulty:                string(summary.Difficulty),
			EstimatedStudyTimeMinutes: summary.EstimatedStudyTimeMinutes,
			Questions:                 questions,
		}, nil
	}
}
