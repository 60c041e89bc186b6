package study

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_study/internal/engine"
)

const (
	videoURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
	videoID  = "dQw4w9WgXcQ"
)

var (
	transcript300 = strings.Repeat("Neural networks learn by adjusting weights. ", 7)

	summaryJSON = `Sure! Here is the summary:
{"summary":"Backpropagation explained step by step.","keyPoints":["Weights change","Loss goes down"],
 "topics":["ML","ml","Calculus"],"difficulty":"Advanced","estimatedStudyTime":25}
Hope that helps.`

	questionsJSON = `{"questions":[
 {"question":"What is backpropagation?","suggestedAnswer":"Gradient computation."},
 {"question":"","suggestedAnswer":"dropped"},
 {"question":"Why does loss go down?","suggestedAnswer":"Gradient descent."}]}`
)

type harness struct {
	transcripts *fakeTranscripts
	llm         *fakeLLM
	repo        *memRepo
	orch        *Orchestrator
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	h := &harness{
		transcripts: &fakeTranscripts{result: engine.TranscriptResult{Text: transcript300, StrategyUsed: engine.StrategyPageScrape}},
		llm:         &fakeLLM{summary: reply(summaryJSON), questions: reply(questionsJSON)},
		repo:        newMemRepo(),
	}
	h.orch = New(h.transcripts, h.llm, h.repo, opts)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h.orch.now = func() time.Time { return fixed }
	return h
}

func TestSummarizeCreatesRecord(t *testing.T) {
	h := newHarness(t, Options{})

	rec, cached, err := h.orch.Summarize(context.Background(), videoURL, "alice", false)
	require.NoError(t, err)
	assert.False(t, cached)

	assert.Equal(t, videoID, rec.VideoID)
	assert.Equal(t, videoURL, rec.SourceURL)
	assert.Equal(t, "alice", rec.OwnerID)
	assert.Equal(t, engine.VisibilityPrivate, rec.Visibility)
	assert.Equal(t, engine.StrategyPageScrape, rec.TranscriptStrategy)
	assert.Equal(t, transcript300, rec.Transcript)
	assert.NotEmpty(t, rec.ID)

	assert.Equal(t, "Backpropagation explained step by step.", rec.Summary)
	assert.Equal(t, []string{"Weights change", "Loss goes down"}, rec.KeyPoints)
	assert.Equal(t, []string{"ML", "Calculus"}, rec.Topics)
	assert.Equal(t, engine.DifficultyAdvanced, rec.Difficulty)
	assert.Equal(t, 25, rec.EstimatedStudyTimeMinutes)
	require.Len(t, rec.Questions, 2)
	assert.Equal(t, "What is backpropagation?", rec.Questions[0].Question)

	assert.Equal(t, 1, h.transcripts.calls)
	assert.Equal(t, 2, h.llm.calls())
	assert.Equal(t, 1, h.repo.inserts)
}

func TestSummarizeIsIdempotent(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()

	first, _, err := h.orch.Summarize(ctx, videoURL, "alice", false)
	require.NoError(t, err)

	second, cached, err := h.orch.Summarize(ctx, "https://youtu.be/"+videoID, "alice", false)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, first, second)

	assert.Equal(t, 1, h.transcripts.calls, "no transcript fetch on a cache hit")
	assert.Equal(t, 2, h.llm.calls(), "no inference on a cache hit")
	assert.Equal(t, 1, h.repo.inserts)
}

func TestSummarizeCreatedAtMicrosecondPrecision(t *testing.T) {
	h := newHarness(t, Options{})
	h.orch.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC) }

	rec, _, err := h.orch.Summarize(context.Background(), videoURL, "alice", false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 123456000, time.UTC), rec.CreatedAt)
}

func TestSummarizeIsPerOwner(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()

	_, _, err := h.orch.Summarize(ctx, videoURL, "alice", false)
	require.NoError(t, err)
	_, cached, err := h.orch.Summarize(ctx, videoURL, "bob", true)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, h.transcripts.calls)
}

func TestSummarizePublic(t *testing.T) {
	h := newHarness(t, Options{})
	rec, _, err := h.orch.Summarize(context.Background(), videoURL, "alice", true)
	require.NoError(t, err)
	assert.Equal(t, engine.VisibilityPublic, rec.Visibility)
}

func TestSummarizeInvalidURL(t *testing.T) {
	h := newHarness(t, Options{})
	_, _, err := h.orch.Summarize(context.Background(), "https://vimeo.com/42", "alice", false)
	assert.ErrorIs(t, err, engine.ErrInvalidURL)
	assert.False(t, engine.IsRetryable(err))
	assert.Equal(t, 0, h.transcripts.calls)
	assert.Equal(t, 0, h.llm.calls())
}

func TestSummarizeShortTranscriptSpendsNoInference(t *testing.T) {
	h := newHarness(t, Options{})
	h.transcripts.result.Text = strings.Repeat("x", 80)

	_, _, err := h.orch.Summarize(context.Background(), videoURL, "alice", false)
	assert.ErrorIs(t, err, engine.ErrTranscriptUnavailable)
	assert.Equal(t, 0, h.llm.calls())
	assert.Equal(t, 0, h.repo.inserts)
}

func TestSummarizeNoTranscript(t *testing.T) {
	h := newHarness(t, Options{})
	h.transcripts.err = &engine.NoTranscriptError{VideoID: videoID, Attempts: []string{"json3"}}

	_, _, err := h.orch.Summarize(context.Background(), videoURL, "alice", false)
	assert.ErrorIs(t, err, engine.ErrTranscriptUnavailable)
	assert.ErrorIs(t, err, engine.ErrNoTranscriptAvailable)
	assert.False(t, engine.IsRetryable(err))
	assert.Equal(t, 0, h.llm.calls())
}

func TestSummarizeTruncatesTranscript(t *testing.T) {
	h := newHarness(t, Options{})
	long := strings.Repeat("a", 9000)
	h.transcripts.result.Text = long

	rec, _, err := h.orch.Summarize(context.Background(), videoURL, "alice", false)
	require.NoError(t, err)
	assert.Equal(t, 8003, len(rec.Transcript))
	assert.True(t, strings.HasSuffix(rec.Transcript, "..."))
	assert.Equal(t, long[:8000], rec.Transcript[:8000])

	summaryPrompt := h.llm.prompts[0]
	assert.Contains(t, summaryPrompt, long[:8000]+"...")
	assert.NotContains(t, summaryPrompt, long[:8001])

	questionPrompt := h.llm.prompts[1]
	assert.Contains(t, questionPrompt, "Transcript: "+long[:2000]+"...")
	assert.Contains(t, questionPrompt, "Summary: Backpropagation explained step by step.")
}

func TestSummarizeSummaryFailureIsFatal(t *testing.T) {
	tests := []struct {
		name  string
		reply func(context.Context, string) (string, error)
		cause error
	}{
		{"malformed", reply("I cannot summarize this video."), engine.ErrMalformedResponse},
		{"empty summary", reply(`{"summary":"  ","keyPoints":["a"]}`), engine.ErrMalformedResponse},
		{"inference", replyErr(&engine.InferenceError{StatusCode: 503}), engine.ErrInferenceFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, Options{})
			h.llm.summary = tt.reply

			_, _, err := h.orch.Summarize(context.Background(), videoURL, "alice", false)
			assert.ErrorIs(t, err, engine.ErrSummaryGenerationFailed)
			assert.ErrorIs(t, err, tt.cause)
			assert.True(t, engine.IsRetryable(err))
			assert.Equal(t, 1, h.llm.calls(), "no question call after a failed summary")
			assert.Equal(t, 0, h.repo.inserts)
		})
	}
}

func TestSummarizeQuestionFailureDegrades(t *testing.T) {
	tests := []struct {
		name  string
		reply func(context.Context, string) (string, error)
	}{
		{"inference", replyErr(&engine.InferenceError{StatusCode: 429})},
		{"malformed", reply("Here are some questions: 1. What?")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, Options{})
			h.llm.questions = tt.reply

			rec, _, err := h.orch.Summarize(context.Background(), videoURL, "alice", false)
			require.NoError(t, err)
			assert.NotNil(t, rec.Questions)
			assert.Empty(t, rec.Questions)
			assert.Equal(t, "Backpropagation explained step by step.", rec.Summary)
			assert.Equal(t, 1, h.repo.inserts)
		})
	}
}

func TestSummarizeConcurrentDuplicate(t *testing.T) {
	h := newHarness(t, Options{})
	winner := &engine.SummaryRecord{ID: "winner", VideoID: videoID, OwnerID: "alice",
		StructuredSummary: engine.StructuredSummary{Summary: "first writer"}}
	h.repo.beforeInsert = func(m *memRepo) { m.put(winner) }

	rec, cached, err := h.orch.Summarize(context.Background(), videoURL, "alice", false)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, "winner", rec.ID)
	assert.Equal(t, "first writer", rec.Summary)
}

func TestSummarizePipelineTimeout(t *testing.T) {
	h := newHarness(t, Options{PipelineTimeout: 20 * time.Millisecond})
	h.llm.summary = func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", &engine.InferenceError{Detail: ctx.Err().Error(), Err: ctx.Err()}
	}

	_, _, err := h.orch.Summarize(context.Background(), videoURL, "alice", false)
	assert.ErrorIs(t, err, engine.ErrPipelineTimeout)
	assert.True(t, engine.IsRetryable(err))
	assert.Equal(t, 0, h.repo.inserts)
}

func TestSummaryDefaultsForPartialOutput(t *testing.T) {
	h := newHarness(t, Options{})
	h.llm.summary = reply(`{"summary":"Only a summary.","difficulty":"expert"}`)

	rec, _, err := h.orch.Summarize(context.Background(), videoURL, "alice", false)
	require.NoError(t, err)
	assert.Equal(t, engine.DifficultyIntermediate, rec.Difficulty)
	assert.Equal(t, 15, rec.EstimatedStudyTimeMinutes)
	assert.Equal(t, []string{}, rec.KeyPoints)
	assert.Equal(t, []string{}, rec.Topics)
}

func TestGetVisibility(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	private, _, err := h.orch.Summarize(ctx, videoURL, "alice", false)
	require.NoError(t, err)
	public, _, err := h.orch.Summarize(ctx, "https://youtu.be/aqz-KE-bpKQ", "alice", true)
	require.NoError(t, err)

	got, err := h.orch.Get(ctx, private.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, private.ID, got.ID)

	_, err = h.orch.Get(ctx, private.ID, "bob")
	assert.ErrorIs(t, err, engine.ErrForbidden)
	assert.False(t, engine.IsRetryable(err))

	got, err = h.orch.Get(ctx, public.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, public.ID, got.ID)

	_, err = h.orch.Get(ctx, "missing", "alice")
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestDeleteOwnerOnly(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	rec, _, err := h.orch.Summarize(ctx, videoURL, "alice", true)
	require.NoError(t, err)

	err = h.orch.Delete(ctx, rec.ID, "bob")
	assert.ErrorIs(t, err, engine.ErrForbidden)

	_, err = h.orch.Get(ctx, rec.ID, "alice")
	require.NoError(t, err, "forbidden delete must not remove the record")

	require.NoError(t, h.orch.Delete(ctx, rec.ID, "alice"))
	_, err = h.orch.Get(ctx, rec.ID, "alice")
	assert.ErrorIs(t, err, engine.ErrNotFound)

	// After deletion the next summarize recomputes.
	_, cached, err := h.orch.Summarize(ctx, videoURL, "alice", true)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, h.transcripts.calls)
}

func TestListExcludesTranscript(t *testing.T) {
	h := newHarness(t, Options{})
	ctx := context.Background()
	_, _, err := h.orch.Summarize(ctx, videoURL, "alice", false)
	require.NoError(t, err)

	list, err := h.orch.List(ctx, "alice", engine.SummaryFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Empty(t, list[0].Transcript)
}

func TestSummarizeTranscript(t *testing.T) {
	h := newHarness(t, Options{})

	summary, questions, err := h.orch.SummarizeTranscript(context.Background(), transcript300, "Intro to ML")
	require.NoError(t, err)
	assert.Equal(t, "Backpropagation explained step by step.", summary.Summary)
	assert.Len(t, questions, 2)
	assert.Contains(t, h.llm.prompts[0], "Video Title: Intro to ML")
	assert.Equal(t, 0, h.repo.inserts, "ad-hoc summaries are not persisted")

	_, _, err = h.orch.SummarizeTranscript(context.Background(), "too short", "")
	assert.ErrorIs(t, err, engine.ErrTranscriptUnavailable)
}

func TestTranscriptOnly(t *testing.T) {
	h := newHarness(t, Options{})

	id, tr, err := h.orch.Transcript(context.Background(), "https://youtu.be/"+videoID)
	require.NoError(t, err)
	assert.Equal(t, videoID, id)
	assert.Equal(t, engine.StrategyPageScrape, tr.StrategyUsed)
	assert.Equal(t, 0, h.llm.calls())

	_, _, err = h.orch.Transcript(context.Background(), "not a url")
	assert.True(t, errors.Is(err, engine.ErrInvalidURL))
}
