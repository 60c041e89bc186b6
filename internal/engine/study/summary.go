package study

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/anatolykoptev/go_study/internal/engine"
)

// defaultStudyMinutes is used when the model omits or botches the estimate.
const defaultStudyMinutes = 15

// modelSummary is the summary payload as the model writes it.
type modelSummary struct {
	Summary            string      `json:"summary"`
	KeyPoints          []string    `json:"keyPoints"`
	Topics             []string    `json:"topics"`
	Difficulty         string      `json:"difficulty"`
	EstimatedStudyTime flexMinutes `json:"estimatedStudyTime"`
	EstimatedMinutes   flexMinutes `json:"estimatedStudyTimeMinutes"`
}

// modelQuestions is the question payload as the model writes it.
type modelQuestions struct {
	Questions []engine.ExpectedQuestion `json:"questions"`
}

// flexMinutes accepts 15, 15.5, "15" or "15 minutes".
type flexMinutes int

func (m *flexMinutes) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		end := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) })
		if end == 0 {
			return nil
		}
		if end > 0 {
			s = s[:end]
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil
		}
		*m = flexMinutes(n)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return nil // anything else falls back to the default
	}
	*m = flexMinutes(math.Round(f))
	return nil
}

// normalizeSummary validates the model payload and fills defaults.
// An empty summary text is a malformed response.
func normalizeSummary(ms modelSummary) (engine.StructuredSummary, error) {
	out := engine.StructuredSummary{
		Summary:   strings.TrimSpace(ms.Summary),
		KeyPoints: cleanList(ms.KeyPoints),
		Topics:    dedupeFold(cleanList(ms.Topics)),
	}
	if out.Summary == "" {
		return out, fmt.Errorf("%w: empty summary", engine.ErrMalformedResponse)
	}

	d, ok := engine.ParseDifficulty(strings.ToLower(strings.TrimSpace(ms.Difficulty)))
	if !ok {
		d = engine.DifficultyIntermediate
	}
	out.Difficulty = d

	minutes := int(ms.EstimatedStudyTime)
	if minutes <= 0 {
		minutes = int(ms.EstimatedMinutes)
	}
	if minutes <= 0 {
		minutes = defaultStudyMinutes
	}
	out.EstimatedStudyTimeMinutes = minutes
	return out, nil
}

// normalizeQuestions drops entries without a question and keeps at most max.
func normalizeQuestions(qs []engine.ExpectedQuestion, max int) []engine.ExpectedQuestion {
	out := make([]engine.ExpectedQuestion, 0, len(qs))
	for _, q := range qs {
		q.Question = strings.TrimSpace(q.Question)
		q.SuggestedAnswer = strings.TrimSpace(q.SuggestedAnswer)
		if q.Question == "" {
			continue
		}
		out = append(out, q)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// dedupeFold removes case-insensitive duplicates, keeping the first spelling.
func dedupeFold(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		k := strings.ToLower(s)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	return out
}

// generateSummary runs the load-bearing summary step.
func (o *Orchestrator) generateSummary(ctx context.Context, transcript, title string) (engine.StructuredSummary, error) {
	raw, err := o.llm.Complete(ctx, engine.SummaryPrompt(transcript, title))
	if err != nil {
		return engine.StructuredSummary{}, err
	}
	ms, err := engine.ExtractStructured[modelSummary](raw)
	if err != nil {
		return engine.StructuredSummary{}, err
	}
	return normalizeSummary(ms)
}

// generateQuestions runs the optional question step. Callers degrade on error.
func (o *Orchestrator) generateQuestions(ctx context.Context, transcript, summary string) ([]engine.ExpectedQuestion, error) {
	excerpt := engine.TruncateRunes(transcript, o.opts.QuestionExcerptChars, "") + "..."
	raw, err := o.llm.Complete(ctx, engine.QuestionsPrompt(o.opts.MaxQuestions, summary, excerpt))
	if err != nil {
		return nil, err
	}
	mq, err := engine.ExtractStructured[modelQuestions](raw)
	if err != nil {
		return nil, err
	}
	return normalizeQuestions(mq.Questions, o.opts.MaxQuestions), nil
}
