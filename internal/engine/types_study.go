package engine

import "time"

// --- Transcript types ---

// StrategyName identifies which transcript strategy produced a result.
type StrategyName string

const (
	StrategyJSON3           StrategyName = "json3"
	StrategyPageScrape      StrategyName = "page_scrape"
	StrategyLegacyXML       StrategyName = "legacy_xml"
	StrategyMultiLocale     StrategyName = "multi_locale"
	StrategyInnertubePlayer StrategyName = "innertube_player"
	StrategyEngagementPanel StrategyName = "engagement_panel"
)

// TranscriptResult is a transcript that passed the fetcher's minimum length gate.
type TranscriptResult struct {
	Text         string       `json:"text"`
	StrategyUsed StrategyName `json:"strategyUsed"`
}

// --- Study artifacts ---

// Difficulty is the estimated level of the video content.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// ParseDifficulty normalizes s; ok is false for anything outside the three levels.
func ParseDifficulty(s string) (Difficulty, bool) {
	switch d := Difficulty(s); d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return d, true
	}
	return "", false
}

// Visibility controls who may read a SummaryRecord.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

// StructuredSummary is the validated summary produced from one transcript.
type StructuredSummary struct {
	Summary                   string     `json:"summary"`
	KeyPoints                 []string   `json:"keyPoints"`
	Topics                    []string   `json:"topics"`
	Difficulty                Difficulty `json:"difficulty"`
	EstimatedStudyTimeMinutes int        `json:"estimatedStudyTimeMinutes"`
}

// ExpectedQuestion is a study question with a short suggested answer.
type ExpectedQuestion struct {
	Question        string `json:"question"`
	SuggestedAnswer string `json:"suggestedAnswer"`
}

// SummaryRecord is the persisted result of one pipeline run for (VideoID, OwnerID).
type SummaryRecord struct {
	ID         string `json:"id"`
	VideoID    string `json:"videoId"`
	SourceURL  string `json:"sourceUrl"`
	Transcript string `json:"transcript,omitempty"`
	StructuredSummary
	Questions          []ExpectedQuestion `json:"expectedQuestions"`
	OwnerID            string             `json:"ownerId"`
	Visibility         Visibility         `json:"visibility"`
	TranscriptStrategy StrategyName       `json:"transcriptStrategy,omitempty"`
	CreatedAt          time.Time          `json:"createdAt"`
}

// IsPublic reports whether non-owners may read the record.
func (r *SummaryRecord) IsPublic() bool { return r.Visibility == VisibilityPublic }

// SummaryFilter narrows a list of an owner's records.
type SummaryFilter struct {
	Difficulty Difficulty
	Topics     []string // any-of
	Search     string   // case-insensitive substring of the summary
	Limit      int
}

// --- MCP tool input/output types ---

// SummaryView is the wire form of a SummaryRecord for tool output.
type SummaryView struct {
	ID                        string             `json:"id"`
	VideoID                   string             `json:"videoId"`
	SourceURL                 string             `json:"sourceUrl"`
	Summary                   string             `json:"summary"`
	KeyPoints                 []string           `json:"keyPoints"`
	Topics                    []string           `json:"topics"`
	Difficulty                string             `json:"difficulty"`
	EstimatedStudyTimeMinutes int                `json:"estimatedStudyTimeMinutes"`
	Questions                 []ExpectedQuestion `json:"expectedQuestions"`
	Transcript                string             `json:"transcript,omitempty"`
	IsPublic                  bool               `json:"isPublic"`
	TranscriptStrategy        string             `json:"transcriptStrategy,omitempty"`
	CreatedAt                 string             `json:"createdAt"`
}

// NewSummaryView converts rec; list slices are never nil.
func NewSummaryView(rec *SummaryRecord) SummaryView {
	v := SummaryView{
		ID:                        rec.ID,
		VideoID:                   rec.VideoID,
		SourceURL:                 rec.SourceURL,
		Summary:                   rec.Summary,
		KeyPoints:                 rec.KeyPoints,
		Topics:                    rec.Topics,
		Difficulty:                string(rec.Difficulty),
		EstimatedStudyTimeMinutes: rec.EstimatedStudyTimeMinutes,
		Questions:                 rec.Questions,
		Transcript:                rec.Transcript,
		IsPublic:                  rec.IsPublic(),
		TranscriptStrategy:        string(rec.TranscriptStrategy),
		CreatedAt:                 rec.CreatedAt.UTC().Format(time.RFC3339),
	}
	if v.KeyPoints == nil {
		v.KeyPoints = []string{}
	}
	if v.Topics == nil {
		v.Topics = []string{}
	}
	if v.Questions == nil {
		v.Questions = []ExpectedQuestion{}
	}
	return v
}

type SummarizeInput struct {
	URL      string `json:"url" jsonschema:"YouTube video URL (watch, youtu.be, embed or shorts form)"`
	OwnerID  string `json:"owner_id" jsonschema:"Identity of the requesting user"`
	IsPublic bool   `json:"is_public,omitempty" jsonschema:"Make the summary readable by other users (default: false)"`
}

type SummarizeOutput struct {
	Message string      `json:"message"`
	Cached  bool        `json:"cached"`
	Summary SummaryView `json:"videoSummary"`
}

type SummaryListInput struct {
	OwnerID    string `json:"owner_id" jsonschema:"Identity of the requesting user"`
	Difficulty string `json:"difficulty,omitempty" jsonschema:"Filter by difficulty: beginner, intermediate, advanced"`
	Topics     string `json:"topics,omitempty" jsonschema:"Comma-separated topics; matches summaries having any of them"`
	Search     string `json:"search,omitempty" jsonschema:"Case-insensitive text to look for in the summary"`
	Limit      int    `json:"limit,omitempty" jsonschema:"Max results (default: 50, max: 100)"`
}

type SummaryListOutput struct {
	Count     int           `json:"count"`
	Summaries []SummaryView `json:"summaries"`
}

type SummaryByIDInput struct {
	ID          string `json:"id" jsonschema:"Summary ID"`
	RequesterID string `json:"requester_id" jsonschema:"Identity of the requesting user"`
}

type SummaryDeleteOutput struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type TranscriptInput struct {
	URL      string `json:"url" jsonschema:"YouTube video URL"`
	MaxChars int    `json:"max_chars,omitempty" jsonschema:"Cut the transcript at a word boundary after this many characters (default: full text)"`
}

type TranscriptOutput struct {
	VideoID    string `json:"videoId"`
	Strategy   string `json:"strategy"`
	Length     int    `json:"length"`
	Truncated  bool   `json:"truncated,omitempty"`
	Transcript string `json:"transcript"`
}

type TranscriptSummarizeInput struct {
	Transcript string `json:"transcript" jsonschema:"Transcript or lecture text to summarize"`
	Title      string `json:"title,omitempty" jsonschema:"Optional video or lecture title"`
}

type TranscriptSummarizeOutput struct {
	Summary                   string             `json:"summary"`
	KeyPoints                 []string           `json:"keyPoints"`
	Topics                    []string           `json:"topics"`
	Difficulty                string             `json:"difficulty"`
	EstimatedStudyTimeMinutes int                `json:"estimatedStudyTimeMinutes"`
	Questions                 []ExpectedQuestion `json:"expectedQuestions"`
}
