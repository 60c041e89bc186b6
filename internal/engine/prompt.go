package engine

// LLM prompt templates: data only, no logic.

// studySystemPrompt is sent as the system message of every chat completion.
const studySystemPrompt = `You are an intelligent study assistant that helps students learn from educational videos. Provide concise, structured, and educational responses.`

// summaryTitleLine is prepended to the transcript when a title is known.
// Args: title.
const summaryTitleLine = "Video Title: %s\n"

// summaryPrompt asks for the StructuredSummary JSON.
// Args: optional title line, transcript.
const summaryPrompt = `Analyze the following video transcript and produce a study summary.

%sTranscript:
%s

Respond with valid JSON only, in exactly this shape:
{
  "summary": "A comprehensive summary of the content in 3-5 paragraphs",
  "keyPoints": ["key point 1", "key point 2", "key point 3"],
  "topics": ["topic1", "topic2", "topic3"],
  "difficulty": "beginner|intermediate|advanced",
  "estimatedStudyTime": 15
}

Rules:
- keyPoints: 5-8 of the most important ideas, each a complete sentence
- topics: short subject tags
- difficulty: exactly one of beginner, intermediate, advanced
- estimatedStudyTime: whole minutes needed to study the material`

// questionsPrompt asks for expected exam questions.
// Args: question count, summary text, transcript excerpt.
const questionsPrompt = `Based on this video summary and transcript, generate %d important questions a student should be able to answer, each with a short suggested answer.

Summary: %s

Transcript: %s

Respond with valid JSON only, in exactly this shape:
{
  "questions": [
    {"question": "Question text?", "suggestedAnswer": "Brief answer"}
  ]
}`
