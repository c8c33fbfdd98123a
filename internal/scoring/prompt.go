package scoring

import (
	"fmt"
	"strings"

	"github.com/abhisek/cclprep/internal/llm"
)

// MaxDimensionScore is the top mark for each rubric dimension.
const MaxDimensionScore = 10

const examinerPrompt = `You are a NAATI CCL examiner marking one segment of a two-way dialogue interpretation.

The candidate heard the reference segment and interpreted it into the other language. Mark their rendition on six dimensions, each from 0 to 10:
- accuracy: meaning transferred without omissions, additions, or distortions.
- language_quality: grammar, vocabulary, and register in the target language.
- fluency_pronunciation: smooth delivery with intelligible pronunciation.
- delivery_coherence: the rendition holds together and is easy to follow.
- cultural_context: culturally appropriate phrasing and terms.
- response_management: self-corrections and hesitations handled well.

Rules:
- Mark what was said, not what should have been said.
- An empty or unintelligible rendition scores 0 on every dimension.
- feedback is one short sentence naming the most important thing to fix, or what went well if nothing needs fixing.`

const sessionPrompt = `You are a NAATI CCL examiner summarising a candidate's performance across a whole dialogue.

Write two or three sentences of overall feedback from the per-segment notes. Name recurring strengths and the single most useful thing to practise next. Do not repeat the scores.`

// buildSegmentMessage constructs the user message for one segment.
func buildSegmentMessage(in SegmentInput, transcript string, withAudio bool) string {
	var b strings.Builder

	lang := in.Language
	if lang == "" {
		lang = "unspecified"
	}
	fmt.Fprintf(&b, "Dialogue language: %s\n", lang)
	fmt.Fprintf(&b, "Attempt: %d\n", in.RepeatCount+1)
	b.WriteString("\nReference segment:\n")
	b.WriteString(strings.TrimSpace(in.ReferenceText))
	b.WriteString("\n\nCandidate rendition:\n")
	switch {
	case withAudio:
		b.WriteString("(attached audio)")
	case strings.TrimSpace(transcript) == "":
		b.WriteString("(silence)")
	default:
		b.WriteString(strings.TrimSpace(transcript))
	}
	return b.String()
}

// buildSessionMessage lists the per-segment verdicts for the summary.
func buildSessionMessage(answers []llmAnswer) string {
	var b strings.Builder
	for i, a := range answers {
		fmt.Fprintf(&b, "Segment %d (total %.1f/100): %s\n", i+1, a.total, a.feedback)
	}
	return b.String()
}

func rubricProperty(desc string) map[string]any {
	return map[string]any{
		"type":        "integer",
		"minimum":     0,
		"maximum":     MaxDimensionScore,
		"description": desc,
	}
}

// SegmentRubricSchema is the examiner's verdict on one segment.
var SegmentRubricSchema = &llm.Schema{
	Name:        "segment-score",
	Description: "Rubric marks and one line of feedback for an interpreted segment",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"accuracy":              rubricProperty("Meaning transfer, 0-10"),
			"language_quality":      rubricProperty("Target language quality, 0-10"),
			"fluency_pronunciation": rubricProperty("Fluency and pronunciation, 0-10"),
			"delivery_coherence":    rubricProperty("Delivery and coherence, 0-10"),
			"cultural_context":      rubricProperty("Cultural appropriateness, 0-10"),
			"response_management":   rubricProperty("Handling of hesitations and corrections, 0-10"),
			"feedback": map[string]any{
				"type":        "string",
				"description": "One sentence of feedback for the candidate",
			},
		},
		"required": []any{
			"accuracy", "language_quality", "fluency_pronunciation",
			"delivery_coherence", "cultural_context", "response_management", "feedback",
		},
		"additionalProperties": false,
	},
}

// SessionFeedbackSchema is the examiner's summary of a session.
var SessionFeedbackSchema = &llm.Schema{
	Name:        "session-feedback",
	Description: "Overall feedback for an interpreted dialogue",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"feedback": map[string]any{
				"type":        "string",
				"description": "Two or three sentences of overall feedback",
			},
		},
		"required":             []any{"feedback"},
		"additionalProperties": false,
	},
}
