package review

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	maxSubjectLen   = 60
	maxParagraphLen = 500
)

// genericCTAs are button labels that say nothing about the action.
var genericCTAs = map[string]bool{
	"click here": true,
	"submit":     true,
	"learn more": true,
	"here":       true,
}

// Fallback produces suggestions from fixed heuristics over the document. It
// is pure: no I/O, no randomness, identical input yields identical output.
// Suggestion ids are derived from the rule name and block id, so repeated
// runs are comparable.
func Fallback(doc Document) []Suggestion {
	var out []Suggestion

	out = append(out, subjectSuggestions(doc.Subject)...)

	hasButton := false
	for _, b := range doc.Blocks {
		switch b.Type {
		case BlockParagraph:
			out = append(out, paragraphSuggestions(b)...)
		case BlockButton:
			hasButton = true
			out = append(out, buttonSuggestions(b)...)
		case BlockImage:
			if strings.TrimSpace(b.Content) == "" {
				out = append(out, Suggestion{
					ID:          "fb-image-alt-" + b.ID,
					BlockID:     b.ID,
					Type:        "accessibility",
					Priority:    PriorityMedium,
					Title:       "Add alt text to this image",
					Description: "The image has no alternative text.",
					Suggestion:  "Describe what the image shows in one short sentence.",
					Reasoning:   "Screen readers and clients that block images need alt text to convey the content.",
				})
			}
		}
	}

	if !hasButton && len(doc.Blocks) > 0 {
		out = append(out, Suggestion{
			ID:          "fb-cta-missing",
			Type:        "structure",
			Priority:    PriorityHigh,
			Title:       "Add a call to action",
			Description: "The document has no button block.",
			Suggestion:  "Add a button that tells readers the one thing you want them to do next.",
			Reasoning:   "Content without a clear next step converts poorly regardless of how well it reads.",
		})
	}

	log.Debug().Int("suggestions", len(out)).Msg("fallback suggestions generated")
	return out
}

func subjectSuggestions(subject string) []Suggestion {
	trimmed := strings.TrimSpace(subject)
	if trimmed == "" {
		return []Suggestion{{
			ID:          "fb-subject-missing",
			Type:        "subject",
			Priority:    PriorityHigh,
			Title:       "Write a subject line",
			Description: "The document has no subject.",
			Suggestion:  "Add a subject under 60 characters that names the story or the ask.",
			Reasoning:   "A missing subject is the single biggest driver of unopened sends.",
		}}
	}

	var out []Suggestion
	if len(trimmed) > maxSubjectLen {
		out = append(out, Suggestion{
			ID:          "fb-subject-length",
			Type:        "subject",
			Priority:    PriorityMedium,
			Title:       "Shorten the subject line",
			Description: fmt.Sprintf("The subject is %d characters; most inboxes truncate around %d.", len(trimmed), maxSubjectLen),
			Suggestion:  "Cut the subject to the one detail that makes someone open.",
			CurrentText: trimmed,
			Reasoning:   "Truncated subjects lose their hook exactly where it matters.",
		})
	}
	if strings.Count(trimmed, "!") > 1 || trimmed == strings.ToUpper(trimmed) && strings.ContainsAny(trimmed, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		out = append(out, Suggestion{
			ID:          "fb-subject-tone",
			Type:        "subject",
			Priority:    PriorityMedium,
			Title:       "Soften the subject tone",
			Description: "All-caps or stacked exclamation marks read as spam.",
			Suggestion:  "Use sentence case and at most one exclamation mark.",
			CurrentText: trimmed,
			Reasoning:   "Spam filters and readers both punish shouty subjects.",
		})
	}
	if !strings.Contains(trimmed, "{{") {
		out = append(out, Suggestion{
			ID:          "fb-subject-personalize",
			Type:        "subject",
			Priority:    PriorityLow,
			Title:       "Personalize the subject",
			Description: "The subject contains no personalization token.",
			Suggestion:  "Consider a merge token such as {{firstName}} where it reads naturally.",
			CurrentText: trimmed,
			Reasoning:   "Personalized subjects reliably lift open rates a few points.",
		})
	}
	return out
}

func paragraphSuggestions(b Block) []Suggestion {
	var out []Suggestion
	content := strings.TrimSpace(b.Content)
	if len(content) > maxParagraphLen {
		out = append(out, Suggestion{
			ID:          "fb-paragraph-length-" + b.ID,
			BlockID:     b.ID,
			Type:        "readability",
			Priority:    PriorityMedium,
			Title:       "Break up this paragraph",
			Description: fmt.Sprintf("The paragraph runs %d characters.", len(content)),
			Suggestion:  "Split it into two or three shorter paragraphs, one idea each.",
			Reasoning:   "Long unbroken text is skimmed past, especially on phones.",
		})
	}
	lower := strings.ToLower(content)
	if content != "" && !strings.Contains(lower, "you") {
		out = append(out, Suggestion{
			ID:          "fb-paragraph-reader-" + b.ID,
			BlockID:     b.ID,
			Type:        "tone",
			Priority:    PriorityLow,
			Title:       "Address the reader directly",
			Description: "The paragraph never says \"you\".",
			Suggestion:  "Recast at least one sentence around what the reader made possible or can do.",
			Reasoning:   "Reader-centered copy outperforms organization-centered copy in giving contexts.",
		})
	}
	return out
}

func buttonSuggestions(b Block) []Suggestion {
	label := strings.ToLower(strings.TrimSpace(b.Content))
	if !genericCTAs[label] {
		return nil
	}
	return []Suggestion{{
		ID:           "fb-button-label-" + b.ID,
		BlockID:      b.ID,
		Type:         "cta",
		Priority:     PriorityHigh,
		Title:        "Make the button label specific",
		Description:  fmt.Sprintf("%q does not say what happens next.", strings.TrimSpace(b.Content)),
		Suggestion:   "Name the action and the outcome.",
		CurrentText:  strings.TrimSpace(b.Content),
		ImprovedText: "Give $25 to fund a week of meals",
		Reasoning:    "Specific, outcome-oriented labels convert better than generic ones.",
	}}
}
