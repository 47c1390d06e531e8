// Package review produces improvement suggestions for a content document,
// metered by the quota tracker. When the external analyzer is unavailable the
// package degrades to a deterministic rule-based generator, so callers always
// receive a suggestion list while quota remains.
package review

import (
	"github.com/storyloom/gate/quota"
)

// Block types understood by the analyzers.
const (
	BlockParagraph = "paragraph"
	BlockHeading   = "heading"
	BlockButton    = "button"
	BlockImage     = "image"
)

// Block is one unit of content inside a document.
type Block struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Content string `json:"content"`
}

// Document is the input shape shared by the real analyzer and the fallback
// generator, so either path sees an identical contract.
type Document struct {
	Subject string  `json:"subject"`
	Blocks  []Block `json:"blocks"`
}

// Suggestion priorities, highest first.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Suggestion is one proposed improvement to a document.
type Suggestion struct {
	ID           string `json:"id"`
	BlockID      string `json:"blockId,omitempty"` // empty for subject-level suggestions
	Type         string `json:"type"`
	Priority     string `json:"priority"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Suggestion   string `json:"suggestion"`
	CurrentText  string `json:"currentText,omitempty"`
	ImprovedText string `json:"improvedText,omitempty"`
	Reasoning    string `json:"reasoning"`
}

// Result is the outcome of one review. The envelope ID is a fresh uuid per
// call; suggestion contents from the fallback path are deterministic for a
// given document.
type Result struct {
	ID          string            `json:"id"`
	Suggestions []Suggestion      `json:"suggestions"`
	Usage       quota.UsageRecord `json:"usage"`
	Fallback    bool              `json:"fallback"` // true when the rule-based generator produced the suggestions
}
