// Package suggest asks a vision-capable model for an advisory answer to a
// captured question. Suggestions are advisory only: every failure mode here
// degrades to "no suggestion" at the call site.
package suggest

import (
	"fmt"
	"time"
)

// Suggestion is a model's advisory answer for one question.
type Suggestion struct {
	Choice     string        // one of A–E
	Confidence float64       // 0.0–1.0
	Reasoning  string
	Model      string
	Elapsed    time.Duration
}

func (s *Suggestion) String() string {
	return fmt.Sprintf("Answer: %s (Confidence: %.1f%%) - %s", s.Choice, s.Confidence*100, s.Reasoning)
}
