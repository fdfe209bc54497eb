// Package decision turns a best match and its score into an outcome.
package decision

import "fmt"

// Status is the outcome class reported to callers.
type Status string

const (
	StatusSuccess            Status = "success"
	StatusBelowThreshold     Status = "below_threshold"
	StatusPreprocessingError Status = "preprocessing_error"
)

// Mode identifies the matcher that produced a score.
type Mode string

const (
	ModeSemantic Mode = "semantic"
	ModeLexical  Mode = "lexical"
)

// Default thresholds.
const (
	DefaultLexicalThreshold = 0.5
)

// Thresholds pairs each matcher mode with its acceptance threshold.
type Thresholds struct {
	Semantic float64
	Lexical  float64
}

// For returns the threshold configured for mode.
func (t Thresholds) For(m Mode) float64 {
	if m == ModeSemantic {
		return t.Semantic
	}
	return t.Lexical
}

// Validate checks both thresholds lie in [0, 1].
func (t Thresholds) Validate() error {
	if t.Semantic < 0 || t.Semantic > 1 {
		return fmt.Errorf("decision: semantic threshold %v outside [0,1]", t.Semantic)
	}
	if t.Lexical < 0 || t.Lexical > 1 {
		return fmt.Errorf("decision: lexical threshold %v outside [0,1]", t.Lexical)
	}
	return nil
}

// Outcome is the result of Decide. Index is meaningful only on success.
type Outcome struct {
	Status Status
	Index  int
	Score  float64
}

// Decide classifies a match. An empty normalized query is always a
// preprocessing error with score 0; otherwise a score at or above the
// threshold is a success.
func Decide(normalized string, index int, score, threshold float64) Outcome {
	switch {
	case normalized == "":
		return Outcome{Status: StatusPreprocessingError, Index: -1}
	case score >= threshold:
		return Outcome{Status: StatusSuccess, Index: index, Score: score}
	default:
		return Outcome{Status: StatusBelowThreshold, Index: -1, Score: score}
	}
}
