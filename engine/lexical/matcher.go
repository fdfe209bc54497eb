// Package lexical scores a query against canonical questions by word
// overlap. It is the matcher used when no embedding table is available.
package lexical

import "github.com/upatik/helpdesk-chatbot/engine/textnorm"

// Matcher holds the token sets of a fixed list of normalized questions.
// It is immutable after construction and safe for concurrent use.
type Matcher struct {
	candidates []map[string]struct{}
}

// New precomputes token sets for normalized questions. Index i of the
// matcher corresponds to normalized[i].
func New(normalized []string) *Matcher {
	m := &Matcher{candidates: make([]map[string]struct{}, len(normalized))}
	for i, q := range normalized {
		m.candidates[i] = textnorm.Tokens(q)
	}
	return m
}

// Len reports the number of candidates.
func (m *Matcher) Len() int { return len(m.candidates) }

// Match returns the index and score of the best candidate for a
// normalized query. The score is the share of the candidate's distinct
// tokens present in the query, in [0, 1]. Candidates without tokens are
// skipped. Ties keep the earliest index; if nothing overlaps the result
// is (0, 0).
func (m *Matcher) Match(query string) (int, float64) {
	q := textnorm.Tokens(query)
	best, bestScore := 0, 0.0
	for i, cand := range m.candidates {
		if len(cand) == 0 {
			continue
		}
		hits := 0
		for tok := range cand {
			if _, ok := q[tok]; ok {
				hits++
			}
		}
		score := float64(hits) / float64(len(cand))
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best, bestScore
}
