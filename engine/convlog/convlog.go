// Package convlog keeps the in-memory record of chat exchanges.
package convlog

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry is one recorded exchange.
type Entry struct {
	ID           string        `json:"id"`
	User         string        `json:"user"`
	Bot          string        `json:"bot"`
	Category     string        `json:"category"`
	Confidence   float64       `json:"confidence"`
	Status       string        `json:"status"`
	ResponseTime time.Duration `json:"-"`
	Timestamp    time.Time     `json:"timestamp"`
}

// History is an append-only exchange log with a bulk clear.
type History interface {
	Record(e Entry) Entry
	Snapshot() []Entry
	Clear()
	Len() int
}

// Log is a mutex-guarded History. The zero value is ready to use.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	now     func() time.Time // for testing
}

// New returns an empty log.
func New() *Log { return &Log{} }

var _ History = (*Log)(nil)

// Record appends e, filling in ID and Timestamp when unset, and returns
// the stored entry.
func (l *Log) Record(e Entry) Entry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if e.Timestamp.IsZero() {
		if l.now != nil {
			e.Timestamp = l.now()
		} else {
			e.Timestamp = time.Now()
		}
	}
	l.entries = append(l.entries, e)
	return e
}

// Snapshot returns a copy of the entries in append order.
func (l *Log) Snapshot() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Clear drops every entry.
func (l *Log) Clear() {
	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Stats aggregates a snapshot.
type Stats struct {
	Total               int     `json:"total_conversations"`
	Successful          int     `json:"successful_responses"`
	SuccessRate         float64 `json:"success_rate"`
	AverageConfidence   float64 `json:"average_confidence"`
	AverageResponseTime float64 `json:"average_response_time"`
}

// Summarize computes stats over entries. SuccessRate is a percentage
// rounded to two places; averages are rounded to three, response time in
// seconds. An empty slice yields zero values.
func Summarize(entries []Entry, successStatus string) Stats {
	s := Stats{Total: len(entries)}
	if s.Total == 0 {
		return s
	}
	var conf, rt float64
	for _, e := range entries {
		if e.Status == successStatus {
			s.Successful++
		}
		conf += e.Confidence
		rt += e.ResponseTime.Seconds()
	}
	n := float64(s.Total)
	s.SuccessRate = Round(float64(s.Successful)/n*100, 2)
	s.AverageConfidence = Round(conf/n, 3)
	s.AverageResponseTime = Round(rt/n, 3)
	return s
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
