package chatbot

import (
	"time"

	"github.com/upatik/helpdesk-chatbot/engine/convlog"
	"github.com/upatik/helpdesk-chatbot/engine/decision"
)

// Fixed replies for the non-success outcomes.
const (
	BelowThresholdAnswer   = "Maaf, saya belum bisa memahami pertanyaan kamu nih, bisa coba ubah dengan kata lain. Atau Untuk bantuan lebih lanjut, silakan cek informasi di atas klik tentang chatbot (kepala robot)"
	BelowThresholdCategory = "Tidak dikenal"

	PreprocessingAnswer   = "Maaf, saya tidak memahami pertanyaan Anda. Silakan tulis ulang dengan lebih jelas."
	PreprocessingCategory = "Error"
)

// TimestampLayout is the display format of reply and log timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

// Response is the engine's answer to one message.
type Response struct {
	Answer            string          `json:"answer"`
	Category          string          `json:"category"`
	Confidence        float64         `json:"confidence"`
	MatchedQuestion   string          `json:"matched_question,omitempty"`
	OriginalQuestion  string          `json:"original_question"`
	ProcessedQuestion string          `json:"processed_question"`
	Status            decision.Status `json:"status"`
	Mode              decision.Mode   `json:"mode"`
	ResponseTime      time.Duration   `json:"-"`
}

// Reply is the wire form of a Response shared by the HTTP and NATS
// surfaces. Confidence and ResponseTime are rounded to three places.
type Reply struct {
	Status       string  `json:"status"`
	Message      string  `json:"message"`
	Category     string  `json:"category"`
	Confidence   float64 `json:"confidence"`
	ResponseTime float64 `json:"response_time"`
	MatchStatus  string  `json:"match_status"`
	Mode         string  `json:"mode"`
	Timestamp    string  `json:"timestamp"`
}

// NewReply formats resp as sent to clients at time now.
func NewReply(resp Response, now time.Time) Reply {
	return Reply{
		Status:       "success",
		Message:      resp.Answer,
		Category:     resp.Category,
		Confidence:   convlog.Round(resp.Confidence, 3),
		ResponseTime: convlog.Round(resp.ResponseTime.Seconds(), 3),
		MatchStatus:  string(resp.Status),
		Mode:         string(resp.Mode),
		Timestamp:    now.Format(TimestampLayout),
	}
}

// Stats is the on-demand summary of an engine and its conversation log.
type Stats struct {
	convlog.Stats
	DatasetSize    int           `json:"dataset_size"`
	Categories     []string      `json:"categories"`
	Threshold      float64       `json:"threshold"`
	ModelAvailable bool          `json:"model_available"`
	Mode           decision.Mode `json:"mode"`
	Model          string        `json:"model,omitempty"`
	Index          string        `json:"index,omitempty"`
	Source         string        `json:"dataset_source"`
}
