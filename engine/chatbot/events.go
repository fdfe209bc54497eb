package chatbot

import (
	"context"
	"errors"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/upatik/helpdesk-chatbot/engine/convlog"
	"github.com/upatik/helpdesk-chatbot/engine/decision"
	"github.com/upatik/helpdesk-chatbot/pkg/natsutil"
)

// Default NATS subjects.
const (
	DefaultExchangeSubject = "chatbot.exchanges"
	DefaultAskSubject      = "chatbot.ask"
)

// Exchange is the event published for every recorded conversation entry.
type Exchange struct {
	ID           string    `json:"id"`
	User         string    `json:"user"`
	Bot          string    `json:"bot"`
	Category     string    `json:"category"`
	Confidence   float64   `json:"confidence"`
	Status       string    `json:"status"`
	Mode         string    `json:"mode"`
	ResponseTime float64   `json:"response_time"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewExchange converts a log entry into its event form.
func NewExchange(e convlog.Entry, mode decision.Mode) Exchange {
	return Exchange{
		ID:           e.ID,
		User:         e.User,
		Bot:          e.Bot,
		Category:     e.Category,
		Confidence:   e.Confidence,
		Status:       e.Status,
		Mode:         string(mode),
		ResponseTime: e.ResponseTime.Seconds(),
		Timestamp:    e.Timestamp,
	}
}

// EventPublisher receives every recorded exchange.
type EventPublisher interface {
	Publish(ctx context.Context, ex Exchange) error
}

// NATSEvents publishes exchanges as JSON on a NATS subject.
type NATSEvents struct {
	nc      *nats.Conn
	subject string
}

// NewNATSEvents returns a publisher on subject, or DefaultExchangeSubject
// when subject is empty.
func NewNATSEvents(nc *nats.Conn, subject string) *NATSEvents {
	if subject == "" {
		subject = DefaultExchangeSubject
	}
	return &NATSEvents{nc: nc, subject: subject}
}

func (n *NATSEvents) Publish(ctx context.Context, ex Exchange) error {
	return natsutil.Publish(ctx, n.nc, n.subject, ex)
}

// Ask is a question sent over NATS request/reply.
type Ask struct {
	Message string `json:"message"`
}

// AskReply answers an Ask. Error is set, and Reply empty, when the
// question could not be answered.
type AskReply struct {
	Reply
	Error string `json:"error,omitempty"`
}

// ErrEmptyMessage is returned for a blank Ask.
var ErrEmptyMessage = errors.New("chatbot: empty message")

// ServeAsk answers Ask requests on subject through h.
func ServeAsk(nc *nats.Conn, subject string, h *Handle) (*nats.Subscription, error) {
	if subject == "" {
		subject = DefaultAskSubject
	}
	return natsutil.Respond(nc, subject, func(ctx context.Context, req Ask) AskReply {
		return h.Ask(ctx, req)
	}, func(err error) AskReply {
		return AskReply{Reply: Reply{Status: "error"}, Error: err.Error()}
	})
}
