// Command ask talks to a running chatbot over NATS. With -q it sends one
// question and prints the reply; with -tail it prints exchange events
// until interrupted.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/upatik/helpdesk-chatbot/engine/chatbot"
	"github.com/upatik/helpdesk-chatbot/pkg/natsutil"
)

func main() {
	var (
		natsURL  = flag.String("nats", envOr("NATS_URL", nats.DefaultURL), "NATS server URL")
		askSubj  = flag.String("subject", envOr("NATS_ASK_SUBJECT", chatbot.DefaultAskSubject), "ask subject")
		exchSubj = flag.String("exchanges", envOr("NATS_EXCHANGE_SUBJECT", chatbot.DefaultExchangeSubject), "exchange event subject")
		question = flag.String("q", "", "question to ask")
		tail     = flag.Bool("tail", false, "print exchange events")
		timeout  = flag.Duration("timeout", natsutil.DefaultRequestTimeout, "request timeout")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if *question == "" && !*tail {
		fmt.Fprintln(os.Stderr, "usage: ask -q \"pertanyaan\" | ask -tail")
		os.Exit(2)
	}

	nc, err := nats.Connect(*natsURL, nats.Name("helpdesk-chatbot-ask"))
	if err != nil {
		logger.Error("nats connect", "url", *natsURL, "err", err)
		os.Exit(1)
	}
	defer nc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *question != "" {
		reqCtx, cancel := context.WithTimeout(ctx, *timeout)
		err := ask(reqCtx, nc, *askSubj, *question, os.Stdout)
		cancel()
		if err != nil {
			logger.Error("ask failed", "err", err)
			os.Exit(1)
		}
	}
	if *tail {
		if err := tailExchanges(ctx, nc, *exchSubj, os.Stdout); err != nil {
			logger.Error("tail failed", "err", err)
			os.Exit(1)
		}
	}
}

// ask sends question and writes the reply as indented JSON.
func ask(ctx context.Context, nc *nats.Conn, subject, question string, out io.Writer) error {
	reply, err := natsutil.Request[chatbot.Ask, chatbot.AskReply](ctx, nc, subject, chatbot.Ask{Message: question})
	if err != nil {
		return err
	}
	if reply.Error != "" {
		return errors.New(reply.Error)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(reply.Reply)
}

// tailExchanges prints one line per exchange event until ctx is done.
func tailExchanges(ctx context.Context, nc *nats.Conn, subject string, out io.Writer) error {
	lines := make(chan string, 64)
	sub, err := natsutil.Subscribe(nc, subject, func(_ context.Context, ex chatbot.Exchange) {
		select {
		case lines <- formatExchange(ex):
		default:
		}
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line := <-lines:
			fmt.Fprintln(out, line)
		}
	}
}

func formatExchange(ex chatbot.Exchange) string {
	return fmt.Sprintf("%s [%s/%s] %.3f %q -> %s (%s)",
		ex.Timestamp.Format(time.TimeOnly), ex.Status, ex.Mode, ex.Confidence, ex.User, ex.Category, ex.ID)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
