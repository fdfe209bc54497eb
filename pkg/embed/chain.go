package embed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/upatik/helpdesk-chatbot/pkg/fn"
)

// ErrNoProvider is returned when a failed provider reports no error.
var ErrNoProvider = errors.New("embed: no provider available")

// VerifyText is embedded to check that a provider is usable.
const VerifyText = "halo"

// Provider is a named way of obtaining an Embedder. Open reports failure
// as a Result rather than panicking or returning a nil embedder.
type Provider struct {
	Name string
	Open func(ctx context.Context) fn.Result[Embedder]
}

// Verify embeds VerifyText through e and checks the output shape.
func Verify(ctx context.Context, e Embedder) error {
	out, err := e.Embed(ctx, []string{VerifyText})
	if err != nil {
		return fmt.Errorf("embed: verify: %w", err)
	}
	if _, _, err := Check(out, 1); err != nil {
		return fmt.Errorf("embed: verify: %w", err)
	}
	return nil
}

// Verified returns a Provider that opens e only if Verify succeeds, then
// passes it through wrap (which may be nil).
func Verified(name string, e Embedder, wrap func(Embedder) Embedder) Provider {
	return Provider{
		Name: name,
		Open: func(ctx context.Context) fn.Result[Embedder] {
			if err := Verify(ctx, e); err != nil {
				return fn.Err[Embedder](err)
			}
			if wrap != nil {
				return fn.Ok(wrap(e))
			}
			return fn.Ok(e)
		},
	}
}

// FirstAvailable opens providers in order and returns the first that
// succeeds. Each failure is logged. The error is the last provider's
// failure, or fn.ErrNoAttempts when providers is empty.
func FirstAvailable(ctx context.Context, logger *slog.Logger, providers ...Provider) (string, Embedder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	attempts := fn.Map(providers, func(p Provider) func() fn.Result[Embedder] {
		return func() fn.Result[Embedder] {
			if err := ctx.Err(); err != nil {
				return fn.Err[Embedder](err)
			}
			logger.Info("trying embedding provider", "provider", p.Name)
			r := p.Open(ctx)
			if _, err := r.Unwrap(); err != nil {
				logger.Warn("embedding provider unavailable", "provider", p.Name, "err", err)
			}
			return r
		}
	})
	idx, r := fn.FirstOk(attempts...)
	e, err := r.Unwrap()
	if idx < 0 {
		if err == nil {
			err = ErrNoProvider
		}
		return "", nil, err
	}
	logger.Info("embedding provider selected", "provider", providers[idx].Name)
	return providers[idx].Name, e, nil
}
