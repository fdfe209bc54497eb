package intent

import (
	"context"
	"log/slog"

	"github.com/upatik/helpdesk-chatbot/pkg/fn"
)

// Chain tries each source in order and returns the first valid set.
// The built-in dataset is always appended as the final source, so
// LoadFrom only fails when ctx is cancelled.
type Chain struct {
	sources []Source
	logger  *slog.Logger
}

// NewChain builds a source chain ending in the built-in dataset.
func NewChain(logger *slog.Logger, sources ...Source) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	all := make([]Source, 0, len(sources)+1)
	for _, s := range sources {
		if s != nil {
			all = append(all, s)
		}
	}
	all = append(all, Builtin())
	return &Chain{sources: all, logger: logger}
}

// LoadFrom returns the first set that loads and validates, and the name
// of the source that produced it.
func (c *Chain) LoadFrom(ctx context.Context) (Set, string, error) {
	attempts := fn.Map(c.sources, func(s Source) func() fn.Result[Set] {
		return func() fn.Result[Set] {
			if err := ctx.Err(); err != nil {
				return fn.Err[Set](err)
			}
			set, err := s.Load(ctx)
			if err == nil {
				err = set.Validate()
			}
			if err != nil {
				c.logger.Warn("dataset source unavailable", "source", s.Name(), "err", err)
				return fn.Err[Set](err)
			}
			return fn.Ok(set)
		}
	})
	idx, res := fn.FirstOk(attempts...)
	set, err := res.Unwrap()
	if err != nil {
		return nil, "", err
	}
	return set, c.sources[idx].Name(), nil
}
