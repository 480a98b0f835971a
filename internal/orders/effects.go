package orders

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
)

// effects collects the failures of steps that run after an order write has
// committed. A failing step never stops the steps after it.
type effects struct {
	errs error
}

func (e *effects) run(op string, fn func() error) {
	if err := fn(); err != nil {
		e.errs = multierr.Append(e.errs, fmt.Errorf("%s: %w", op, err))
	}
}

// report logs every collected failure and returns how many there were.
func (s *service) report(ctx context.Context, e *effects, msg string) int {
	failed := multierr.Errors(e.errs)
	for _, err := range failed {
		s.logg.Error(ctx, msg, err)
	}
	return len(failed)
}
