package sources

import (
	"context"

	"github.com/brisly/deals-bot/internal/models"
)

// Feed is one external discount catalog. A Fetch failure is scoped to that
// feed only; the pipeline skips the source for the run and carries on.
type Feed interface {
	Name() string
	Fetch(ctx context.Context, max int) ([]models.Deal, error)
}
