package nudge

import (
	"context"

	"cloud.google.com/go/civil"

	"github.com/taharajati/habit-tracker/internal/tracker"
)

// Querier fetches the user's dashboard. apiclient.Client satisfies it.
type Querier interface {
	GetSnapshots(ctx context.Context, ref civil.Date) (tracker.Dashboard, error)
}
