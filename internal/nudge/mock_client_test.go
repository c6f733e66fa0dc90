package nudge

import (
	"context"

	"cloud.google.com/go/civil"

	"github.com/taharajati/habit-tracker/internal/tracker"
)

type mockClient struct {
	dash tracker.Dashboard
	ref  civil.Date
	err  error
}

func (f *mockClient) GetSnapshots(ctx context.Context, ref civil.Date) (tracker.Dashboard, error) {
	f.ref = ref
	return f.dash, f.err
}
