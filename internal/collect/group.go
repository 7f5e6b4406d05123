package collect

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// RunAll drives several runners concurrently. The first fatal error
// cancels the rest; summaries are returned for every runner that
// started, in runner order.
func RunAll(ctx context.Context, runners []*Runner) ([]Summary, error) {
	group, groupCtx := errgroup.WithContext(ctx)
	summaries := make([]Summary, len(runners))
	var mu sync.Mutex

	for i, runner := range runners {
		group.Go(func() error {
			summary, err := runner.Run(groupCtx)
			mu.Lock()
			summaries[i] = summary
			mu.Unlock()
			return err
		})
	}

	err := group.Wait()
	return summaries, err
}
