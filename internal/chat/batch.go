package chat

import (
	"context"

	"github.com/sourcegraph/conc/pool"

	"github.com/mkulima/agrichat/internal/models"
)

// SubmitAll submits every query, running at most concurrency calls at once.
// The returned replies are aligned with queries; blank queries are skipped
// and leave a zero Message in their slot.
func (s *Session) SubmitAll(ctx context.Context, queries []string, concurrency int) []models.Message {
	if concurrency < 1 {
		concurrency = 1
	}

	replies := make([]models.Message, len(queries))
	p := pool.New().WithMaxGoroutines(concurrency)
	for i, query := range queries {
		p.Go(func() {
			turn, ok := s.Begin(query)
			if !ok {
				return
			}
			replies[i] = turn.Await(ctx)
		})
	}
	p.Wait()

	return replies
}
