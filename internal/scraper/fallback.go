package scraper

import (
	"context"
	"fmt"
)

// Strategy is one way of getting a source's data: a structured API, a
// full HTML fetch, a protocol or host variant. Strategies return a typed
// success-or-failure; the chain below decides what runs next.
type Strategy struct {
	// Name identifies the strategy in diagnostics ("api", "html",
	// "https-www").
	Name string
	// Run attempts the strategy. A nil error means success and Body
	// holds the fetched content.
	Run func(ctx context.Context) ([]byte, error)
}

// Attempt records one strategy's outcome for diagnostics.
type Attempt struct {
	Strategy string `json:"strategy"`
	Err      string `json:"error,omitempty"`
}

// RunChain tries strategies in order, short-circuiting on the first
// success. Every failed attempt is kept: when the whole chain fails, the
// caller records all of them, and even on success the attempt list shows
// which fallbacks were burned before one worked.
func RunChain(ctx context.Context, strategies []Strategy) (body []byte, used string, attempts []Attempt, err error) {
	for _, s := range strategies {
		if ctx.Err() != nil {
			attempts = append(attempts, Attempt{Strategy: s.Name, Err: ctx.Err().Error()})
			break
		}
		b, runErr := s.Run(ctx)
		if runErr == nil {
			return b, s.Name, attempts, nil
		}
		attempts = append(attempts, Attempt{Strategy: s.Name, Err: runErr.Error()})
	}
	return nil, "", attempts, fmt.Errorf("all %d fetch strategies failed", len(strategies))
}
