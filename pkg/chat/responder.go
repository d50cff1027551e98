package chat

import (
	"context"
	"time"
)

// Responder produces the incoming reply for a submitted message.
type Responder interface {
	Reply(ctx context.Context, prompt string) (string, error)
}

// PlaceholderResponder answers every prompt with the same text after a fixed
// delay. It stands in for a real backend.
type PlaceholderResponder struct {
	Text  string
	Delay time.Duration
}

func (p PlaceholderResponder) Reply(ctx context.Context, _ string) (string, error) {
	if p.Delay <= 0 {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return p.Text, nil
	}

	timer := time.NewTimer(p.Delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timer.C:
		return p.Text, nil
	}
}
