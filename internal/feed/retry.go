package feed

import (
	"fmt"
	"strings"
	"time"
)

// ExhaustedAction decides what the source does once every attempt at an index failed.
type ExhaustedAction string

const (
	// ExhaustedSkip emits an empty payload for the tick and advances to the next index.
	ExhaustedSkip ExhaustedAction = "skip"
	// ExhaustedBlock stays on the index and starts a new attempt cycle on the next tick.
	ExhaustedBlock ExhaustedAction = "block"
)

// RetryPolicy bounds how often an index is re-attempted after an encode failure.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
	OnExhausted ExhaustedAction
}

// Retry defaults shared by the CLI options and DefaultRetryPolicy.
const (
	DefaultRetryAttempts = 20
	DefaultRetryBackoff  = time.Second
)

// DefaultRetryPolicy returns twenty attempts one second apart, then skip.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultRetryAttempts,
		Backoff:     DefaultRetryBackoff,
		OnExhausted: ExhaustedSkip,
	}
}

// ParseExhaustedAction converts a config string into an ExhaustedAction.
func ParseExhaustedAction(s string) (ExhaustedAction, error) {
	switch ExhaustedAction(strings.ToLower(strings.TrimSpace(s))) {
	case "", ExhaustedSkip:
		return ExhaustedSkip, nil
	case ExhaustedBlock:
		return ExhaustedBlock, nil
	default:
		return "", fmt.Errorf("unknown exhausted action %q (want skip or block)", s)
	}
}

func (p RetryPolicy) validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry max attempts must be >= 1, got %d", p.MaxAttempts)
	}
	if p.Backoff < 0 {
		return fmt.Errorf("retry backoff must not be negative, got %s", p.Backoff)
	}
	if _, err := ParseExhaustedAction(string(p.OnExhausted)); err != nil {
		return err
	}
	return nil
}
