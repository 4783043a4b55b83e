package engagement

import (
	"context"
	"errors"
	"time"

	"github.com/stickynet/sticky-net/pkg/logging"
)

// Variant is one model backend in a fallback chain.
type Variant struct {
	Name    string
	Model   string
	Client  LLMClient
	Timeout time.Duration
}

// Cascade tries an ordered list of model variants, each bounded by its own
// timeout. A failed or timed-out attempt immediately advances to the next
// variant; a variant is never retried.
type Cascade struct {
	variants []Variant
	logger   *logging.Logger
}

// NewCascade creates a cascade over the given variants, tried in order.
func NewCascade(variants []Variant, logger *logging.Logger) *Cascade {
	if len(variants) == 0 {
		panic("engagement: cascade requires at least one variant")
	}
	if logger == nil {
		panic("engagement: logger is required")
	}
	return &Cascade{variants: variants, logger: logger.Component("llm_cascade")}
}

// Complete runs the request through the chain and returns the first
// successful response. The request's Model field is overridden per variant.
func (c *Cascade) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	var lastErr error
	for _, v := range c.variants {
		attemptCtx := ctx
		cancel := func() {}
		if v.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, v.Timeout)
		}

		attemptReq := req
		if v.Model != "" {
			attemptReq.Model = v.Model
		}

		resp, err := v.Client.Complete(attemptCtx, attemptReq)
		cancel()
		if err == nil && resp.Text != "" {
			return resp, nil
		}
		if err == nil {
			err = errors.New("engagement: empty response")
		}
		lastErr = err

		c.logger.Warn("model variant failed, advancing",
			"variant", v.Name,
			"error", err.Error(),
		)

		// A dead parent context makes further attempts pointless.
		if ctx.Err() != nil {
			return LLMResponse{}, ctx.Err()
		}
	}
	return LLMResponse{}, lastErr
}
