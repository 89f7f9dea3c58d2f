// Package ai forwards prompts to a hosted text-generation model.
//
// The Gateway never fails: any error, timeout or empty reply becomes the
// fixed Fallback text so chat and guide endpoints always have something to
// show.
//
//	gw := ai.New(completer, 30*time.Second)
//	reply := gw.Ask(ctx, "How do I grow rice organically?")
package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shashiranjanraj/krishimitra/pkg/logger"
	"github.com/shashiranjanraj/krishimitra/pkg/metrics"
)

// Fallback is returned whenever the model cannot answer.
const Fallback = "Sorry, something went wrong. Please try again."

// ErrNotConfigured is returned by Unconfigured.
var ErrNotConfigured = errors.New("ai: GEMINI_API_KEY not configured")

// ErrEmptyReply means the model answered with no text.
var ErrEmptyReply = errors.New("ai: empty reply")

// Completer turns a prompt into text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Unconfigured is the Completer used when no API key is set.
type Unconfigured struct{}

func (Unconfigured) Complete(context.Context, string) (string, error) { return "", ErrNotConfigured }

// Gateway bounds each call and hides failures behind Fallback.
type Gateway struct {
	completer Completer
	timeout   time.Duration
}

// New returns a Gateway. A non-positive timeout means 30s.
func New(c Completer, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Gateway{completer: c, timeout: timeout}
}

// Ask sends prompt verbatim and returns the reply or Fallback.
func (g *Gateway) Ask(ctx context.Context, prompt string) string {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	reply, err := g.completer.Complete(ctx, prompt)
	if err == nil && strings.TrimSpace(reply) == "" {
		err = ErrEmptyReply
	}
	if err != nil {
		metrics.ObserveGateway("ai", "fallback", start)
		logger.WithCtx(ctx).Warn("ai: falling back", "error", err, "elapsed", time.Since(start).String())
		return Fallback
	}

	metrics.ObserveGateway("ai", "ok", start)
	return reply
}
