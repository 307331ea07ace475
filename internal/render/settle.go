package render

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// SettleMode selects how a session decides that a page has finished
// rendering after navigation.
type SettleMode string

const (
	// SettleDelay waits a fixed duration after navigation.
	SettleDelay SettleMode = "delay"

	// SettleDOMReady polls document.readyState until it is "complete",
	// then waits a short grace period for late JavaScript.
	SettleDOMReady SettleMode = "dom-ready"

	// SettleSelector waits for a CSS selector to appear in the DOM.
	SettleSelector SettleMode = "selector"
)

// DefaultSettleDelay is the fixed wait used by SettleDelay.
const DefaultSettleDelay = 1500 * time.Millisecond

// settleGrace is the extra wait after dom-ready or selector match, giving
// late-loading JavaScript a chance to fill in content.
const settleGrace = 250 * time.Millisecond

// Settle is a page-settling strategy.
type Settle struct {
	// Mode selects the strategy.
	Mode SettleMode

	// Delay is the wait for SettleDelay mode.
	Delay time.Duration

	// Selector is the CSS selector for SettleSelector mode.
	Selector string
}

// ParseSettleMode validates a settle mode string from configuration.
func ParseSettleMode(s string) (SettleMode, error) {
	switch SettleMode(s) {
	case SettleDelay, SettleDOMReady, SettleSelector:
		return SettleMode(s), nil
	default:
		return "", fmt.Errorf("unknown settle mode %q (want delay, dom-ready, or selector)", s)
	}
}

// actions returns the chromedp actions that implement the strategy.
func (s Settle) actions() []chromedp.Action {
	switch s.Mode {
	case SettleDOMReady:
		return []chromedp.Action{
			waitForDocumentReady(),
			chromedp.Sleep(settleGrace),
		}
	case SettleSelector:
		return []chromedp.Action{
			chromedp.WaitReady(s.Selector, chromedp.ByQuery),
			chromedp.Sleep(settleGrace),
		}
	default:
		delay := s.Delay
		if delay <= 0 {
			delay = DefaultSettleDelay
		}
		return []chromedp.Action{chromedp.Sleep(delay)}
	}
}

// waitForDocumentReady polls document.readyState every 100ms until the
// document reports complete or the context expires.
func waitForDocumentReady() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			var readyState string
			if err := chromedp.Evaluate(`document.readyState`, &readyState).Do(ctx); err != nil {
				return err
			}
			if readyState == "complete" {
				return nil
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})
}
