package parser

import (
	"log/slog"
)

// Outcome describes one strategy attempt.
type Outcome struct {
	// Matched reports whether the strategy produced the result.
	Matched bool

	// Reason is the failed precondition when Matched is false.
	Reason string
}

// Observer receives a callback for every strategy the pipeline tries.
// Implementations must be safe for concurrent use when a Parser is shared.
type Observer interface {
	OnTierAttempt(tier Tier, outcome Outcome)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(tier Tier, outcome Outcome)

// OnTierAttempt implements Observer.
func (f ObserverFunc) OnTierAttempt(tier Tier, outcome Outcome) { f(tier, outcome) }

type nopObserver struct{}

func (nopObserver) OnTierAttempt(Tier, Outcome) {}

// LogObserver returns an Observer that writes each attempt to logger.
// Rejections and matches are logged at debug level; reaching the fallback
// tier is logged as a warning since it means the model ignored the format.
func LogObserver(logger *slog.Logger) Observer {
	if logger == nil {
		return nopObserver{}
	}
	return ObserverFunc(func(tier Tier, outcome Outcome) {
		if tier == TierFallback {
			logger.Warn("response parsing degraded to fallback")
			return
		}
		if outcome.Matched {
			logger.Debug("parse tier matched", "tier", tier.String())
			return
		}
		logger.Debug("parse tier rejected", "tier", tier.String(), "reason", outcome.Reason)
	})
}
