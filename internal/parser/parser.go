// Package parser turns free-form model output into a structured consultation.
//
// Parsing runs an ordered chain of strategies over a sanitized copy of the
// response. The first strategy whose preconditions hold produces the result;
// if none do, a terminal fallback keeps the whole text as the diagnosis.
// Parse never fails.
//
//	p := parser.New(parser.WithObserver(parser.LogObserver(logger)))
//	res := p.Parse(resp.Content)
//	if res.Tier == parser.TierFallback {
//	    // the model ignored the requested format
//	}
package parser

import (
	"fmt"
	"strings"
)

// Tier identifies the strategy that produced a Result.
type Tier int

const (
	TierStrict Tier = iota + 1
	TierHeuristic
	TierFallback
)

// String returns the tier name stored alongside consultations.
func (t Tier) String() string {
	switch t {
	case TierStrict:
		return "strict"
	case TierHeuristic:
		return "heuristic"
	case TierFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Degraded reports whether t is the fallback tier.
func (t Tier) Degraded() bool { return t == TierFallback }

// Result is a parsed consultation. Diagnosis and TreatmentPlan are never
// empty. DiagnosisCode is set only when the response contained an ICD-11
// code.
type Result struct {
	Diagnosis     string `json:"diagnosis"`
	TreatmentPlan string `json:"treatment_plan"`
	DiagnosisCode string `json:"diagnosis_code,omitempty"`
	Tier          Tier   `json:"-"`
}

// Parser runs the strategy chain. A Parser holds no mutable state and is
// safe for concurrent use.
type Parser struct {
	strategies []Strategy
	observer   Observer
}

// Option configures a Parser.
type Option func(*Parser)

// WithObserver sets the observer notified of every tier attempt.
func WithObserver(o Observer) Option {
	return func(p *Parser) {
		if o != nil {
			p.observer = o
		}
	}
}

// WithStrategies replaces the default strict and heuristic chain. The
// fallback always runs last and cannot be removed.
func WithStrategies(s ...Strategy) Option {
	return func(p *Parser) {
		p.strategies = append([]Strategy(nil), s...)
	}
}

// New returns a Parser with the strict and heuristic strategies.
func New(opts ...Option) *Parser {
	p := &Parser{
		strategies: []Strategy{StrictStrategy{}, HeuristicStrategy{}},
		observer:   nopObserver{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var defaultParser = New()

// Parse runs raw through a Parser with default settings.
func Parse(raw string) Result {
	return defaultParser.Parse(raw)
}

// Parse converts raw model output into a Result. The diagnosis code is
// searched for in the unsanitized text whichever tier wins.
func (p *Parser) Parse(raw string) Result {
	doc := NewDocument(raw)
	code := ExtractICDCode(raw)

	for _, s := range p.strategies {
		res, err := try(s, doc)
		if err != nil {
			p.notify(s.Tier(), Outcome{Reason: err.Error()})
			continue
		}
		p.notify(s.Tier(), Outcome{Matched: true})
		res.Tier = s.Tier()
		res.DiagnosisCode = code
		return res
	}

	res, _ := fallbackStrategy{}.TryParse(doc)
	p.notify(TierFallback, Outcome{Matched: true})
	res.Tier = TierFallback
	res.DiagnosisCode = code
	return res
}

// notify calls the observer, discarding any panic it raises.
func (p *Parser) notify(tier Tier, outcome Outcome) {
	defer func() { _ = recover() }()
	p.observer.OnTierAttempt(tier, outcome)
}

// try runs s, converting a panic or a result with an empty section into a
// rejection.
func try(s Strategy, doc Document) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: strategy panicked: %v", ErrNoMatch, r)
		}
	}()

	res, err = s.TryParse(doc)
	if err != nil {
		return Result{}, err
	}
	if strings.TrimSpace(res.Diagnosis) == "" || strings.TrimSpace(res.TreatmentPlan) == "" {
		return Result{}, fmt.Errorf("%w: empty section", ErrNoMatch)
	}
	return res, nil
}
