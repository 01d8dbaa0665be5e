package service

import (
	"time"

	"school-chatbot/internal/guard"
	"school-chatbot/internal/intent"
	"school-chatbot/internal/safety"
	"school-chatbot/internal/timeparse"
)

// Stage names the pipeline step that settled a message.
type Stage string

const (
	StageSafety        Stage = "safety"
	StageAuthorization Stage = "authorization"
	StageDomain        Stage = "domain"
	StageIntent        Stage = "intent"
	StageError         Stage = "error"
)

// Decision is the outcome of every rule stage for one message. Stages after
// the one that rejected the message are left zero.
type Decision struct {
	Stage    Stage            `json:"stage"`
	Safety   safety.Verdict   `json:"safety"`
	Authz    *guard.Decision  `json:"authorization,omitempty"`
	InDomain bool             `json:"in_domain"`
	Intent   *intent.Result   `json:"intent,omitempty"`
	Time     timeparse.Result `json:"time"`
}

// Rejected reports whether a guard stopped the message before classification.
func (d Decision) Rejected() bool {
	return d.Stage != StageIntent
}

// Label is the metrics label of the decision.
func (d Decision) Label() string {
	switch d.Stage {
	case StageSafety:
		return string(d.Safety.Category)
	case StageAuthorization:
		return string(d.Authz.Reason)
	case StageDomain:
		return "off_domain"
	default:
		return string(d.Intent.Label)
	}
}

// Decide runs the rule stages in order: safety, authorization, domain, then
// time extraction and intent classification. It is a pure function of msg
// and now.
func Decide(msg string, now time.Time) Decision {
	d := Decision{Safety: safety.Screen(msg)}
	if !d.Safety.Allowed {
		d.Stage = StageSafety
		return d
	}

	authz := guard.Authorize(msg)
	d.Authz = &authz
	if !authz.Allowed {
		d.Stage = StageAuthorization
		return d
	}

	if !guard.InDomain(msg) {
		d.Stage = StageDomain
		return d
	}
	d.InDomain = true

	result := intent.Classify(msg)
	d.Intent = &result
	d.Time = timeparse.Extract(msg, now)
	d.Stage = StageIntent
	return d
}
