package pipeline

import (
	"github.com/mspkit/delegate/internal/arm"
	"github.com/mspkit/delegate/internal/guests"
	"github.com/mspkit/delegate/internal/lighthouse"
	"github.com/mspkit/delegate/internal/scan"
)

// Outcome of one pipeline stage.
type Outcome string

const (
	OutcomeCreated  Outcome = "created"
	OutcomeExisting Outcome = "existing"
	OutcomeWarned   Outcome = "warned"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeFailed   Outcome = "failed"
)

// Stage is one per-stage result record, keyed by the identifier an
// operator needs for remediation.
type Stage struct {
	Name    string
	Key     string
	Outcome Outcome
	Detail  string
}

// PackageReport aggregates the package pipeline's stage results.
// CreateCount counts fresh creations across the resolve-or-create stages:
// a full rerun against unchanged state reports zero.
type PackageReport struct {
	Stages      []Stage
	Guests      []guests.Result
	CreateCount int
}

func (r *PackageReport) add(name, key string, outcome Outcome, detail string) {
	r.Stages = append(r.Stages, Stage{Name: name, Key: key, Outcome: outcome, Detail: detail})
	if outcome == OutcomeCreated {
		r.CreateCount++
	}
}

// SubscriptionStatus classifies one subscription's trip through the
// delegation pipeline.
type SubscriptionStatus string

const (
	StatusDeployed     SubscriptionStatus = "[OK]"
	StatusFailed       SubscriptionStatus = "[FAILED]"
	StatusNoDelegation SubscriptionStatus = "[NO DELEGATION]"
)

// SubscriptionReport is the delegation pipeline's per-subscription result.
type SubscriptionReport struct {
	Subscription arm.Subscription
	Status       SubscriptionStatus
	Deployment   *arm.Deployment
	Delegations  []lighthouse.Delegation
	Err          error
}

// OnboardReport aggregates the delegation pipeline: the gating scan plus
// one record per eligible subscription.
type OnboardReport struct {
	Scan          *scan.Result
	Subscriptions []SubscriptionReport
}
