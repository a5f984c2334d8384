// Package guests invites external identities into the directory and tags
// each with the correlating attribute the auto-assignment policy targets.
//
// The engine runs two passes over the input list: invite everything first,
// then tag. Invitations propagate asynchronously, so issuing them all
// before spending the retry budget on propagation waits keeps wall-clock
// time down compared with interleaving invite and tag per record.
package guests

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mspkit/delegate/internal/apierror"
	"github.com/mspkit/delegate/internal/graph"
	"github.com/mspkit/delegate/internal/retry"
)

// Record is one guest list row.
type Record struct {
	DisplayName string
	Email       string
	EmployeeTag string
}

// Status of one record through one of the two passes.
type Status string

const (
	// Invitation pass outcomes.
	StatusInvited       Status = "Invited"
	StatusAlreadyExists Status = "AlreadyExists"
	StatusFailed        Status = "Failed"

	// Tagging pass outcomes.
	StatusAlreadyCorrect Status = "AlreadyCorrect"
	StatusUpdated        Status = "Updated"
	StatusUpdateFailed   Status = "UpdateFailed"
	StatusNotFound       Status = "NotFound"

	// StatusSkipped marks the tagging pass of a record whose invitation
	// failed.
	StatusSkipped Status = "Skipped"
)

// Result is the per-record report the engine produces. Individual failures
// never abort the run; callers aggregate and continue.
type Result struct {
	Record     Record
	UserID     string
	Invitation Status
	Tagging    Status
	Err        error
}

// Failed reports whether the record failed either pass.
func (r Result) Failed() bool {
	return r.Invitation == StatusFailed ||
		r.Tagging == StatusUpdateFailed ||
		r.Tagging == StatusNotFound
}

// DirectoryAPI is the slice of the directory client the engine needs.
type DirectoryAPI interface {
	GetUserByEmail(ctx context.Context, email string) (*graph.User, error)
	InviteGuest(ctx context.Context, spec graph.InvitationSpec) (*graph.User, error)
	UpdateEmployeeID(ctx context.Context, userID, employeeID string) error
}

// Engine drives invitations and attribute convergence over a guest list.
type Engine struct {
	api         DirectoryAPI
	policy      retry.Policy
	redirectURL string
}

// NewEngine creates an engine. redirectURL is where accepted invitations
// land; empty uses the portal default.
func NewEngine(api DirectoryAPI, policy retry.Policy, redirectURL string) *Engine {
	if redirectURL == "" {
		redirectURL = "https://portal.azure.com"
	}
	return &Engine{api: api, policy: policy, redirectURL: redirectURL}
}

// Run processes the guest list sequentially: the invitation pass resolves
// existing-vs-new and invites the missing, then the tagging pass converges
// every reachable principal onto its employee tag. At most one principal
// ever exists per email, because the lookup always precedes the invite.
func (e *Engine) Run(ctx context.Context, records []Record) []Result {
	results := make([]Result, len(records))

	for i, rec := range records {
		results[i] = e.invite(ctx, rec)
	}

	for i := range results {
		if results[i].Invitation == StatusFailed {
			results[i].Tagging = StatusSkipped
			continue
		}
		e.tag(ctx, &results[i])
	}

	return results
}

func (e *Engine) invite(ctx context.Context, rec Record) Result {
	res := Result{Record: rec}

	existing, err := e.api.GetUserByEmail(ctx, rec.Email)
	switch {
	case err == nil:
		log.Info().Str("email", rec.Email).Str("user_id", existing.ID).Msg("Guest already exists, skipping invitation")
		res.Invitation = StatusAlreadyExists
		res.UserID = existing.ID
		return res
	case !errors.Is(err, apierror.ErrNotFound):
		log.Error().Err(err).Str("email", rec.Email).Msg("Guest lookup failed")
		res.Invitation = StatusFailed
		res.Err = err
		return res
	}

	invited, err := e.api.InviteGuest(ctx, graph.InvitationSpec{
		InvitedUserDisplayName:  rec.DisplayName,
		InvitedUserEmailAddress: rec.Email,
		InviteRedirectURL:       e.redirectURL,
		SendInvitationMessage:   true,
	})
	if err != nil {
		log.Error().Err(err).Str("email", rec.Email).Msg("Guest invitation failed")
		res.Invitation = StatusFailed
		res.Err = err
		return res
	}

	log.Info().Str("email", rec.Email).Str("user_id", invited.ID).Msg("Guest invited")
	res.Invitation = StatusInvited
	res.UserID = invited.ID
	return res
}

// tag re-resolves the principal by email rather than trusting the id from
// the invitation pass: a fresh invitation may not have propagated into the
// query path yet, and re-resolution doubles as the visibility check.
func (e *Engine) tag(ctx context.Context, res *Result) {
	rec := res.Record

	user, err := retry.Do(ctx, e.policy, "guest propagation "+rec.Email, func() (*graph.User, error) {
		u, err := e.api.GetUserByEmail(ctx, rec.Email)
		if errors.Is(err, apierror.ErrNotFound) {
			return nil, &apierror.Transient{Operation: "get user " + rec.Email, Err: err}
		}
		return u, err
	})
	if err != nil {
		log.Warn().Err(err).Str("email", rec.Email).Msg("Guest not resolvable after retries")
		res.Tagging = StatusNotFound
		res.Err = err
		return
	}
	res.UserID = user.ID

	if user.EmployeeID == rec.EmployeeTag {
		log.Debug().Str("email", rec.Email).Str("tag", rec.EmployeeTag).Msg("Employee tag already correct")
		res.Tagging = StatusAlreadyCorrect
		return
	}

	if err := e.api.UpdateEmployeeID(ctx, user.ID, rec.EmployeeTag); err != nil {
		log.Error().Err(err).Str("email", rec.Email).Msg("Employee tag update failed")
		res.Tagging = StatusUpdateFailed
		res.Err = err
		return
	}

	// Read back to confirm the write landed before reporting success.
	confirmed, err := e.api.GetUserByEmail(ctx, rec.Email)
	if err != nil || confirmed.EmployeeID != rec.EmployeeTag {
		if err == nil {
			err = fmt.Errorf("employee tag read-back returned %q, want %q", confirmed.EmployeeID, rec.EmployeeTag)
		}
		log.Warn().Err(err).Str("email", rec.Email).Msg("Employee tag update not confirmed")
		res.Tagging = StatusUpdateFailed
		res.Err = err
		return
	}

	log.Info().Str("email", rec.Email).Str("tag", rec.EmployeeTag).Msg("Employee tag updated")
	res.Tagging = StatusUpdated
}

// Summary aggregates results for the end-of-run report.
type Summary struct {
	Invited, Existing, Failed int
}

// Summarize counts invitation outcomes.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		switch r.Invitation {
		case StatusInvited:
			s.Invited++
		case StatusAlreadyExists:
			s.Existing++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}
