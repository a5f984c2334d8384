package guests

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mspkit/delegate/internal/apierror"
	"github.com/mspkit/delegate/internal/graph"
	"github.com/mspkit/delegate/internal/retry"
)

// fakeDirectory is an in-memory user store with tunable invitation
// propagation lag.
type fakeDirectory struct {
	users map[string]*graph.User // keyed by email

	// propagationLag hides freshly invited users from lookups for the
	// first n attempts per email.
	propagationLag int
	lag            map[string]int

	invites     int
	failInvites map[string]bool
	failUpdates map[string]bool
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		users:       map[string]*graph.User{},
		lag:         map[string]int{},
		failInvites: map[string]bool{},
		failUpdates: map[string]bool{},
	}
}

func (f *fakeDirectory) GetUserByEmail(ctx context.Context, email string) (*graph.User, error) {
	u, ok := f.users[email]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", email, apierror.ErrNotFound)
	}
	if f.lag[email] > 0 {
		f.lag[email]--
		return nil, fmt.Errorf("user %s: %w", email, apierror.ErrNotFound)
	}
	copy := *u
	return &copy, nil
}

func (f *fakeDirectory) InviteGuest(ctx context.Context, spec graph.InvitationSpec) (*graph.User, error) {
	if f.failInvites[spec.InvitedUserEmailAddress] {
		return nil, &apierror.Transient{Operation: "invite", Err: fmt.Errorf("invitation service unavailable")}
	}
	f.invites++
	u := &graph.User{
		ID:          fmt.Sprintf("u-%d", len(f.users)+1),
		DisplayName: spec.InvitedUserDisplayName,
		Mail:        spec.InvitedUserEmailAddress,
		UserType:    "Guest",
	}
	f.users[spec.InvitedUserEmailAddress] = u
	f.lag[spec.InvitedUserEmailAddress] = f.propagationLag
	return u, nil
}

func (f *fakeDirectory) UpdateEmployeeID(ctx context.Context, userID, employeeID string) error {
	for _, u := range f.users {
		if u.ID == userID {
			if f.failUpdates[u.Mail] {
				return &apierror.Transient{Operation: "update", Err: fmt.Errorf("write rejected")}
			}
			u.EmployeeID = employeeID
			return nil
		}
	}
	return fmt.Errorf("user %s: %w", userID, apierror.ErrNotFound)
}

func fastEngine(dir DirectoryAPI) *Engine {
	return NewEngine(dir, retry.Policy{Attempts: 4, Delay: time.Millisecond}, "")
}

func guestList() []Record {
	return []Record{
		{DisplayName: "Alice", Email: "alice@example.com", EmployeeTag: "MSP-001"},
		{DisplayName: "Bob", Email: "bob@example.com", EmployeeTag: "MSP-001"},
	}
}

func TestRunFreshEnvironment(t *testing.T) {
	dir := newFakeDirectory()
	dir.propagationLag = 2 // invited guests take a few lookups to appear

	results := fastEngine(dir).Run(context.Background(), guestList())
	require.Len(t, results, 2)

	for _, r := range results {
		require.Equal(t, StatusInvited, r.Invitation)
		require.Equal(t, StatusUpdated, r.Tagging)
		require.False(t, r.Failed())
	}

	s := Summarize(results)
	require.Equal(t, Summary{Invited: 2}, s)

	for _, u := range dir.users {
		require.Equal(t, "MSP-001", u.EmployeeID, "tagging must converge on the target value")
	}
}

func TestRunFullRerun(t *testing.T) {
	dir := newFakeDirectory()
	engine := fastEngine(dir)

	first := engine.Run(context.Background(), guestList())
	require.Equal(t, Summary{Invited: 2}, Summarize(first))

	second := engine.Run(context.Background(), guestList())
	for _, r := range second {
		require.Equal(t, StatusAlreadyExists, r.Invitation, "existing emails must never be re-invited")
		require.Equal(t, StatusAlreadyCorrect, r.Tagging)
	}
	require.Equal(t, 2, dir.invites, "rerun must not issue new invitations")
}

func TestRunPartialFailureIsolated(t *testing.T) {
	dir := newFakeDirectory()
	dir.failInvites["bob@example.com"] = true

	records := append(guestList(), Record{DisplayName: "Carol", Email: "carol@example.com", EmployeeTag: "MSP-001"})
	results := fastEngine(dir).Run(context.Background(), records)

	byEmail := map[string]Result{}
	for _, r := range results {
		byEmail[r.Record.Email] = r
	}

	require.Equal(t, StatusFailed, byEmail["bob@example.com"].Invitation)
	require.Equal(t, StatusSkipped, byEmail["bob@example.com"].Tagging)

	// Sibling records complete both passes.
	require.Equal(t, StatusInvited, byEmail["alice@example.com"].Invitation)
	require.Equal(t, StatusUpdated, byEmail["alice@example.com"].Tagging)
	require.Equal(t, StatusUpdated, byEmail["carol@example.com"].Tagging)

	s := Summarize(results)
	require.Equal(t, Summary{Invited: 2, Failed: 1}, s)
}

func TestRunNotFoundAfterRetryBudget(t *testing.T) {
	dir := newFakeDirectory()
	dir.propagationLag = 100 // never becomes visible within the budget

	results := fastEngine(dir).Run(context.Background(), guestList()[:1])
	require.Equal(t, StatusInvited, results[0].Invitation)
	require.Equal(t, StatusNotFound, results[0].Tagging)
	require.True(t, results[0].Failed())
}

func TestRunUpdateFailureConfirmed(t *testing.T) {
	dir := newFakeDirectory()
	dir.users["alice@example.com"] = &graph.User{ID: "u-1", Mail: "alice@example.com", EmployeeID: "OLD"}
	dir.failUpdates["alice@example.com"] = true

	results := fastEngine(dir).Run(context.Background(), guestList()[:1])
	require.Equal(t, StatusAlreadyExists, results[0].Invitation)
	require.Equal(t, StatusUpdateFailed, results[0].Tagging, "a failed write must never be reported as success")
}

func TestRunExistingUserStillTagged(t *testing.T) {
	dir := newFakeDirectory()
	dir.users["alice@example.com"] = &graph.User{ID: "u-1", Mail: "alice@example.com", EmployeeID: ""}

	results := fastEngine(dir).Run(context.Background(), guestList()[:1])
	require.Equal(t, StatusAlreadyExists, results[0].Invitation)
	require.Equal(t, StatusUpdated, results[0].Tagging, "existing principals still get the attribute pass")
	require.Equal(t, "u-1", results[0].UserID)
}
