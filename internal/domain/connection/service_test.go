package connection

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/buddyspace/buddyspace-api/internal/domain/user"
)

// fakeRepo keeps rows in insertion order so listings are deterministic
type fakeRepo struct {
	rows []*Connection
}

func (r *fakeRepo) FindByPair(_ context.Context, userID, connectionID uuid.UUID) (*Connection, error) {
	for _, row := range r.rows {
		if row.UserID == userID && row.ConnectionID == connectionID {
			cp := *row
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) FindAllByUserAndStatus(_ context.Context, userID uuid.UUID, status Status) ([]*Connection, error) {
	var out []*Connection
	for _, row := range r.rows {
		if row.UserID == userID && row.Status == status {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeRepo) FindAllByConnectionAndStatus(_ context.Context, connectionID uuid.UUID, status Status) ([]*Connection, error) {
	var out []*Connection
	for _, row := range r.rows {
		if row.ConnectionID == connectionID && row.Status == status {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeRepo) FindAllByUser(_ context.Context, userID uuid.UUID) ([]*Connection, error) {
	var out []*Connection
	for _, row := range r.rows {
		if row.UserID == userID {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeRepo) FindAllByConnection(_ context.Context, connectionID uuid.UUID) ([]*Connection, error) {
	var out []*Connection
	for _, row := range r.rows {
		if row.ConnectionID == connectionID {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeRepo) Save(_ context.Context, conn *Connection) error {
	for i, row := range r.rows {
		if row.UserID == conn.UserID && row.ConnectionID == conn.ConnectionID {
			cp := *conn
			r.rows[i] = &cp
			return nil
		}
	}
	cp := *conn
	r.rows = append(r.rows, &cp)
	return nil
}

type fakeDirectory struct {
	byName map[string]*user.User
	byID   map[uuid.UUID]*user.User
}

func newFakeDirectory(usernames ...string) *fakeDirectory {
	d := &fakeDirectory{
		byName: make(map[string]*user.User),
		byID:   make(map[uuid.UUID]*user.User),
	}
	for _, name := range usernames {
		u := &user.User{ID: uuid.New(), Username: name}
		d.byName[name] = u
		d.byID[u.ID] = u
	}
	return d
}

func (d *fakeDirectory) GetByUsername(_ context.Context, username string) (*user.User, error) {
	u, ok := d.byName[username]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return u, nil
}

func (d *fakeDirectory) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	u, ok := d.byID[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return u, nil
}

type recordedEvent struct {
	target string
	evt    Event
}

type eventRecorder struct {
	events []recordedEvent
}

func (r *eventRecorder) Publish(target string, evt Event) {
	r.events = append(r.events, recordedEvent{target: target, evt: evt})
}

func newTestService(usernames ...string) (*Service, *fakeRepo, *fakeDirectory, *eventRecorder) {
	repo := &fakeRepo{}
	dir := newFakeDirectory(usernames...)
	rec := &eventRecorder{}
	return NewService(repo, dir, rec), repo, dir, rec
}

func TestRequestCreatesPair(t *testing.T) {
	svc, repo, dir, rec := newTestService("alice", "bob")
	ctx := context.Background()

	info, err := svc.Request(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	if info.Status != StatusRequested {
		t.Errorf("Expected status %s, got %s", StatusRequested, info.Status)
	}
	if info.RequestedBy != "alice" {
		t.Errorf("Expected requested_by alice, got %q", info.RequestedBy)
	}
	if info.User.Username != "alice" || info.Connection.Username != "bob" {
		t.Errorf("Expected projection alice->bob, got %s->%s", info.User.Username, info.Connection.Username)
	}

	if len(repo.rows) != 1 {
		t.Fatalf("Expected 1 stored row, got %d", len(repo.rows))
	}
	row := repo.rows[0]
	if row.UserID != dir.byName["alice"].ID || row.ConnectionID != dir.byName["bob"].ID {
		t.Error("Expected the requester in the first slot")
	}

	if len(rec.events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(rec.events))
	}
	if rec.events[0].target != "bob" || rec.events[0].evt.Type != "connection.requested" {
		t.Errorf("Unexpected event %+v for %s", rec.events[0].evt, rec.events[0].target)
	}
}

func TestRequestSelf(t *testing.T) {
	svc, _, _, _ := newTestService("alice")

	if _, err := svc.Request(context.Background(), "alice", "alice"); !errors.Is(err, ErrSelfConnection) {
		t.Errorf("Expected ErrSelfConnection, got %v", err)
	}
}

func TestRequestUnknownTarget(t *testing.T) {
	svc, _, _, _ := newTestService("alice")

	if _, err := svc.Request(context.Background(), "alice", "ghost"); !errors.Is(err, user.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestRequestRepeatIsIdempotent(t *testing.T) {
	svc, repo, _, _ := newTestService("alice", "bob")
	ctx := context.Background()

	if _, err := svc.Request(ctx, "alice", "bob"); err != nil {
		t.Fatalf("First request failed: %v", err)
	}
	info, err := svc.Request(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("Second request failed: %v", err)
	}

	if info.Status != StatusRequested {
		t.Errorf("Expected status %s, got %s", StatusRequested, info.Status)
	}
	if len(repo.rows) != 1 {
		t.Errorf("Expected a single row after repeat request, got %d", len(repo.rows))
	}
}

func TestRequestReusesReversedRow(t *testing.T) {
	svc, repo, dir, _ := newTestService("alice", "bob")
	ctx := context.Background()

	// Bob requested first, so bob occupies the first slot
	if _, err := svc.Request(ctx, "bob", "alice"); err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if _, err := svc.Request(ctx, "alice", "bob"); err != nil {
		t.Fatalf("Reverse request failed: %v", err)
	}

	if len(repo.rows) != 1 {
		t.Fatalf("Expected the reversed row to be reused, got %d rows", len(repo.rows))
	}
	row := repo.rows[0]
	if row.UserID != dir.byName["bob"].ID {
		t.Error("Expected slot order to be preserved on reuse")
	}
	if row.RequestedBy.String != "alice" {
		t.Errorf("Expected requested_by alice after reverse request, got %q", row.RequestedBy.String)
	}
}

func TestRequestRevivesRejected(t *testing.T) {
	svc, _, _, _ := newTestService("alice", "bob")
	ctx := context.Background()

	if _, err := svc.Request(ctx, "alice", "bob"); err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if _, err := svc.Reject(ctx, "bob", "alice"); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}

	info, err := svc.Request(ctx, "bob", "alice")
	if err != nil {
		t.Fatalf("Revival request failed: %v", err)
	}
	if info.Status != StatusRequested {
		t.Errorf("Expected status %s after revival, got %s", StatusRequested, info.Status)
	}
	if info.RequestedBy != "bob" {
		t.Errorf("Expected requested_by bob after revival, got %q", info.RequestedBy)
	}
}

func TestAcceptClearsRequestedBy(t *testing.T) {
	svc, repo, _, _ := newTestService("alice", "bob")
	ctx := context.Background()

	if _, err := svc.Request(ctx, "alice", "bob"); err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	info, err := svc.Accept(ctx, "bob", "alice")
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	if info.Status != StatusAccepted {
		t.Errorf("Expected status %s, got %s", StatusAccepted, info.Status)
	}
	if info.RequestedBy != "" {
		t.Errorf("Expected requested_by cleared, got %q", info.RequestedBy)
	}
	if repo.rows[0].RequestedBy.Valid {
		t.Error("Expected requested_by NULL in storage after accept")
	}
}

func TestTransitionWithoutRow(t *testing.T) {
	svc, _, _, _ := newTestService("alice", "bob")
	ctx := context.Background()

	if _, err := svc.Accept(ctx, "bob", "alice"); !errors.Is(err, ErrConnectionNotFound) {
		t.Errorf("Expected ErrConnectionNotFound from Accept, got %v", err)
	}
	if _, err := svc.Block(ctx, "bob", "alice"); !errors.Is(err, ErrConnectionNotFound) {
		t.Errorf("Expected ErrConnectionNotFound from Block, got %v", err)
	}
}

func TestBlockRecordsBlocker(t *testing.T) {
	svc, repo, _, _ := newTestService("alice", "bob")
	ctx := context.Background()

	if _, err := svc.Request(ctx, "alice", "bob"); err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	info, err := svc.Block(ctx, "bob", "alice")
	if err != nil {
		t.Fatalf("Block failed: %v", err)
	}

	if info.Status != StatusBlocked {
		t.Errorf("Expected status %s, got %s", StatusBlocked, info.Status)
	}
	if info.BlockedBy != "bob" {
		t.Errorf("Expected blocked_by bob, got %q", info.BlockedBy)
	}
	if repo.rows[0].RequestedBy.Valid {
		t.Error("Expected requested_by cleared by block")
	}
}

func TestUnblockClearsBlocker(t *testing.T) {
	svc, _, _, _ := newTestService("alice", "bob")
	ctx := context.Background()

	if _, err := svc.Request(ctx, "alice", "bob"); err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if _, err := svc.Block(ctx, "bob", "alice"); err != nil {
		t.Fatalf("Block failed: %v", err)
	}

	info, err := svc.Unblock(ctx, "bob", "alice")
	if err != nil {
		t.Fatalf("Unblock failed: %v", err)
	}
	if info.Status != StatusUnblocked {
		t.Errorf("Expected status %s, got %s", StatusUnblocked, info.Status)
	}
	if info.BlockedBy != "" {
		t.Errorf("Expected blocked_by cleared, got %q", info.BlockedBy)
	}
}

func TestProjectionSymmetry(t *testing.T) {
	svc, _, _, _ := newTestService("alice", "bob")
	ctx := context.Background()

	if _, err := svc.Request(ctx, "alice", "bob"); err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if _, err := svc.Accept(ctx, "bob", "alice"); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	for caller, other := range map[string]string{"alice": "bob", "bob": "alice"} {
		list, err := svc.ListAccepted(ctx, caller, 1, 10)
		if err != nil {
			t.Fatalf("ListAccepted(%s) failed: %v", caller, err)
		}
		if len(list) != 1 {
			t.Fatalf("Expected 1 accepted connection for %s, got %d", caller, len(list))
		}
		if list[0].User.Username != caller || list[0].Connection.Username != other {
			t.Errorf("Expected projection %s->%s, got %s->%s",
				caller, other, list[0].User.Username, list[0].Connection.Username)
		}
	}
}

func TestListIncomingRequests(t *testing.T) {
	svc, _, _, _ := newTestService("alice", "bob", "carol")
	ctx := context.Background()

	if _, err := svc.Request(ctx, "alice", "bob"); err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if _, err := svc.Request(ctx, "carol", "bob"); err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	// Bob sees both incoming requests
	incoming, err := svc.ListIncomingRequests(ctx, "bob", 1, 10)
	if err != nil {
		t.Fatalf("ListIncomingRequests failed: %v", err)
	}
	if len(incoming) != 2 {
		t.Fatalf("Expected 2 incoming requests for bob, got %d", len(incoming))
	}

	// Requesters see their own pending requests as outgoing, not incoming
	incoming, err = svc.ListIncomingRequests(ctx, "alice", 1, 10)
	if err != nil {
		t.Fatalf("ListIncomingRequests failed: %v", err)
	}
	if len(incoming) != 0 {
		t.Errorf("Expected no incoming requests for alice, got %d", len(incoming))
	}
}

func TestListBlockedOnlyVisibleToBlocker(t *testing.T) {
	svc, _, _, _ := newTestService("alice", "bob")
	ctx := context.Background()

	if _, err := svc.Request(ctx, "alice", "bob"); err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if _, err := svc.Block(ctx, "bob", "alice"); err != nil {
		t.Fatalf("Block failed: %v", err)
	}

	blocked, err := svc.ListBlocked(ctx, "bob", 1, 10)
	if err != nil {
		t.Fatalf("ListBlocked failed: %v", err)
	}
	if len(blocked) != 1 {
		t.Fatalf("Expected 1 blocked connection for bob, got %d", len(blocked))
	}
	if blocked[0].Connection.Username != "alice" {
		t.Errorf("Expected alice in bob's blocked list, got %s", blocked[0].Connection.Username)
	}

	blocked, err = svc.ListBlocked(ctx, "alice", 1, 10)
	if err != nil {
		t.Fatalf("ListBlocked failed: %v", err)
	}
	if len(blocked) != 0 {
		t.Errorf("Expected the block to be invisible to alice, got %d rows", len(blocked))
	}
}

func TestListSuggestions(t *testing.T) {
	svc, _, _, _ := newTestService("alice", "bob", "carol", "dave")
	ctx := context.Background()

	// alice-bob rejected: suggestible for both
	if _, err := svc.Request(ctx, "alice", "bob"); err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if _, err := svc.Reject(ctx, "bob", "alice"); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}

	// alice-carol accepted: not suggestible
	if _, err := svc.Request(ctx, "alice", "carol"); err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if _, err := svc.Accept(ctx, "carol", "alice"); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	// alice-dave unblocked: suggestible again
	if _, err := svc.Request(ctx, "dave", "alice"); err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if _, err := svc.Block(ctx, "alice", "dave"); err != nil {
		t.Fatalf("Block failed: %v", err)
	}
	if _, err := svc.Unblock(ctx, "alice", "dave"); err != nil {
		t.Fatalf("Unblock failed: %v", err)
	}

	suggestions, err := svc.ListSuggestions(ctx, "alice", 1, 10)
	if err != nil {
		t.Fatalf("ListSuggestions failed: %v", err)
	}
	if len(suggestions) != 2 {
		t.Fatalf("Expected 2 suggestions for alice, got %d", len(suggestions))
	}
	for _, s := range suggestions {
		if s.Connection.Username == "carol" {
			t.Error("Accepted connection must not appear in suggestions")
		}
	}
}

func TestPagination(t *testing.T) {
	names := []string{"alice"}
	for i := 0; i < 5; i++ {
		names = append(names, fmt.Sprintf("friend%d", i))
	}
	svc, _, _, _ := newTestService(names...)
	ctx := context.Background()

	for _, name := range names[1:] {
		if _, err := svc.Request(ctx, "alice", name); err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		if _, err := svc.Accept(ctx, name, "alice"); err != nil {
			t.Fatalf("Accept failed: %v", err)
		}
	}

	page1, err := svc.ListAccepted(ctx, "alice", 1, 2)
	if err != nil {
		t.Fatalf("ListAccepted failed: %v", err)
	}
	if len(page1) != 2 {
		t.Errorf("Expected 2 rows on page 1, got %d", len(page1))
	}

	page3, err := svc.ListAccepted(ctx, "alice", 3, 2)
	if err != nil {
		t.Fatalf("ListAccepted failed: %v", err)
	}
	if len(page3) != 1 {
		t.Errorf("Expected 1 row on the last page, got %d", len(page3))
	}

	page4, err := svc.ListAccepted(ctx, "alice", 4, 2)
	if err != nil {
		t.Fatalf("ListAccepted failed: %v", err)
	}
	if len(page4) != 0 {
		t.Errorf("Expected an empty page past the end, got %d rows", len(page4))
	}
}

func TestProjectionFallbackOnMissingProfile(t *testing.T) {
	svc, _, dir, _ := newTestService("alice", "bob")
	ctx := context.Background()

	if _, err := svc.Request(ctx, "alice", "bob"); err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if _, err := svc.Accept(ctx, "bob", "alice"); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	// Simulate a vanished profile
	bobID := dir.byName["bob"].ID
	delete(dir.byID, bobID)

	list, err := svc.ListAccepted(ctx, "alice", 1, 10)
	if err != nil {
		t.Fatalf("ListAccepted failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("Expected the row to stay visible, got %d rows", len(list))
	}
	if list[0].Connection.ID != bobID {
		t.Error("Expected the fallback projection to keep the user id")
	}
	if list[0].Connection.Username != "" {
		t.Errorf("Expected an empty username in the fallback projection, got %q", list[0].Connection.Username)
	}
}

func TestLifecycle(t *testing.T) {
	svc, _, _, rec := newTestService("alice", "bob")
	ctx := context.Background()

	if _, err := svc.Request(ctx, "alice", "bob"); err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	incoming, _ := svc.ListIncomingRequests(ctx, "bob", 1, 10)
	if len(incoming) != 1 || incoming[0].Connection.Username != "alice" {
		t.Fatal("Expected alice's request in bob's incoming list")
	}

	if _, err := svc.Accept(ctx, "bob", "alice"); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	accepted, _ := svc.ListAccepted(ctx, "alice", 1, 10)
	if len(accepted) != 1 {
		t.Fatal("Expected bob in alice's accepted list")
	}

	if _, err := svc.Block(ctx, "bob", "alice"); err != nil {
		t.Fatalf("Block failed: %v", err)
	}

	blocked, _ := svc.ListBlocked(ctx, "bob", 1, 10)
	if len(blocked) != 1 {
		t.Fatal("Expected alice in bob's blocked list")
	}
	accepted, _ = svc.ListAccepted(ctx, "alice", 1, 10)
	if len(accepted) != 0 {
		t.Fatal("Expected alice's accepted list to be empty after the block")
	}

	if _, err := svc.Unblock(ctx, "bob", "alice"); err != nil {
		t.Fatalf("Unblock failed: %v", err)
	}

	suggestions, _ := svc.ListSuggestions(ctx, "alice", 1, 10)
	if len(suggestions) != 1 || suggestions[0].Connection.Username != "bob" {
		t.Fatal("Expected bob back in alice's suggestions after unblock")
	}

	if _, err := svc.Request(ctx, "bob", "alice"); err != nil {
		t.Fatalf("Re-request after unblock failed: %v", err)
	}

	want := []string{
		"connection.requested",
		"connection.accepted",
		"connection.blocked",
		"connection.unblocked",
		"connection.requested",
	}
	if len(rec.events) != len(want) {
		t.Fatalf("Expected %d events, got %d", len(want), len(rec.events))
	}
	for i, typ := range want {
		if rec.events[i].evt.Type != typ {
			t.Errorf("Event %d: expected %s, got %s", i, typ, rec.events[i].evt.Type)
		}
	}
}
