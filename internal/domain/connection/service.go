package connection

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/buddyspace/buddyspace-api/internal/domain/user"
)

// Directory resolves user identities. Implemented by the cached user
// repository; the engine never creates or mutates users.
type Directory interface {
	GetByUsername(ctx context.Context, username string) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// Event describes a connection state change delivered to the other party
type Event struct {
	Type   string `json:"type"`
	Actor  string `json:"actor"`
	Status Status `json:"status"`
}

// Publisher delivers connection events to a user. A nil Publisher
// disables delivery.
type Publisher interface {
	Publish(target string, evt Event)
}

// Service owns the connection state machine and the role-aware queries
type Service struct {
	repo      Repository
	directory Directory
	events    Publisher
}

// NewService creates connection service
func NewService(repo Repository, directory Directory, events Publisher) *Service {
	return &Service{repo: repo, directory: directory, events: events}
}

// Request creates or revives the pair and puts it into REQUESTED with
// the actor recorded as requester. Repeating a pending request is a
// no-op overwrite, not an error.
func (s *Service) Request(ctx context.Context, actor, target string) (*InfoResponse, error) {
	me, other, err := s.resolvePair(ctx, actor, target)
	if err != nil {
		return nil, err
	}

	conn, err := s.locate(ctx, me.ID, other.ID)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		// First request between these two: the actor takes the first slot
		conn = &Connection{
			UserID:       me.ID,
			ConnectionID: other.ID,
			CreatedAt:    time.Now(),
		}
	}

	conn.MarkRequested(me.Username)
	if err := s.repo.Save(ctx, conn); err != nil {
		return nil, err
	}

	s.notify(other.Username, "connection.requested", me.Username, conn.Status)
	return s.project(ctx, conn, me), nil
}

// Accept moves a located pair into ACCEPTED
func (s *Service) Accept(ctx context.Context, actor, target string) (*InfoResponse, error) {
	return s.transition(ctx, actor, target, "connection.accepted", func(c *Connection, _ string) {
		c.MarkAccepted()
	})
}

// Reject moves a located pair into REJECTED
func (s *Service) Reject(ctx context.Context, actor, target string) (*InfoResponse, error) {
	return s.transition(ctx, actor, target, "connection.rejected", func(c *Connection, _ string) {
		c.MarkRejected()
	})
}

// Block moves a located pair into BLOCKED with the actor as blocker
func (s *Service) Block(ctx context.Context, actor, target string) (*InfoResponse, error) {
	return s.transition(ctx, actor, target, "connection.blocked", func(c *Connection, by string) {
		c.MarkBlocked(by)
	})
}

// Unblock moves a located pair into UNBLOCKED
func (s *Service) Unblock(ctx context.Context, actor, target string) (*InfoResponse, error) {
	return s.transition(ctx, actor, target, "connection.unblocked", func(c *Connection, _ string) {
		c.MarkUnblocked()
	})
}

// ListIncomingRequests returns pending requests sent to the actor by
// others: rows the actor requested are excluded.
func (s *Service) ListIncomingRequests(ctx context.Context, actor string, page, size int) ([]*InfoResponse, error) {
	return s.listByStatus(ctx, actor, StatusRequested, page, size, func(info *InfoResponse) bool {
		return info.RequestedBy != actor
	})
}

// ListBlocked returns the connections the actor has blocked. Blocks
// issued by the other side are invisible to the actor.
func (s *Service) ListBlocked(ctx context.Context, actor string, page, size int) ([]*InfoResponse, error) {
	return s.listByStatus(ctx, actor, StatusBlocked, page, size, func(info *InfoResponse) bool {
		return info.BlockedBy == actor
	})
}

// ListAccepted returns the actor's established connections.
func (s *Service) ListAccepted(ctx context.Context, actor string, page, size int) ([]*InfoResponse, error) {
	return s.listByStatus(ctx, actor, StatusAccepted, page, size, func(info *InfoResponse) bool {
		// requested_by is cleared on acceptance, so this only excludes
		// rows written before that clearing existed.
		return info.RequestedBy != actor
	})
}

// ListSuggestions returns pairs in a revivable state (UNBLOCKED, NEW,
// REJECTED) as candidates for a new request. Unranked.
func (s *Service) ListSuggestions(ctx context.Context, actor string, page, size int) ([]*InfoResponse, error) {
	me, err := s.directory.GetByUsername(ctx, actor)
	if err != nil {
		return nil, err
	}

	rows, err := s.fanOut(ctx,
		func(gctx context.Context) ([]*Connection, error) { return s.repo.FindAllByUser(gctx, me.ID) },
		func(gctx context.Context) ([]*Connection, error) { return s.repo.FindAllByConnection(gctx, me.ID) },
	)
	if err != nil {
		return nil, err
	}

	revivable := make(map[Status]bool)
	for _, st := range SuggestionStatuses() {
		revivable[st] = true
	}

	out := make([]*InfoResponse, 0, len(rows))
	for _, c := range rows {
		if !revivable[c.Status] {
			continue
		}
		out = append(out, s.project(ctx, c, me))
	}
	return paginate(out, page, size), nil
}

// resolvePair resolves both usernames and rejects self-pairs
func (s *Service) resolvePair(ctx context.Context, actor, target string) (*user.User, *user.User, error) {
	if actor == target {
		return nil, nil, ErrSelfConnection
	}
	me, err := s.directory.GetByUsername(ctx, actor)
	if err != nil {
		return nil, nil, err
	}
	other, err := s.directory.GetByUsername(ctx, target)
	if err != nil {
		return nil, nil, err
	}
	return me, other, nil
}

// locate finds the single row for the unordered pair {a, b}, probing
// orientation (a,b) first and (b,a) second.
func (s *Service) locate(ctx context.Context, a, b uuid.UUID) (*Connection, error) {
	conn, err := s.repo.FindByPair(ctx, a, b)
	if err != nil || conn != nil {
		return conn, err
	}
	return s.repo.FindByPair(ctx, b, a)
}

// canResolve reports whether the actor may apply a transition to the
// located pair. Today any participant may: either side can accept,
// reject or block. Tightening to requestee-only semantics is a change
// here and nowhere else.
func canResolve(_ *Connection, _ *user.User) bool {
	return true
}

func (s *Service) transition(ctx context.Context, actor, target, eventType string, apply func(c *Connection, actor string)) (*InfoResponse, error) {
	me, other, err := s.resolvePair(ctx, actor, target)
	if err != nil {
		return nil, err
	}

	conn, err := s.locate(ctx, me.ID, other.ID)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, ErrConnectionNotFound
	}
	if !canResolve(conn, me) {
		return nil, ErrNotParticipant
	}

	apply(conn, me.Username)
	if err := s.repo.Save(ctx, conn); err != nil {
		return nil, err
	}

	s.notify(other.Username, eventType, me.Username, conn.Status)
	return s.project(ctx, conn, me), nil
}

// listByStatus fetches the rows touching the caller from both storage
// slots, projects them against the caller and applies the role filter
// before paginating. The two slot reads are independent and run
// concurrently; the slotA subset always precedes the slotB subset.
func (s *Service) listByStatus(ctx context.Context, actor string, status Status, page, size int, keep func(*InfoResponse) bool) ([]*InfoResponse, error) {
	me, err := s.directory.GetByUsername(ctx, actor)
	if err != nil {
		return nil, err
	}

	rows, err := s.fanOut(ctx,
		func(gctx context.Context) ([]*Connection, error) {
			return s.repo.FindAllByUserAndStatus(gctx, me.ID, status)
		},
		func(gctx context.Context) ([]*Connection, error) {
			return s.repo.FindAllByConnectionAndStatus(gctx, me.ID, status)
		},
	)
	if err != nil {
		return nil, err
	}

	out := make([]*InfoResponse, 0, len(rows))
	for _, c := range rows {
		info := s.project(ctx, c, me)
		if keep == nil || keep(info) {
			out = append(out, info)
		}
	}
	return paginate(out, page, size), nil
}

// fanOut runs the two slot queries concurrently and concatenates the
// results, slotA subset first.
func (s *Service) fanOut(ctx context.Context, asUser, asConnection func(context.Context) ([]*Connection, error)) ([]*Connection, error) {
	var first, second []*Connection

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		first, err = asUser(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		second, err = asConnection(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return append(first, second...), nil
}

// project builds the caller-relative view of a row: the caller's slot
// becomes "user" and the opposite slot "connection".
func (s *Service) project(ctx context.Context, c *Connection, caller *user.User) *InfoResponse {
	otherID := c.OtherSide(caller.ID)

	var otherInfo *user.InfoResponse
	other, err := s.directory.GetByID(ctx, otherID)
	if err != nil {
		// Profile gone or directory hiccup: keep the row visible with
		// minimal data rather than failing the whole listing.
		log.Warn().Err(err).Str("user_id", otherID.String()).Msg("Failed to resolve connection profile")
		otherInfo = &user.InfoResponse{ID: otherID}
	} else {
		otherInfo = user.InfoFromEntity(other)
	}

	return &InfoResponse{
		User:        user.InfoFromEntity(caller),
		Connection:  otherInfo,
		Status:      c.Status,
		RequestedBy: c.RequestedBy.String,
		BlockedBy:   c.BlockedBy.String,
	}
}

func (s *Service) notify(target, eventType, actor string, status Status) {
	if s.events == nil {
		return
	}
	s.events.Publish(target, Event{Type: eventType, Actor: actor, Status: status})
}

// paginate applies 1-based page/size slicing. A page past the end is an
// empty result, not an error.
func paginate(items []*InfoResponse, page, size int) []*InfoResponse {
	start := (page - 1) * size
	if start >= len(items) {
		return []*InfoResponse{}
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
