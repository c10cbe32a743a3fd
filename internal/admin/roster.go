// Package admin drives the administrator dashboard: the user roster with
// per-user action lifecycles, the activity feed and platform-wide counters.
// A row's Active flag is never flipped locally; every successful action is
// followed by a full roster reload so the display always matches the server.
package admin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/proofback/proofback-cli/internal/constants"
	"github.com/proofback/proofback-cli/internal/events"
	"github.com/proofback/proofback-cli/internal/models"
)

var (
	// ErrActionInFlight - the user row already has a toggle or delete
	// running; the second action is rejected rather than interleaved.
	ErrActionInFlight = errors.New("an action is already running for this user")

	// ErrNotConfirmed - destructive actions require explicit confirmation.
	ErrNotConfirmed = errors.New("action requires confirmation")
)

// ActionState is the per-user lifecycle shown on a roster row.
type ActionState string

const (
	ActionNone     ActionState = "none"
	ActionToggling ActionState = "toggling"
	ActionDeleting ActionState = "deleting"
	ActionError    ActionState = "error"
)

// Service is the slice of the API client the controller needs.
type Service interface {
	GetAdminStats(ctx context.Context) (*models.AdminStats, error)
	ListUsers(ctx context.Context) ([]models.PlatformUser, error)
	ListActivity(ctx context.Context) ([]models.ActivityEntry, error)
	ToggleUserActive(ctx context.Context, userID string) (*models.PlatformUser, error)
	DeleteUser(ctx context.Context, userID string) error
}

// rowState tracks one user's in-flight action and its revert timer.
type rowState struct {
	state   ActionState
	message string
	timer   *time.Timer
}

// Controller holds the dashboard snapshot.
type Controller struct {
	svc      Service
	eventBus *events.EventBus

	mu       sync.Mutex
	users    []models.PlatformUser
	activity []models.ActivityEntry
	stats    *models.AdminStats
	rows     map[string]*rowState

	clearDelay time.Duration
}

// NewController creates an empty controller; call Refresh before reading.
func NewController(svc Service, bus *events.EventBus) *Controller {
	return &Controller{
		svc:        svc,
		eventBus:   bus,
		rows:       make(map[string]*rowState),
		clearDelay: constants.StatusClearDelay,
	}
}

// Refresh fetches users, activity and stats. All three must succeed; on any
// failure the previous snapshot is kept whole rather than applied partially.
func (c *Controller) Refresh(ctx context.Context) error {
	users, err := c.svc.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to load user roster: %w", err)
	}
	activity, err := c.svc.ListActivity(ctx)
	if err != nil {
		return fmt.Errorf("failed to load activity feed: %w", err)
	}
	stats, err := c.svc.GetAdminStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to load admin statistics: %w", err)
	}

	c.mu.Lock()
	c.users = users
	c.activity = activity
	c.stats = stats
	c.mu.Unlock()

	if c.eventBus != nil {
		c.eventBus.Publish(&events.RosterEvent{
			BaseEvent: events.BaseEvent{EventType: events.EventRosterRefreshed, Time: time.Now()},
			UserCount: len(users),
		})
	}
	return nil
}

// Users returns a copy of the roster.
func (c *Controller) Users() []models.PlatformUser {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.PlatformUser, len(c.users))
	copy(out, c.users)
	return out
}

// Activity returns a copy of the activity feed, newest first.
func (c *Controller) Activity() []models.ActivityEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.ActivityEntry, len(c.activity))
	copy(out, c.activity)
	return out
}

// Stats returns the last fetched counters, or nil before the first refresh.
func (c *Controller) Stats() *models.AdminStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// ActionStateOf returns a user's action state and error message.
func (c *Controller) ActionStateOf(userID string) (ActionState, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if row, ok := c.rows[userID]; ok {
		return row.state, row.message
	}
	return ActionNone, ""
}

// ToggleActive flips a user's active flag on the server and reloads the
// whole dashboard. The flag is never changed locally first.
func (c *Controller) ToggleActive(ctx context.Context, userID string) error {
	return c.act(ctx, userID, ActionToggling, func(ctx context.Context) error {
		_, err := c.svc.ToggleUserActive(ctx, userID)
		return err
	})
}

// DeleteUser removes a user and all their data. confirmed must be true or no
// request is issued at all.
func (c *Controller) DeleteUser(ctx context.Context, userID string, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	return c.act(ctx, userID, ActionDeleting, func(ctx context.Context) error {
		return c.svc.DeleteUser(ctx, userID)
	})
}

// act runs one per-user action with the in-flight guard and the settle
// protocol. Actions on different users never block each other.
func (c *Controller) act(ctx context.Context, userID string, state ActionState, do func(context.Context) error) error {
	c.mu.Lock()
	row, ok := c.rows[userID]
	if !ok {
		row = &rowState{state: ActionNone}
		c.rows[userID] = row
	}
	if row.state == ActionToggling || row.state == ActionDeleting {
		c.mu.Unlock()
		return fmt.Errorf("user %s: %w", userID, ErrActionInFlight)
	}
	if row.timer != nil {
		row.timer.Stop()
		row.timer = nil
	}
	row.state = state
	row.message = ""
	c.mu.Unlock()
	c.publishRow(userID, state, "")

	if err := do(ctx); err != nil {
		c.setRow(userID, ActionError, err.Error())
		c.scheduleRevert(userID)
		return err
	}

	// Success clears the row before the reload so a refresh failure cannot
	// leave a finished action looking stuck.
	c.setRow(userID, ActionNone, "")
	if err := c.Refresh(ctx); err != nil {
		return err
	}
	return nil
}

func (c *Controller) setRow(userID string, state ActionState, message string) {
	c.mu.Lock()
	row, ok := c.rows[userID]
	if !ok {
		row = &rowState{}
		c.rows[userID] = row
	}
	if row.timer != nil {
		row.timer.Stop()
		row.timer = nil
	}
	row.state = state
	row.message = message
	c.mu.Unlock()
	c.publishRow(userID, state, message)
}

// scheduleRevert arms the error auto-revert back to none. The timer is tied
// to the state that armed it: a newer action stops it, and a fired timer
// checks it still owns the row.
func (c *Controller) scheduleRevert(userID string) {
	c.mu.Lock()
	row := c.rows[userID]
	var armed *time.Timer
	armed = time.AfterFunc(c.clearDelay, func() {
		c.mu.Lock()
		cur, ok := c.rows[userID]
		if !ok || cur.timer != armed {
			c.mu.Unlock()
			return
		}
		cur.state = ActionNone
		cur.message = ""
		cur.timer = nil
		c.mu.Unlock()
		c.publishRow(userID, ActionNone, "")
	})
	row.timer = armed
	c.mu.Unlock()
}

func (c *Controller) publishRow(userID string, state ActionState, message string) {
	if c.eventBus != nil {
		c.eventBus.PublishUserAction(userID, string(state), message)
	}
}
