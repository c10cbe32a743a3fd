// Package settings manages the platform configuration entries: typed
// parsing, per-key save lifecycle and category grouping. The server value is
// always authoritative; every successful mutation triggers a full reload.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/proofback/proofback-cli/internal/constants"
	"github.com/proofback/proofback-cli/internal/events"
	"github.com/proofback/proofback-cli/internal/models"
)

// Local validation errors. These never reach the network.
var (
	ErrInvalidFormat = errors.New("value does not match the setting's type")
	ErrNotEditable   = errors.New("setting is read-only")
	ErrUnknownKey    = errors.New("unknown setting key")
)

// SaveState is the per-key mutation lifecycle shown next to a setting.
type SaveState string

const (
	SaveIdle    SaveState = "idle"
	SaveSaving  SaveState = "saving"
	SaveSuccess SaveState = "success"
	SaveError   SaveState = "error"
)

// Service is the slice of the API client the store needs.
type Service interface {
	ListSettings(ctx context.Context) ([]models.SettingEntry, error)
	UpdateSetting(ctx context.Context, key string, value json.RawMessage) (*models.SettingEntry, error)
	ResetSetting(ctx context.Context, key string) (*models.SettingEntry, error)
}

// keyState pairs a save state with its auto-clear timer. A newer action on
// the same key stops the stale timer so an old clear cannot wipe a fresh
// state.
type keyState struct {
	state   SaveState
	message string
	timer   *time.Timer
}

// Store holds the settings snapshot and per-key save states.
type Store struct {
	svc      Service
	eventBus *events.EventBus

	mu             sync.Mutex
	entries        map[string]models.SettingEntry
	byCategory     map[models.SettingCategory][]string // key order within category
	categories     []models.SettingCategory            // populated categories, canonical order
	activeCategory models.SettingCategory
	states         map[string]*keyState

	clearDelay time.Duration
}

// NewStore creates an empty store; call Load before reading.
func NewStore(svc Service, bus *events.EventBus) *Store {
	return &Store{
		svc:        svc,
		eventBus:   bus,
		entries:    make(map[string]models.SettingEntry),
		states:     make(map[string]*keyState),
		clearDelay: constants.StatusClearDelay,
	}
}

// Load fetches all settings and rebuilds the category grouping. The first
// populated category becomes active if the current selection disappears.
func (s *Store) Load(ctx context.Context) error {
	entries, err := s.svc.ListSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]models.SettingEntry, len(entries))
	s.byCategory = make(map[models.SettingCategory][]string)
	for _, e := range entries {
		s.entries[e.Key] = e
		s.byCategory[e.Category] = append(s.byCategory[e.Category], e.Key)
	}

	s.categories = s.categories[:0]
	for _, c := range models.SettingCategories {
		if len(s.byCategory[c]) > 0 {
			s.categories = append(s.categories, c)
		}
	}
	// Categories the canonical list does not know about still get shown.
	for _, e := range entries {
		if !e.Category.Valid() && !containsCategory(s.categories, e.Category) {
			s.categories = append(s.categories, e.Category)
		}
	}

	if len(s.categories) > 0 && !containsCategory(s.categories, s.activeCategory) {
		s.activeCategory = s.categories[0]
	}
	return nil
}

func containsCategory(list []models.SettingCategory, c models.SettingCategory) bool {
	for _, x := range list {
		if x == c {
			return true
		}
	}
	return false
}

// Categories returns the populated categories in display order.
func (s *Store) Categories() []models.SettingCategory {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.SettingCategory, len(s.categories))
	copy(out, s.categories)
	return out
}

// ActiveCategory returns the selected category.
func (s *Store) ActiveCategory() models.SettingCategory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeCategory
}

// SetActiveCategory selects a category; unknown categories are ignored.
func (s *Store) SetActiveCategory(c models.SettingCategory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if containsCategory(s.categories, c) {
		s.activeCategory = c
	}
}

// Entries returns the entries of one category in server order.
func (s *Store) Entries(c models.SettingCategory) []models.SettingEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := s.byCategory[c]
	out := make([]models.SettingEntry, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.entries[k])
	}
	return out
}

// Get returns one entry by key.
func (s *Store) Get(key string) (models.SettingEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	return e, ok
}

// SaveStateOf returns the current save state and error message for a key.
func (s *Store) SaveStateOf(key string) (SaveState, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ks, ok := s.states[key]; ok {
		return ks.state, ks.message
	}
	return SaveIdle, ""
}

// ShouldCommit reports whether an edited raw value warrants a server write.
// Numbers and strings commit only when the parsed value differs; booleans
// always commit (a toggle is intentional); JSON commits only when valid and
// structurally different. Malformed input returns ErrInvalidFormat without
// any request.
func (s *Store) ShouldCommit(key, raw string) (bool, error) {
	s.mu.Lock()
	entry, ok := s.entries[key]
	s.mu.Unlock()
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if !entry.Editable {
		return false, fmt.Errorf("%w: %s", ErrNotEditable, key)
	}

	value, err := models.ParseSettingValue(entry.Type, raw)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	if entry.Type == models.SettingBoolean {
		return true, nil
	}
	return !models.SettingValuesEqual(entry.Type, entry.Value, value), nil
}

// Update validates raw against the key's declared type and writes it. The
// key moves through saving → success|error; success and error both clear
// back to idle after the settle delay unless a newer action replaces them.
func (s *Store) Update(ctx context.Context, key, raw string) error {
	s.mu.Lock()
	entry, ok := s.entries[key]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if !entry.Editable {
		return fmt.Errorf("%w: %s", ErrNotEditable, key)
	}

	value, err := models.ParseSettingValue(entry.Type, raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	return s.mutate(ctx, key, func(ctx context.Context) error {
		_, err := s.svc.UpdateSetting(ctx, key, value)
		return err
	})
}

// Reset restores a key to its server-side default via the same lifecycle.
func (s *Store) Reset(ctx context.Context, key string) error {
	s.mu.Lock()
	entry, ok := s.entries[key]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if !entry.Editable {
		return fmt.Errorf("%w: %s", ErrNotEditable, key)
	}

	return s.mutate(ctx, key, func(ctx context.Context) error {
		_, err := s.svc.ResetSetting(ctx, key)
		return err
	})
}

// mutate runs one server write for a key with the full save-state protocol.
// The server copy is authoritative, so success reloads everything rather
// than patching the local entry.
func (s *Store) mutate(ctx context.Context, key string, write func(context.Context) error) error {
	s.setState(key, SaveSaving, "")

	if err := write(ctx); err != nil {
		s.setState(key, SaveError, err.Error())
		s.scheduleClear(key)
		return err
	}

	s.setState(key, SaveSuccess, "")
	s.scheduleClear(key)

	if err := s.Load(ctx); err != nil {
		// The write landed; a failed reload only leaves the snapshot stale.
		return err
	}
	return nil
}

// setState transitions a key's save state, stopping any pending clear timer.
func (s *Store) setState(key string, state SaveState, message string) {
	s.mu.Lock()
	ks, ok := s.states[key]
	if !ok {
		ks = &keyState{}
		s.states[key] = ks
	}
	if ks.timer != nil {
		ks.timer.Stop()
		ks.timer = nil
	}
	ks.state = state
	ks.message = message
	s.mu.Unlock()

	if s.eventBus != nil {
		s.eventBus.PublishSettingSave(key, string(state), message)
	}
}

// scheduleClear arms the auto-clear back to idle. The timer belongs to the
// state that scheduled it: if a newer action replaced the state, the fired
// timer must not clear it.
func (s *Store) scheduleClear(key string) {
	s.mu.Lock()
	ks := s.states[key]
	var armed *time.Timer
	armed = time.AfterFunc(s.clearDelay, func() {
		s.mu.Lock()
		cur, ok := s.states[key]
		if !ok || cur.timer != armed {
			s.mu.Unlock()
			return
		}
		cur.state = SaveIdle
		cur.message = ""
		cur.timer = nil
		s.mu.Unlock()

		if s.eventBus != nil {
			s.eventBus.PublishSettingSave(key, string(SaveIdle), "")
		}
	})
	ks.timer = armed
	s.mu.Unlock()
}
