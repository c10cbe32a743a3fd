package settings

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/proofback/proofback-cli/internal/models"
)

type fakeService struct {
	mu        sync.Mutex
	entries   []models.SettingEntry
	updateErr error
	updates   []string // keys updated
	resets    []string
	loads     int
}

func (f *fakeService) ListSettings(ctx context.Context) ([]models.SettingEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	out := make([]models.SettingEntry, len(f.entries))
	copy(out, f.entries)
	return out, nil
}

func (f *fakeService) UpdateSetting(ctx context.Context, key string, value json.RawMessage) (*models.SettingEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, key)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	for i := range f.entries {
		if f.entries[i].Key == key {
			f.entries[i].Value = value
			e := f.entries[i]
			return &e, nil
		}
	}
	return nil, errors.New("no such key")
}

func (f *fakeService) ResetSetting(ctx context.Context, key string) (*models.SettingEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, key)
	for i := range f.entries {
		if f.entries[i].Key == key {
			f.entries[i].Value = json.RawMessage(`"default"`)
			e := f.entries[i]
			return &e, nil
		}
	}
	return nil, errors.New("no such key")
}

func entry(key string, cat models.SettingCategory, typ models.SettingType, value string, editable bool) models.SettingEntry {
	return models.SettingEntry{
		Key: key, Category: cat, Type: typ,
		Value: json.RawMessage(value), Editable: editable,
	}
}

func testStore(t *testing.T) (*Store, *fakeService) {
	t.Helper()
	svc := &fakeService{entries: []models.SettingEntry{
		entry("max_file_size", models.CategoryFileUpload, models.SettingNumber, "100", true),
		entry("allowed_extensions", models.CategoryFileUpload, models.SettingJSON, `[".sql",".dump"]`, true),
		entry("auto_cleanup", models.CategoryDatabaseCleanup, models.SettingBoolean, "true", true),
		entry("platform_name", models.CategorySystem, models.SettingString, `"Proofback"`, true),
		entry("api_version", models.CategorySystem, models.SettingString, `"v1"`, false),
	}}
	s := NewStore(svc, nil)
	s.clearDelay = 30 * time.Millisecond
	if err := s.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	return s, svc
}

func TestLoadGroupsAndSelectsFirstCategory(t *testing.T) {
	s, _ := testStore(t)

	cats := s.Categories()
	want := []models.SettingCategory{
		models.CategoryFileUpload, models.CategoryDatabaseCleanup, models.CategorySystem,
	}
	if len(cats) != len(want) {
		t.Fatalf("categories = %v", cats)
	}
	for i := range want {
		if cats[i] != want[i] {
			t.Errorf("categories[%d] = %s, want %s", i, cats[i], want[i])
		}
	}
	if s.ActiveCategory() != models.CategoryFileUpload {
		t.Errorf("active = %s, want first populated category", s.ActiveCategory())
	}
	if got := s.Entries(models.CategoryFileUpload); len(got) != 2 {
		t.Errorf("file_upload entries = %v", got)
	}
}

func TestSetActiveCategoryIgnoresUnknown(t *testing.T) {
	s, _ := testStore(t)
	s.SetActiveCategory(models.CategorySecurity) // not populated
	if s.ActiveCategory() != models.CategoryFileUpload {
		t.Errorf("active changed to unpopulated category")
	}
	s.SetActiveCategory(models.CategorySystem)
	if s.ActiveCategory() != models.CategorySystem {
		t.Errorf("active = %s", s.ActiveCategory())
	}
}

func TestUpdateLifecycle(t *testing.T) {
	s, svc := testStore(t)

	if err := s.Update(context.Background(), "max_file_size", "250"); err != nil {
		t.Fatal(err)
	}
	if len(svc.updates) != 1 || svc.updates[0] != "max_file_size" {
		t.Errorf("updates = %v", svc.updates)
	}

	if state, _ := s.SaveStateOf("max_file_size"); state != SaveSuccess {
		t.Errorf("state = %s, want success", state)
	}
	// Server value is authoritative: the snapshot was reloaded.
	if e, _ := s.Get("max_file_size"); string(e.Value) != "250" {
		t.Errorf("value = %s, want 250", e.Value)
	}

	// Success clears back to idle.
	waitForState(t, s, "max_file_size", SaveIdle)
}

func TestUpdateFailureRecordsServerMessage(t *testing.T) {
	s, svc := testStore(t)
	svc.updateErr = errors.New("value exceeds plan limit")

	err := s.Update(context.Background(), "max_file_size", "9000")
	if err == nil {
		t.Fatal("expected update error")
	}

	state, msg := s.SaveStateOf("max_file_size")
	if state != SaveError {
		t.Errorf("state = %s, want error", state)
	}
	if msg != "value exceeds plan limit" {
		t.Errorf("message = %q", msg)
	}
	// Value unchanged
	if e, _ := s.Get("max_file_size"); string(e.Value) != "100" {
		t.Errorf("value = %s, want 100", e.Value)
	}

	waitForState(t, s, "max_file_size", SaveIdle)
}

func TestUpdateInvalidFormatShortCircuits(t *testing.T) {
	s, svc := testStore(t)

	err := s.Update(context.Background(), "max_file_size", "not-a-number")
	if !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("err = %v, want ErrInvalidFormat", err)
	}
	if len(svc.updates) != 0 {
		t.Error("invalid input must not reach the network")
	}
}

func TestUpdateRejectsReadOnly(t *testing.T) {
	s, svc := testStore(t)
	if err := s.Update(context.Background(), "api_version", `"v2"`); !errors.Is(err, ErrNotEditable) {
		t.Fatalf("err = %v, want ErrNotEditable", err)
	}
	if len(svc.updates) != 0 {
		t.Error("read-only update must not reach the network")
	}
}

func TestUpdateUnknownKey(t *testing.T) {
	s, _ := testStore(t)
	if err := s.Update(context.Background(), "nope", "1"); !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("err = %v, want ErrUnknownKey", err)
	}
}

func TestResetRestoresDefault(t *testing.T) {
	s, svc := testStore(t)
	if err := s.Reset(context.Background(), "platform_name"); err != nil {
		t.Fatal(err)
	}
	if len(svc.resets) != 1 {
		t.Errorf("resets = %v", svc.resets)
	}
	if e, _ := s.Get("platform_name"); string(e.Value) != `"default"` {
		t.Errorf("value = %s", e.Value)
	}
}

func TestNewerActionCancelsStaleClear(t *testing.T) {
	s, svc := testStore(t)

	if err := s.Update(context.Background(), "max_file_size", "250"); err != nil {
		t.Fatal(err)
	}
	// A second update lands while the first success is still settling.
	svc.updateErr = errors.New("nope")
	if err := s.Update(context.Background(), "max_file_size", "300"); err == nil {
		t.Fatal("expected error")
	}

	// The first action's clear timer must not wipe the newer error state
	// before its own settle window elapses.
	time.Sleep(10 * time.Millisecond)
	if state, _ := s.SaveStateOf("max_file_size"); state != SaveError {
		t.Errorf("state = %s, stale timer cleared a newer state", state)
	}
	waitForState(t, s, "max_file_size", SaveIdle)
}

func TestShouldCommitSemantics(t *testing.T) {
	s, _ := testStore(t)

	tests := []struct {
		name    string
		key     string
		raw     string
		want    bool
		wantErr error
	}{
		{"number unchanged", "max_file_size", "100", false, nil},
		{"number changed", "max_file_size", "101", true, nil},
		{"number same after trim", "max_file_size", " 100 ", false, nil},
		{"number equal under parse", "max_file_size", "100.0", false, nil},
		{"number malformed", "max_file_size", "ten", false, ErrInvalidFormat},
		{"boolean always commits", "auto_cleanup", "true", true, nil},
		{"json structurally equal", "allowed_extensions", `[".sql", ".dump"]`, false, nil},
		{"json changed", "allowed_extensions", `[".sql"]`, true, nil},
		{"json malformed", "allowed_extensions", `[".sql"`, false, ErrInvalidFormat},
		{"string unchanged", "platform_name", "Proofback", false, nil},
		{"string changed", "platform_name", "Other", true, nil},
		{"read-only", "api_version", "v2", false, ErrNotEditable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ShouldCommit(tt.key, tt.raw)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("ShouldCommit = %v, want %v", got, tt.want)
			}
		})
	}
}

func waitForState(t *testing.T, s *Store, key string, want SaveState) {
	t.Helper()
	deadline := time.After(500 * time.Millisecond)
	for {
		if state, _ := s.SaveStateOf(key); state == want {
			return
		}
		select {
		case <-deadline:
			state, _ := s.SaveStateOf(key)
			t.Fatalf("state = %s, want %s", state, want)
		case <-time.After(5 * time.Millisecond):
		}
	}
}
