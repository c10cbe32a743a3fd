package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/proofback/proofback-cli/internal/config"
	"github.com/proofback/proofback-cli/internal/events"
)

func TestSetTokenPersists(t *testing.T) {
	tokenPath := filepath.Join(t.TempDir(), "token")
	s := New("", tokenPath, nil)

	if s.Authenticated() {
		t.Error("fresh session should not be authenticated")
	}

	if err := s.SetToken("pb-xyz"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	if s.Token() != "pb-xyz" {
		t.Errorf("Token = %q, want pb-xyz", s.Token())
	}

	persisted, err := config.ReadTokenFile(tokenPath)
	if err != nil {
		t.Fatalf("token not persisted: %v", err)
	}
	if persisted != "pb-xyz" {
		t.Errorf("persisted token = %q, want pb-xyz", persisted)
	}
}

func TestClearRemovesToken(t *testing.T) {
	tokenPath := filepath.Join(t.TempDir(), "token")
	s := New("", tokenPath, nil)
	if err := s.SetToken("pb-xyz"); err != nil {
		t.Fatal(err)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if s.Authenticated() {
		t.Error("session should be unauthenticated after Clear")
	}
	if _, err := os.Stat(tokenPath); !os.IsNotExist(err) {
		t.Error("persisted token should be removed on Clear")
	}
}

func TestInvalidateClearsOnceAndPublishes(t *testing.T) {
	bus := events.NewEventBus(10)
	defer bus.Close()
	ch := bus.Subscribe(events.EventSessionExpired)

	tokenPath := filepath.Join(t.TempDir(), "token")
	s := New("", tokenPath, bus)
	if err := s.SetToken("stale"); err != nil {
		t.Fatal(err)
	}

	s.Invalidate()
	s.Invalidate() // second rejection must be a no-op

	if s.Authenticated() {
		t.Error("token must be cleared on 401")
	}
	if !s.Expired() {
		t.Error("session should be marked expired")
	}
	if _, err := os.Stat(tokenPath); !os.IsNotExist(err) {
		t.Error("persisted token should be removed on 401")
	}

	// Exactly one expiry event
	select {
	case <-ch:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("expected a session-expired event")
	}
	select {
	case <-ch:
		t.Error("Invalidate must publish only once")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSetTokenAfterInvalidateResets(t *testing.T) {
	s := New("", "", nil)
	s.Invalidate()
	if err := s.SetToken("fresh"); err != nil {
		t.Fatal(err)
	}
	if s.Expired() {
		t.Error("a fresh login must clear the expired flag")
	}
	if s.Token() != "fresh" {
		t.Errorf("Token = %q, want fresh", s.Token())
	}
}

func TestInMemorySessionSkipsPersistence(t *testing.T) {
	s := New("flag-token", "", nil)
	if !s.Authenticated() {
		t.Error("session seeded with a token should be authenticated")
	}
	if err := s.Clear(); err != nil {
		t.Errorf("Clear on in-memory session: %v", err)
	}
}
