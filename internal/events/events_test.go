package events

import (
	"testing"
	"time"
)

func TestEventBus_PublishSubscribe(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	ch := bus.Subscribe(EventUploadProgress)

	testEvent := &UploadEvent{
		BaseEvent: BaseEvent{
			EventType: EventUploadProgress,
			Time:      time.Now(),
		},
		Filename:     "nightly.sql",
		BytesCurrent: 512,
		BytesTotal:   1024,
		Percent:      50,
	}

	bus.Publish(testEvent)

	select {
	case received := <-ch:
		upload, ok := received.(*UploadEvent)
		if !ok {
			t.Fatal("Expected UploadEvent")
		}
		if upload.Filename != "nightly.sql" {
			t.Errorf("Expected filename 'nightly.sql', got '%s'", upload.Filename)
		}
		if upload.Percent != 50 {
			t.Errorf("Expected percent 50, got %d", upload.Percent)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for event")
	}
}

func TestEventBus_MultipleSubscribers(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	ch1 := bus.Subscribe(EventSettingSaveState)
	ch2 := bus.Subscribe(EventSettingSaveState)

	bus.PublishSettingSave("max_file_size", "saving", "")

	received1 := false
	received2 := false

	select {
	case <-ch1:
		received1 = true
	case <-time.After(100 * time.Millisecond):
	}

	select {
	case <-ch2:
		received2 = true
	case <-time.After(100 * time.Millisecond):
	}

	if !received1 || !received2 {
		t.Error("Not all subscribers received the event")
	}
}

func TestEventBus_DifferentEventTypes(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	actionCh := bus.Subscribe(EventUserActionState)
	settingCh := bus.Subscribe(EventSettingSaveState)

	bus.PublishUserAction("u-1", "toggling", "")

	select {
	case <-actionCh:
		// Expected
	case <-time.After(100 * time.Millisecond):
		t.Error("Action subscriber didn't receive event")
	}

	select {
	case <-settingCh:
		t.Error("Setting subscriber received wrong event type")
	case <-time.After(50 * time.Millisecond):
		// Expected - timeout means no event
	}
}

func TestEventBus_SubscribeAll(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	allCh := bus.SubscribeAll()

	bus.PublishSettingSave("key1", "success", "")
	bus.PublishUserAction("u-1", "error", "disabled by policy")

	count := 0
	for i := 0; i < 2; i++ {
		select {
		case <-allCh:
			count++
		case <-time.After(100 * time.Millisecond):
		}
	}

	if count != 2 {
		t.Errorf("Expected to receive 2 events, got %d", count)
	}
}

func TestEventBus_NonBlocking(t *testing.T) {
	bus := NewEventBus(2) // Small buffer
	defer bus.Close()

	ch := bus.Subscribe(EventUploadProgress)

	// Overfill the buffer; Publish must not block.
	for i := 0; i < 10; i++ {
		bus.Publish(&UploadEvent{
			BaseEvent: BaseEvent{EventType: EventUploadProgress, Time: time.Now()},
			Filename:  "big.dump",
		})
	}

	if bus.GetDroppedEventCount() == 0 {
		t.Error("Expected dropped events with a full buffer")
	}

	count := 0
	for {
		select {
		case <-ch:
			count++
		case <-time.After(10 * time.Millisecond):
			goto done
		}
	}
done:

	if count == 0 {
		t.Error("Should have received at least some events")
	}
}

func TestEventBus_Close(t *testing.T) {
	bus := NewEventBus(10)

	ch := bus.Subscribe(EventSessionExpired)

	bus.Close()

	_, ok := <-ch
	if ok {
		t.Error("Channel should be closed after bus.Close()")
	}

	// Publishing after close should not panic
	bus.Publish(&SessionExpiredEvent{
		BaseEvent: BaseEvent{EventType: EventSessionExpired, Time: time.Now()},
	})
}

func TestEventBus_Unsubscribe(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	ch := bus.Subscribe(EventRosterRefreshed)
	bus.Unsubscribe(EventRosterRefreshed, ch)

	bus.Publish(&RosterEvent{
		BaseEvent: BaseEvent{EventType: EventRosterRefreshed, Time: time.Now()},
		UserCount: 3,
	})

	select {
	case <-ch:
		t.Error("Unsubscribed channel should not receive events")
	case <-time.After(50 * time.Millisecond):
		// Expected
	}
}
