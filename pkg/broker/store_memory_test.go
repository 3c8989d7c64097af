package broker_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/identinet/demoshop/pkg/broker"
)

func TestMemorySessionStore(t *testing.T) {
	store := broker.NewMemorySessionStore()

	if _, err := store.GetSession("missing"); !errors.Is(err, broker.ErrUnknownSession) {
		t.Fatalf("expected ErrUnknownSession, got %v", err)
	}

	session := &broker.Session{
		ID:        "req-1",
		Nonce:     "nonce-1",
		Mobile:    true,
		State:     broker.StatePending,
		CreatedAt: time.Now(),
	}
	if err := store.SaveSession(session); err != nil {
		t.Fatalf("saving session: %v", err)
	}

	loaded, err := store.GetSession("req-1")
	if err != nil {
		t.Fatalf("loading session: %v", err)
	}
	if loaded.Nonce != "nonce-1" || !loaded.Mobile {
		t.Fatalf("unexpected session %+v", loaded)
	}

	// the store hands out copies, mutations only land via SaveSession
	loaded.State = broker.StateSubmitted
	again, err := store.GetSession("req-1")
	if err != nil {
		t.Fatalf("loading session: %v", err)
	}
	if again.State != broker.StatePending {
		t.Fatalf("mutation leaked into the store")
	}

	if err := store.DeleteSession("req-1"); err != nil {
		t.Fatalf("deleting session: %v", err)
	}
	if _, err := store.GetSession("req-1"); !errors.Is(err, broker.ErrUnknownSession) {
		t.Fatalf("expected ErrUnknownSession after delete, got %v", err)
	}
}

func TestSessionJSONExposesClosedFlag(t *testing.T) {
	session := &broker.Session{ID: "req-1", State: broker.StateTimeout}
	data, err := json.Marshal(session)
	if err != nil {
		t.Fatalf("marshaling session: %v", err)
	}

	var readBack map[string]any
	if err := json.Unmarshal(data, &readBack); err != nil {
		t.Fatalf("unmarshaling session: %v", err)
	}
	if closed, ok := readBack["closed"].(bool); !ok || !closed {
		t.Fatalf("expected closed=true in %s", data)
	}

	session.State = broker.StateOpen
	data, err = json.Marshal(session)
	if err != nil {
		t.Fatalf("marshaling session: %v", err)
	}
	if err := json.Unmarshal(data, &readBack); err != nil {
		t.Fatalf("unmarshaling session: %v", err)
	}
	if closed, ok := readBack["closed"].(bool); !ok || closed {
		t.Fatalf("expected closed=false in %s", data)
	}
}

func TestStateClosed(t *testing.T) {
	open := []broker.State{broker.StatePending, broker.StateOpen}
	for _, state := range open {
		if state.Closed() {
			t.Fatalf("state %s must not be closed", state)
		}
	}
	terminal := []broker.State{broker.StateSubmitted, broker.StateTimeout, broker.StateAborted, broker.StateCanceled}
	for _, state := range terminal {
		if !state.Closed() {
			t.Fatalf("state %s must be closed", state)
		}
	}
}
