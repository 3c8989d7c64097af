package broker_test

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/identinet/demoshop/pkg/broker"
	"github.com/valkey-io/valkey-go"
)

// needs a running Valkey, e.g. docker run -p 6379:6379 valkey/valkey
func TestValkeySessionStore(t *testing.T) {
	address := os.Getenv("VALKEY_ADDRESS")
	if address == "" {
		t.Skip("VALKEY_ADDRESS not set")
	}

	valkeyClient, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{address},
	})
	if err != nil {
		t.Fatalf("creating Valkey client: %v", err)
	}

	store := broker.NewValkeySessionStore(valkeyClient, 2)

	if _, err := store.GetSession("missing"); !errors.Is(err, broker.ErrUnknownSession) {
		t.Fatalf("expected ErrUnknownSession, got %v", err)
	}

	session := &broker.Session{
		ID:        "valkey-test-1",
		Nonce:     "nonce-1",
		State:     broker.StateOpen,
		CreatedAt: time.Now(),
	}
	if err := store.SaveSession(session); err != nil {
		t.Fatalf("saving session: %v", err)
	}

	loaded, err := store.GetSession("valkey-test-1")
	if err != nil {
		t.Fatalf("loading session: %v", err)
	}
	if loaded.Nonce != "nonce-1" || loaded.State != broker.StateOpen {
		t.Fatalf("unexpected session %+v", loaded)
	}

	time.Sleep(3 * time.Second) // let the entry expire

	if _, err := store.GetSession("valkey-test-1"); !errors.Is(err, broker.ErrUnknownSession) {
		t.Fatalf("expected ErrUnknownSession after expiry, got %v", err)
	}
}
