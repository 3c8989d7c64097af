package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

const defaultSessionTTLSeconds = 600

type valkeySessionStore struct {
	valkeyClient valkey.Client
	ttl          time.Duration
}

// NewValkeySessionStore keeps sessions in Valkey so several instances can
// share one registry. Entries expire after ttlSeconds (default 600), well
// past the channel timeout, so a finished flow can still be read back while
// abandoned entries do not accumulate.
func NewValkeySessionStore(valkeyClient valkey.Client, ttlSeconds int64) SessionStore {
	if ttlSeconds <= 0 {
		ttlSeconds = defaultSessionTTLSeconds
	}
	return &valkeySessionStore{
		valkeyClient: valkeyClient,
		ttl:          time.Duration(ttlSeconds) * time.Second,
	}
}

func (s *valkeySessionStore) GetSession(id string) (*Session, error) {
	ctx := context.Background()
	result := s.valkeyClient.Do(ctx, s.valkeyClient.B().Get().Key("session:"+id).Build())
	if valkey.IsValkeyNil(result.Error()) {
		return nil, ErrUnknownSession
	}
	if result.Error() != nil {
		return nil, fmt.Errorf("reading session from Valkey: %w", result.Error())
	}
	data, err := result.AsBytes()
	if err != nil {
		return nil, fmt.Errorf("reading session from Valkey: %w", err)
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decoding session '%s': %w", id, err)
	}
	return &session, nil
}

func (s *valkeySessionStore) SaveSession(session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encoding session '%s': %w", session.ID, err)
	}
	ctx := context.Background()
	err = s.valkeyClient.Do(ctx, s.valkeyClient.B().Set().Key("session:"+session.ID).Value(string(data)).Ex(s.ttl).Build()).Error()
	if err != nil {
		return fmt.Errorf("storing session in Valkey: %w", err)
	}
	return nil
}

func (s *valkeySessionStore) DeleteSession(id string) error {
	ctx := context.Background()
	err := s.valkeyClient.Do(ctx, s.valkeyClient.B().Del().Key("session:"+id).Build()).Error()
	if err != nil {
		return fmt.Errorf("deleting session from Valkey: %w", err)
	}
	return nil
}
