package broker

import (
	"encoding/json"
	"time"

	"github.com/identinet/demoshop/pkg/vp"
)

// State of an authorization session. Pending and Open are live, everything
// else is terminal; a session never leaves a terminal state.
type State string

const (
	StatePending   State = "pending"
	StateOpen      State = "open"
	StateSubmitted State = "submitted"
	StateTimeout   State = "timeout"
	StateAborted   State = "aborted"
	StateCanceled  State = "canceled"
)

func (s State) Closed() bool {
	return s != StatePending && s != StateOpen
}

// Session is one in-flight authorization attempt. The id is assigned by the
// data service, the nonce is minted here and authenticates the wallet
// completion callback.
type Session struct {
	ID          string          `json:"id"`
	Nonce       string          `json:"nonce"`
	Mobile      bool            `json:"mobile"`
	State       State           `json:"state"`
	CreatedAt   time.Time       `json:"created_at"`
	Credentials []vp.Credential `json:"credentials,omitempty"`
}

func (s *Session) Closed() bool {
	return s.State.Closed()
}

// MarshalJSON adds the derived closed flag for read-back compatibility with
// clients that only know the boolean.
func (s *Session) MarshalJSON() ([]byte, error) {
	type alias Session
	return json.Marshal(&struct {
		*alias
		Closed bool `json:"closed"`
	}{
		alias:  (*alias)(s),
		Closed: s.Closed(),
	})
}

// RedirectTarget is where the browser is sent after completion: back to the
// checkout when the flow was started on a desktop browser, to the close page
// when it was started on the mobile device the wallet runs on.
func (s *Session) RedirectTarget() string {
	if s.Mobile {
		return "/close"
	}
	return "/checkout/" + s.ID
}

// SessionStore is the injectable registry of sessions. The memory store is
// the single-instance default; the Valkey store allows horizontal scaling
// without touching the broker logic.
type SessionStore interface {
	GetSession(id string) (*Session, error)
	SaveSession(session *Session) error
	DeleteSession(id string) error
}
