// Package broker is the in-memory registry of pending authorization
// sessions and the manager of the one push channel each session may have
// open towards the browser.
package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/identinet/demoshop/pkg/nonce"
	"github.com/identinet/demoshop/pkg/vds"
	"github.com/identinet/demoshop/pkg/vp"
)

// AuthRequestService is the broker's view of the data service. Satisfied by
// *vds.Client.
type AuthRequestService interface {
	CreateAuthRequest(ctx context.Context, nonce string) (*vds.AuthRequest, error)
	FetchAuthRequest(ctx context.Context, id string) ([]byte, error)
}

type Config struct {
	// Interval between keep-alive pings on an open channel.
	HeartbeatSeconds int64
	// An open channel without completion is torn down after this long.
	TimeoutSeconds int64
}

const (
	defaultHeartbeatSeconds = 5
	defaultTimeoutSeconds   = 120
)

type Broker struct {
	store     SessionStore
	nonces    nonce.Service
	requests  AuthRequestService
	heartbeat time.Duration
	timeout   time.Duration

	lock     sync.Mutex
	channels map[string]*channel
}

func New(store SessionStore, nonces nonce.Service, requests AuthRequestService, config Config) *Broker {
	if config.HeartbeatSeconds <= 0 {
		config.HeartbeatSeconds = defaultHeartbeatSeconds
	}
	if config.TimeoutSeconds <= 0 {
		config.TimeoutSeconds = defaultTimeoutSeconds
	}
	return &Broker{
		store:     store,
		nonces:    nonces,
		requests:  requests,
		heartbeat: time.Duration(config.HeartbeatSeconds) * time.Second,
		timeout:   time.Duration(config.TimeoutSeconds) * time.Second,
		channels:  make(map[string]*channel),
	}
}

// CreateSession mints a nonce, registers an authorization request with the
// data service and stores the pending session under the id the data service
// assigned.
func (b *Broker) CreateSession(ctx context.Context, mobile bool) (*Session, *vds.AuthRequest, error) {
	nonceStr, err := b.nonces.Get()
	if err != nil {
		return nil, nil, fmt.Errorf("minting nonce: %w", err)
	}

	authRequest, err := b.requests.CreateAuthRequest(ctx, nonceStr)
	if err != nil {
		slog.Error("error creating authorization request", "error", err)
		return nil, nil, err
	}

	session := &Session{
		ID:        authRequest.ID,
		Nonce:     nonceStr,
		Mobile:    mobile,
		State:     StatePending,
		CreatedAt: time.Now(),
	}
	if err := b.store.SaveSession(session); err != nil {
		return nil, nil, fmt.Errorf("saving session: %w", err)
	}

	slog.Debug("generated nonce", "id", authRequest.ID, "nonce", nonceStr)
	return session, authRequest, nil
}

func (b *Broker) Session(id string) (*Session, error) {
	return b.store.GetSession(id)
}

// OpenChannel registers the sink as the single push channel of the session
// and starts its keep-alive and timeout timers. The check for an existing
// channel and the registration happen under one lock acquisition, so two
// concurrent stream requests cannot both win.
func (b *Broker) OpenChannel(id string, sink EventSink) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	session, err := b.store.GetSession(id)
	if err != nil {
		slog.Warn("ignoring stream request, id unknown", "id", id)
		return ErrUnknownSession
	}
	if session.Closed() {
		slog.Info("ignoring stream request, session closed", "id", id)
		return ErrAlreadyClosed
	}
	if _, ok := b.channels[id]; ok {
		slog.Info("ignoring stream request, channel already open", "id", id)
		return ErrChannelOpen
	}

	slog.Info("opening new channel", "id", id)
	ch := &channel{id: id, sink: sink, done: make(chan struct{})}
	b.channels[id] = ch
	session.State = StateOpen
	if err := b.store.SaveSession(session); err != nil {
		delete(b.channels, id)
		return fmt.Errorf("saving session: %w", err)
	}

	// first keep-alive straight away so intermediaries flush the stream
	if err := sink.Send(EventPing, ""); err != nil {
		slog.Error("error sending keep alive", "id", id, "error", err)
	}

	go b.watch(ch)
	return nil
}

// Complete is the nonce-authenticated handshake from the wallet callback.
// On success it returns the redirect target that was also pushed down the
// channel with the submitted event. All failures map onto the sentinel
// errors; the HTTP layer answers them uniformly without a body.
func (b *Broker) Complete(ctx context.Context, id string, nonceStr string) (string, error) {
	b.lock.Lock()
	session, err := b.store.GetSession(id)
	if err != nil {
		b.lock.Unlock()
		slog.Error("completion for unknown session", "id", id)
		return "", ErrUnknownSession
	}
	if session.Closed() {
		b.lock.Unlock()
		slog.Error("completion for closed session", "id", id)
		return "", ErrAlreadyClosed
	}
	if _, ok := b.channels[id]; !ok {
		b.lock.Unlock()
		slog.Error("completion without open channel", "id", id)
		return "", ErrNoActiveChannel
	}
	if nonceStr != session.Nonce {
		b.lock.Unlock()
		slog.Error("completion nonce mismatch", "id", id)
		return "", ErrNonceMismatch
	}
	b.lock.Unlock()

	// fetch and decode without holding the lock; heartbeats and a racing
	// timeout stay live while the data service answers
	data, err := b.requests.FetchAuthRequest(ctx, id)
	if err != nil {
		slog.Error("error fetching the results", "id", id, "nonce", nonceStr, "error", err)
		return "", fmt.Errorf("fetching authorization result: %w", err)
	}

	credentials, err := vp.DecodeSubmission(data)
	if err != nil {
		// session stays pending so a legitimate retry of the callback
		// is possible
		slog.Error("error parsing submission", "id", id, "nonce", nonceStr, "error", err)
		return "", fmt.Errorf("decoding submission: %w", err)
	}

	if err := b.nonces.Redeem(nonceStr); err != nil {
		// equality against the stored nonce is the authoritative check;
		// a failed redeem here means the nonce expired in the meantime
		slog.Warn("redeeming nonce failed", "id", id, "error", err)
	}

	b.lock.Lock()
	defer b.lock.Unlock()
	session, err = b.store.GetSession(id)
	if err != nil {
		return "", ErrUnknownSession
	}
	if session.Closed() {
		// timeout or cancel won the race during the fetch
		slog.Error("completion for closed session", "id", id)
		return "", ErrAlreadyClosed
	}
	if _, ok := b.channels[id]; !ok {
		return "", ErrNoActiveChannel
	}

	redirect := session.RedirectTarget()
	session.Credentials = credentials
	slog.Debug("event: submitted", "id", id, "redirect", redirect)
	b.closeChannelLocked(session, StateSubmitted, EventSubmitted, redirect)
	return redirect, nil
}

// Cancel tears down the open channel without an event, e.g. when the client
// navigates away while still connected.
func (b *Broker) Cancel(id string) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	session, err := b.store.GetSession(id)
	if err != nil {
		slog.Error("cancel for unknown session", "id", id)
		return ErrUnknownSession
	}
	if session.Closed() {
		slog.Error("cancel for closed session", "id", id)
		return ErrAlreadyClosed
	}
	if _, ok := b.channels[id]; !ok {
		slog.Error("cancel without open channel", "id", id)
		return ErrNoActiveChannel
	}

	slog.Debug("event: cancel", "id", id)
	b.closeChannelLocked(session, StateCanceled, "", "")
	return nil
}

// Abort finalizes a session whose client connection dropped. The remote end
// is gone, so no event is sent. Aborting a session that was already
// finalized is a no-op.
func (b *Broker) Abort(id string) {
	b.lock.Lock()
	defer b.lock.Unlock()

	ch, ok := b.channels[id]
	if !ok {
		return
	}

	slog.Debug("client disconnected", "id", id)
	session, err := b.store.GetSession(id)
	if err != nil {
		close(ch.done)
		delete(b.channels, id)
		return
	}
	b.closeChannelLocked(session, StateAborted, "", "")
}

// watch drives the keep-alive and timeout timers of one channel. Both are
// stopped deterministically when the channel closes; a tick that loses the
// race against a close finds the channel deregistered and does nothing.
func (b *Broker) watch(ch *channel) {
	ticker := time.NewTicker(b.heartbeat)
	defer ticker.Stop()
	timeout := time.NewTimer(b.timeout)
	defer timeout.Stop()

	for {
		select {
		case <-ch.done:
			return
		case <-ticker.C:
			if !b.heartbeatTick(ch.id) {
				return
			}
		case <-timeout.C:
			b.timeoutFire(ch.id)
			return
		}
	}
}

// heartbeatTick sends one ping. It reports false when the channel is gone
// and the watch loop should stop.
func (b *Broker) heartbeatTick(id string) bool {
	b.lock.Lock()
	defer b.lock.Unlock()

	ch, ok := b.channels[id]
	if !ok {
		return false
	}
	session, err := b.store.GetSession(id)
	if err != nil || session.Closed() {
		slog.Debug("connection closed, stopping keep alive", "id", id)
		if err := ch.sink.Close(); err != nil {
			slog.Debug("error closing channel transport", "id", id, "error", err)
		}
		close(ch.done)
		delete(b.channels, id)
		return false
	}

	slog.Debug("sending keep alive", "id", id, "nonce", session.Nonce)
	if err := ch.sink.Send(EventPing, ""); err != nil {
		slog.Error("error sending keep alive", "id", id, "error", err)
		b.closeChannelLocked(session, StateAborted, "", "")
		return false
	}
	return true
}

// timeoutFire closes a channel whose wallet never called back.
func (b *Broker) timeoutFire(id string) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if _, ok := b.channels[id]; !ok {
		return
	}
	session, err := b.store.GetSession(id)
	if err != nil || session.Closed() {
		return
	}

	slog.Info("closing connection, timeout reached", "id", id, "nonce", session.Nonce)
	b.closeChannelLocked(session, StateTimeout, EventTimeout, "")
}

// closeChannelLocked pushes an optional terminal event, tears the transport
// down, deregisters the channel and saves the session in its terminal state.
// Callers hold b.lock.
func (b *Broker) closeChannelLocked(session *Session, state State, event string, data string) {
	if ch, ok := b.channels[session.ID]; ok {
		if event != "" {
			if err := ch.sink.Send(event, data); err != nil {
				slog.Error("error sending event", "id", session.ID, "event", event, "error", err)
			}
		}
		if err := ch.sink.Close(); err != nil {
			slog.Debug("error closing channel transport", "id", session.ID, "error", err)
		}
		close(ch.done)
		delete(b.channels, session.ID)
	}

	session.State = state
	if err := b.store.SaveSession(session); err != nil {
		slog.Error("error saving session", "id", session.ID, "error", err)
	}
}
