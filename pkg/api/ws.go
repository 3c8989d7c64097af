package api

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{}

// streamWS is the WebSocket variant of the stream endpoint for embedders
// that cannot use EventSource. It carries the same named events as JSON
// messages and counts as the one channel of the session, so an open SSE
// stream and a WebSocket stream exclude each other.
func (a *API) streamWS(c echo.Context) error {
	id := c.Param("id")
	slog.Debug("ws stream request", "id", id)

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	sink := newWSSink(ws)
	if err := a.broker.OpenChannel(id, sink); err != nil {
		ws.Close()
		return nil
	}

	// the client never sends application messages; the read loop only
	// detects the disconnect
	go func() {
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				a.broker.Abort(id)
				return
			}
		}
	}()

	<-sink.closed
	return nil
}

type wsEvent struct {
	Event string `json:"event"`
	Data  string `json:"data,omitempty"`
}

type wsSink struct {
	conn   *websocket.Conn
	closed chan struct{}
	once   sync.Once
}

func newWSSink(conn *websocket.Conn) *wsSink {
	return &wsSink{
		conn:   conn,
		closed: make(chan struct{}),
	}
}

func (s *wsSink) Send(event string, data string) error {
	return s.conn.WriteJSON(wsEvent{Event: event, Data: data})
}

func (s *wsSink) Close() error {
	s.once.Do(func() {
		s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
		close(s.closed)
	})
	return nil
}
