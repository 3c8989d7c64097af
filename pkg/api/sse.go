package api

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
)

// sseSink writes named server-sent events to the response. The stream
// headers go out lazily with the first event, so a rejected stream request
// never turns into an event-stream response. The broker serializes Send and
// Close; closed unblocks the handler goroutine that owns the connection.
type sseSink struct {
	response *echo.Response
	started  bool
	closed   chan struct{}
	once     sync.Once
}

func newSSESink(response *echo.Response) *sseSink {
	return &sseSink{
		response: response,
		closed:   make(chan struct{}),
	}
}

func (s *sseSink) Send(event string, data string) error {
	if !s.started {
		header := s.response.Header()
		header.Set(echo.HeaderContentType, "text/event-stream")
		header.Set(echo.HeaderCacheControl, "no-cache")
		header.Set(echo.HeaderConnection, "keep-alive")
		s.response.WriteHeader(http.StatusOK)
		s.started = true
	}

	if _, err := fmt.Fprintf(s.response, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	s.response.Flush()
	return nil
}

func (s *sseSink) Close() error {
	s.once.Do(func() {
		close(s.closed)
	})
	return nil
}
