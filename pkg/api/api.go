// Package api exposes the session broker over HTTP: session creation, the
// SSE stream towards the browser, the wallet completion callback, explicit
// cancellation and the post-completion credential read-back.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/identinet/demoshop/pkg/broker"
	"github.com/labstack/echo/v4"
)

type API struct {
	broker *broker.Broker
}

func New(b *broker.Broker) *API {
	return &API{broker: b}
}

func ErrorLogMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		if err != nil {
			slog.Error("Error", "error", err, "path", c.Path(), "remote_addr", c.RealIP())
		}
		return err
	}
}

func (a *API) MountRoutes(group *echo.Group) {
	group.Use(ErrorLogMiddleware)
	group.POST("/authrequests/create", a.createAuthRequest)
	group.GET("/sse/:id", a.stream)
	group.GET("/sse/:id/data", a.sessionData)
	group.GET("/sse/:id/:nonce", a.complete)
	group.POST("/sse/:id/cancel", a.cancel)
	group.GET("/ws/:id", a.streamWS)
}

// createAuthRequest allocates a new authorization session. The mobile query
// parameter records where the flow started and decides the redirect target
// after completion.
func (a *API) createAuthRequest(c echo.Context) error {
	mobile := c.QueryParam("mobile") == "true"

	_, authRequest, err := a.broker.CreateSession(c.Request().Context(), mobile)
	if err != nil {
		// the browser retries the whole flow, no retry here
		return echo.NewHTTPError(http.StatusServiceUnavailable, "internal error while generating authorization request")
	}

	return c.JSON(http.StatusOK, authRequest)
}

// stream opens the SSE channel of the session and blocks until the channel
// is finalized or the client disconnects. When the channel cannot be opened
// the response carries no body and no stream headers, so the caller cannot
// tell the reason apart.
func (a *API) stream(c echo.Context) error {
	id := c.Param("id")
	slog.Debug("sse stream request", "id", id)

	sink := newSSESink(c.Response())
	if err := a.broker.OpenChannel(id, sink); err != nil {
		return c.NoContent(http.StatusNoContent)
	}

	select {
	case <-sink.closed:
	case <-c.Request().Context().Done():
		a.broker.Abort(id)
	}
	return nil
}

// complete is the wallet callback: id and nonce come as path parameters. On
// success the caller is redirected to the same target that was pushed down
// the channel; every other outcome is a uniform bodyless answer so session
// state does not leak to an unauthenticated party.
func (a *API) complete(c echo.Context) error {
	id := c.Param("id")
	nonce := c.Param("nonce")
	slog.Debug("sse completion request", "id", id)

	redirect, err := a.broker.Complete(c.Request().Context(), id, nonce)
	if err != nil {
		return c.NoContent(http.StatusNoContent)
	}

	return c.Redirect(http.StatusFound, redirect)
}

// cancel tears down the open channel, e.g. when the client navigates away
// while still connected. Answers 200 on success and a bodyless response on
// the benign races (already closed, no channel, unknown id).
func (a *API) cancel(c echo.Context) error {
	id := c.Param("id")
	slog.Debug("sse cancel request", "id", id)

	if err := a.broker.Cancel(id); err != nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.NoContent(http.StatusOK)
}

// sessionData returns the decoded credentials stored at completion time.
func (a *API) sessionData(c echo.Context) error {
	session, err := a.broker.Session(c.Param("id"))
	if err != nil {
		if !errors.Is(err, broker.ErrUnknownSession) {
			slog.Error("error loading session", "id", c.Param("id"), "error", err)
		}
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, session.Credentials)
}
