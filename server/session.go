package server

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	ferrors "github.com/vinayprograms/finserve/errors"
	"github.com/vinayprograms/finserve/telemetry"
)

// LoginRequest is the body of POST /api/session.
type LoginRequest struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

func (a *API) login(c *gin.Context) {
	var req LoginRequest
	body, err := readBody(c)
	if err == nil {
		if jErr := json.Unmarshal(body, &req); jErr != nil {
			err = ferrors.InvalidInput("invalid JSON", jErr.Error())
		}
	}
	if err != nil {
		a.fail(c, err)
		return
	}
	u, err := a.opts.Identity.Login(req.Email, req.Name)
	a.record(telemetry.EventLogin, "", err, map[string]any{"email": req.Email})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (a *API) session(c *gin.Context) {
	u, ok := a.opts.Identity.Current()
	if !ok {
		a.fail(c, ferrors.New(ferrors.ErrCodeUnauthorized, "no session"))
		return
	}
	c.JSON(http.StatusOK, u)
}

func (a *API) logout(c *gin.Context) {
	actor := a.actor()
	err := a.opts.Identity.Logout()
	ev := telemetry.Event{Name: telemetry.EventLogout, Actor: actor}
	if err != nil {
		ev.Error = err.Error()
	}
	a.opts.Journal.Record(ev)
	if err != nil {
		a.fail(c, ferrors.WrapWithCode(err, ferrors.ErrCodeCacheWrite, "logout"))
		return
	}
	c.Status(http.StatusNoContent)
}
