package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	ferrors "github.com/vinayprograms/finserve/errors"
	"github.com/vinayprograms/finserve/finance"
	"github.com/vinayprograms/finserve/keymap"
	"github.com/vinayprograms/finserve/model"
	"github.com/vinayprograms/finserve/state"
	"github.com/vinayprograms/finserve/syncstate"
	"github.com/vinayprograms/finserve/telemetry"
)

// StateResponse is the body of GET /api/state/:key.
type StateResponse struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
	Phase syncstate.Phase `json:"phase"`
	Shape keymap.Shape    `json:"shape,omitempty"`
}

const maxBody = 4 << 20

func (a *API) entry(c *gin.Context) (syncstate.Entry, bool) {
	key := c.Param("key")
	if err := state.ValidateKey(key); err != nil {
		a.fail(c, ferrors.InvalidInput("key", err.Error(), ferrors.WithKey(key)))
		return nil, false
	}
	def, err := a.defaultFor(key, c.Query("default"))
	if err != nil {
		a.fail(c, err)
		return nil, false
	}
	e, err := a.opts.Pool.Entry(key, def)
	if err != nil {
		a.fail(c, err)
		return nil, false
	}
	return e, true
}

// defaultFor is DefaultFor with the session user's client_data default.
func (a *API) defaultFor(key, override string) (json.RawMessage, error) {
	if override == "" {
		if u, ok := a.opts.Identity.Current(); ok && key == keymap.Key(keymap.KeyClientData, u.ID) {
			return json.Marshal(a.clientDefault(u.ID))
		}
	}
	return DefaultFor(key, override)
}

// awaitEntry blocks until e has reconciled, ctx ends or wait passes.
func awaitEntry(ctx context.Context, e syncstate.Entry, wait time.Duration) {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-e.Done():
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (a *API) respond(c *gin.Context, status int, e syncstate.Entry) {
	raw, err := e.JSON()
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(status, StateResponse{Key: e.Key(), Value: raw, Phase: e.Phase(), Shape: e.Shape()})
}

func readBody(c *gin.Context) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBody))
	if err != nil {
		return nil, ferrors.InvalidInput("body", err.Error())
	}
	return body, nil
}

func (a *API) listKeys(c *gin.Context) {
	pattern := c.DefaultQuery("pattern", "*")
	keys, err := a.opts.Pool.Deps().Cache.Keys(pattern)
	if err != nil {
		a.fail(c, ferrors.WrapWithCode(err, ferrors.ErrCodeCacheRead, "list keys"))
		return
	}
	sort.Strings(keys)
	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

func (a *API) getState(c *gin.Context) {
	e, ok := a.entry(c)
	if !ok {
		return
	}
	if c.Query("wait") == "true" {
		awaitEntry(c.Request.Context(), e, a.opts.ReconcileWait)
	}
	a.respond(c, http.StatusOK, e)
}

func (a *API) putState(c *gin.Context) {
	a.edit(c, telemetry.EventWrite)
}

func (a *API) editRaw(c *gin.Context) {
	a.edit(c, telemetry.EventEditRaw)
}

func (a *API) edit(c *gin.Context, event string) {
	e, ok := a.entry(c)
	if !ok {
		return
	}
	body, err := readBody(c)
	if err == nil {
		err = e.EditRaw(body)
	}
	a.record(event, e.Key(), err, nil)
	if err != nil {
		a.fail(c, err)
		return
	}
	a.respond(c, http.StatusOK, e)
}

func (a *API) push(c *gin.Context) {
	e, ok := a.entry(c)
	if !ok {
		return
	}
	err := e.Push(c.Request.Context())
	a.record(telemetry.EventPush, e.Key(), err, nil)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (a *API) collection(c *gin.Context) (*syncstate.Collection[syncstate.Item], bool) {
	key := c.Param("key")
	def, err := DefaultFor(key, "")
	if err != nil {
		a.fail(c, err)
		return nil, false
	}
	col, err := a.opts.Pool.Collection(key, def)
	if err != nil {
		a.fail(c, err)
		return nil, false
	}
	return col, true
}

func (a *API) upsert(c *gin.Context) {
	col, ok := a.collection(c)
	if !ok {
		return
	}
	var item syncstate.Item
	body, err := readBody(c)
	if err == nil {
		if jErr := json.Unmarshal(body, &item); jErr != nil || item == nil {
			detail := "expected an object"
			if jErr != nil {
				detail = jErr.Error()
			}
			err = ferrors.InvalidInput("invalid JSON", detail, ferrors.WithKey(col.Key()))
		}
	}
	if err == nil {
		err = col.Upsert(c.Request.Context(), item)
	}
	a.record(telemetry.EventUpsert, col.Key(), err, map[string]any{"id": item.RecordID()})
	if err != nil && !isRemote(err) {
		a.fail(c, err)
		return
	}
	a.respondMirror(c, col, err)
}

func (a *API) remove(c *gin.Context) {
	col, ok := a.collection(c)
	if !ok {
		return
	}
	id := c.Param("id")
	err := col.Remove(c.Request.Context(), id)
	a.record(telemetry.EventRemove, col.Key(), err, map[string]any{"id": id})
	if err != nil && !isRemote(err) {
		a.fail(c, err)
		return
	}
	a.respondMirror(c, col, err)
}

// isRemote reports whether err came from mirroring to the remote source.
// Local state already changed in that case, so the new value is still
// returned alongside the error.
func isRemote(err error) bool {
	se, ok := ferrors.AsStructured(err).(*ferrors.Error)
	return ok && se.Resource() != ""
}

func (a *API) respondMirror(c *gin.Context, e syncstate.Entry, mirrorErr error) {
	raw, err := e.JSON()
	if err != nil {
		a.fail(c, err)
		return
	}
	body := gin.H{"key": e.Key(), "value": raw}
	if mirrorErr != nil {
		body["remote_error"] = ferrors.AsStructured(mirrorErr)
	}
	c.JSON(http.StatusOK, body)
}

// FundsRequest is the body of POST /api/clients/:id/funds.
type FundsRequest struct {
	Amount    model.Amount `json:"amount"`
	Direction string       `json:"direction"` // add | remove
}

func (a *API) adjustFunds(c *gin.Context) {
	var req FundsRequest
	body, err := readBody(c)
	if err == nil {
		if jErr := json.Unmarshal(body, &req); jErr != nil {
			err = ferrors.InvalidInput("invalid JSON", jErr.Error())
		}
	}
	dir := finance.Add
	switch req.Direction {
	case "add", "":
	case "remove":
		dir = finance.Remove
	default:
		if err == nil {
			err = ferrors.InvalidInput("direction", "must be add or remove")
		}
	}
	if err == nil && !req.Amount.IsPositive() {
		err = ferrors.InvalidInput("amount", "must be positive")
	}
	if err != nil {
		a.fail(c, err)
		return
	}

	userID := c.Param("id")
	clientKey := keymap.Key(keymap.KeyClientData, userID)
	retirementKey := keymap.Key(keymap.KeyRetirement, userID)

	ctx := c.Request.Context()
	clientEntry, cd, err := openTyped[model.ClientData](ctx, a.opts.Pool, a.opts.ReconcileWait, clientKey, a.clientDefault(userID))
	if err != nil {
		a.fail(c, err)
		return
	}
	retirementEntry, rs, err := openTyped[model.RetirementSettings](ctx, a.opts.Pool, a.opts.ReconcileWait, retirementKey, nil)
	if err != nil {
		a.fail(c, err)
		return
	}

	cd, rs = finance.AdjustFunds(cd, rs, req.Amount, dir)
	if err = storeTyped(clientEntry, cd); err == nil {
		err = storeTyped(retirementEntry, rs)
	}
	a.record(telemetry.EventWrite, clientKey, err, map[string]any{
		"amount":    req.Amount.String(),
		"direction": req.Direction,
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"client": cd, "retirement": rs})
}
