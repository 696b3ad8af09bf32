package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/vinayprograms/finserve/defaults"
	ferrors "github.com/vinayprograms/finserve/errors"
	"github.com/vinayprograms/finserve/finance"
	"github.com/vinayprograms/finserve/identity"
	"github.com/vinayprograms/finserve/keymap"
	"github.com/vinayprograms/finserve/model"
	"github.com/vinayprograms/finserve/syncstate"
)

// DashboardResponse is the body of GET /api/dashboard.
type DashboardResponse struct {
	User     string            `json:"user"`
	Summary  finance.Dashboard `json:"summary"`
	Pending  []string          `json:"pending,omitempty"` // keys not yet reconciled
	Client   model.ClientData  `json:"client"`
	Holdings []model.Holding   `json:"holdings"`
	Accounts []model.Account   `json:"accounts"`
}

// openTyped opens key in the pool, waits up to wait for its first
// reconciliation and decodes the current value. A nil def uses the key
// family's registered default.
func openTyped[T any](ctx context.Context, pool *syncstate.Pool, wait time.Duration, key string, def any) (syncstate.Entry, T, error) {
	var zero T
	if def == nil {
		def = defaults.For(key)
	}
	raw, err := json.Marshal(def)
	if err != nil {
		return nil, zero, ferrors.Wrap(err, "encode default", ferrors.WithKey(key))
	}
	e, err := pool.Entry(key, raw)
	if err != nil {
		return nil, zero, err
	}
	awaitEntry(ctx, e, wait)

	data, err := e.JSON()
	if err != nil {
		return nil, zero, err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, zero, ferrors.WrapWithCode(err, ferrors.ErrCodeCorruption, "decode "+key, ferrors.WithKey(key))
	}
	return e, v, nil
}

// clientDefault is the client_data default for userID. When userID is the
// session user the default carries their name and email. Every route opening
// a client key goes through here: the first opener's default is the one the
// pool keeps.
func (a *API) clientDefault(userID string) model.ClientData {
	if u, ok := a.opts.Identity.Current(); ok && u.ID == userID {
		return defaults.ClientData(u.Name, u.Email)
	}
	return defaults.ClientData("", "")
}

func storeTyped(e syncstate.Entry, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return ferrors.Wrap(err, "encode value", ferrors.WithKey(e.Key()))
	}
	return e.EditRaw(data)
}

// LoadDashboard opens the per-user keys of u in parallel, waiting up to wait
// for each to reconcile, and summarizes them.
func LoadDashboard(ctx context.Context, pool *syncstate.Pool, u identity.User, wait time.Duration, now time.Time) (DashboardResponse, error) {
	var (
		in      finance.Inputs
		entries [4]syncstate.Entry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		entries[0], in.Client, err = openTyped[model.ClientData](gctx, pool, wait,
			keymap.Key(keymap.KeyClientData, u.ID), defaults.ClientData(u.Name, u.Email))
		return err
	})
	g.Go(func() (err error) {
		entries[1], in.Accounts, err = openTyped[[]model.Account](gctx, pool, wait, keymap.Key(keymap.KeyAccounts, u.ID), nil)
		return err
	})
	g.Go(func() (err error) {
		entries[2], in.Holdings, err = openTyped[[]model.Holding](gctx, pool, wait, keymap.Key(keymap.KeyHoldings, u.ID), nil)
		return err
	})
	g.Go(func() (err error) {
		entries[3], in.Retirement, err = openTyped[model.RetirementSettings](gctx, pool, wait, keymap.Key(keymap.KeyRetirement, u.ID), nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return DashboardResponse{}, err
	}

	resp := DashboardResponse{
		User:     u.ID,
		Summary:  finance.Summarize(in, now),
		Client:   in.Client,
		Holdings: in.Holdings,
		Accounts: in.Accounts,
	}
	for _, e := range entries {
		if p := e.Phase(); p == syncstate.PhaseSeeded || p == syncstate.PhaseReconciling {
			resp.Pending = append(resp.Pending, e.Key())
		}
	}
	return resp, nil
}

func (a *API) dashboard(c *gin.Context) {
	u, ok := a.opts.Identity.Current()
	if !ok {
		a.fail(c, ferrors.New(ferrors.ErrCodeUnauthorized, "no session"))
		return
	}
	resp, err := LoadDashboard(c.Request.Context(), a.opts.Pool, u, a.opts.ReconcileWait, a.opts.Now())
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
