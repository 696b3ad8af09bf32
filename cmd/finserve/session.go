package main

import (
	"context"
	"fmt"

	"github.com/vinayprograms/finserve/telemetry"
)

// LoginCmd starts a session that later commands and the server share.
type LoginCmd struct {
	Email string `arg:"" help:"Email address"`
	Name  string `help:"Display name"`
}

func (c *LoginCmd) Run(g *Globals) error {
	return withApp(g, func(_ context.Context, a *app) error {
		u, err := a.identity.Login(c.Email, c.Name)
		ev := telemetry.Event{Name: telemetry.EventLogin, Actor: u.ID}
		if err != nil {
			ev.Error = err.Error()
		}
		a.journal.Record(ev)
		if err != nil {
			return err
		}
		fmt.Printf("signed in as %s (%s, %s)\n", u.Name, u.ID, u.Role)
		return nil
	})
}

// LogoutCmd ends the session.
type LogoutCmd struct{}

func (c *LogoutCmd) Run(g *Globals) error {
	return withApp(g, func(_ context.Context, a *app) error {
		u, _ := a.identity.Current()
		err := a.identity.Logout()
		ev := telemetry.Event{Name: telemetry.EventLogout, Actor: u.ID}
		if err != nil {
			ev.Error = err.Error()
		}
		a.journal.Record(ev)
		return err
	})
}

// WhoamiCmd prints the session user.
type WhoamiCmd struct{}

func (c *WhoamiCmd) Run(g *Globals) error {
	return withApp(g, func(_ context.Context, a *app) error {
		u, ok := a.identity.Current()
		if !ok {
			fmt.Println("not signed in")
			return nil
		}
		fmt.Printf("%s <%s>\nid:   %s\nrole: %s\n", u.Name, u.Email, u.ID, u.Role)
		return nil
	})
}
