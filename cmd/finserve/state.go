package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/PaesslerAG/jsonpath"

	ferrors "github.com/vinayprograms/finserve/errors"
	"github.com/vinayprograms/finserve/keymap"
	"github.com/vinayprograms/finserve/server"
	"github.com/vinayprograms/finserve/syncstate"
)

// KeysCmd lists the keys held by the durable cache.
type KeysCmd struct {
	Pattern string `arg:"" optional:"" default:"*" help:"Key pattern with a trailing * wildcard"`
}

func (k *KeysCmd) Run(g *Globals) error {
	return withApp(g, func(_ context.Context, a *app) error {
		keys, err := a.cache.Keys(k.Pattern)
		if err != nil {
			return err
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Println(key)
		}
		return nil
	})
}

// GetCmd prints one value.
type GetCmd struct {
	Key     string        `arg:"" help:"State key"`
	Default string        `help:"Default JSON used when nothing is cached"`
	Path    string        `short:"p" help:"JSONPath expression selecting part of the value, e.g. $.budget[0].limit"`
	Wait    time.Duration `default:"3s" help:"How long to wait for reconciliation"`
}

func (c *GetCmd) Run(g *Globals) error {
	return withApp(g, func(ctx context.Context, a *app) error {
		e, err := openEntry(ctx, a, c.Key, c.Default, c.Wait)
		if err != nil {
			return err
		}
		raw, err := e.JSON()
		if err != nil {
			return err
		}
		if c.Path != "" {
			if raw, err = selectPath(raw, c.Path); err != nil {
				return err
			}
		}
		fmt.Fprintf(os.Stderr, "phase: %s\n", e.Phase())
		return printJSON(os.Stdout, raw)
	})
}

// SetCmd overwrites a value. The write lands after reconciliation so the
// remote result cannot replace it.
type SetCmd struct {
	Key   string        `arg:"" help:"State key"`
	Value string        `arg:"" help:"New value as JSON, or - to read stdin"`
	Wait  time.Duration `default:"3s" help:"How long to wait for reconciliation before writing"`
}

func (c *SetCmd) Run(g *Globals) error {
	return withApp(g, func(ctx context.Context, a *app) error {
		_, err := setValue(ctx, a, c.Key, c.Value, c.Wait)
		return err
	})
}

// EditCmd is the admin editor: it overwrites a singleton and pushes it to the
// remote source.
type EditCmd struct {
	Key   string        `arg:"" help:"State key of a singleton resource"`
	Value string        `arg:"" help:"New value as JSON, or - to read stdin"`
	Wait  time.Duration `default:"3s" help:"How long to wait for reconciliation before writing"`
}

func (c *EditCmd) Run(g *Globals) error {
	return withApp(g, func(ctx context.Context, a *app) error {
		u, ok := a.identity.Current()
		if !ok {
			return ferrors.New(ferrors.ErrCodeUnauthorized, "no session: run finserve login first")
		}
		if !u.IsAdmin() {
			return ferrors.New(ferrors.ErrCodeForbidden, u.Email+" is not an admin")
		}
		e, err := setValue(ctx, a, c.Key, c.Value, c.Wait)
		if err != nil {
			return err
		}
		if e.Shape() != keymap.ShapeObject {
			return nil
		}
		return e.Push(ctx)
	})
}

func setValue(ctx context.Context, a *app, key, value string, wait time.Duration) (syncstate.Entry, error) {
	body, err := readValue(value, os.Stdin)
	if err != nil {
		return nil, err
	}
	e, err := openEntry(ctx, a, key, "", wait)
	if err != nil {
		return nil, err
	}
	if err := e.EditRaw(body); err != nil {
		return nil, err
	}
	raw, err := e.JSON()
	if err != nil {
		return nil, err
	}
	return e, printJSON(os.Stdout, raw)
}

// withApp builds the app, runs fn and closes the app.
func withApp(g *Globals, fn func(context.Context, *app) error) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a, err := newApp(ctx, g, appOptions{})
	if err != nil {
		return err
	}
	err = fn(ctx, a)
	if cerr := a.Close(); err == nil && cerr != nil {
		err = cerr
	}
	return err
}

func openEntry(ctx context.Context, a *app, key, override string, wait time.Duration) (syncstate.Entry, error) {
	def, err := server.DefaultFor(key, override)
	if err != nil {
		return nil, err
	}
	e, err := a.pool.Entry(key, def)
	if err != nil {
		return nil, err
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-e.Done():
	case <-timer.C:
		a.logger.Warn("reconciliation still running, using local value", map[string]interface{}{"key": key})
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return e, nil
}

func readValue(value string, stdin io.Reader) ([]byte, error) {
	if value != "-" {
		return []byte(value), nil
	}
	return io.ReadAll(stdin)
}

// selectPath evaluates a JSONPath expression against raw.
func selectPath(raw json.RawMessage, path string) (json.RawMessage, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	v, err := jsonpath.Get(path, doc)
	if err != nil {
		return nil, ferrors.InvalidInput("path", err.Error())
	}
	return json.Marshal(v)
}

func printJSON(w io.Writer, raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}
