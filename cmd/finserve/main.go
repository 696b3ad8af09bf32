// Command finserve serves the synchronized state surface and offers a few
// local commands over the same durable cache.
package main

import (
	"github.com/alecthomas/kong"
)

var version = "dev"

// Globals are the flags shared by every command.
type Globals struct {
	Config  string           `short:"c" help:"Configuration file (TOML or YAML)" type:"path" env:"FINSERVE_CONFIG"`
	Verbose bool             `short:"v" help:"Enable debug logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`
}

// CLI is the command tree.
type CLI struct {
	Globals

	Serve     ServeCmd     `cmd:"" help:"Run the HTTP API"`
	Keys      KeysCmd      `cmd:"" help:"List cached state keys"`
	Get       GetCmd       `cmd:"" help:"Print a state value after reconciling it"`
	Set       SetCmd       `cmd:"" help:"Overwrite a state value"`
	Edit      EditCmd      `cmd:"" help:"Overwrite a value and push it to the remote source (admin)"`
	Login     LoginCmd     `cmd:"" help:"Start a session"`
	Logout    LogoutCmd    `cmd:"" help:"End the session"`
	Whoami    WhoamiCmd    `cmd:"" help:"Show the session user"`
	Dashboard DashboardCmd `cmd:"" help:"Render the finance dashboard for the session user"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("finserve"),
		kong.Description("Local-first state synchronization service."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
