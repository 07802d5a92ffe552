// Command paydo runs the ledger API server and offers the same operations
// from the terminal.
package main

import (
	"os"
	_ "time/tzdata"

	"github.com/alecthomas/kong"
)

// globals are the flags shared by every command. Empty values keep the
// environment configuration.
type globals struct {
	EnvFile  string `name:"env-file" default:".env" help:"Environment file loaded before reading configuration."`
	Backend  string `help:"Storage backend override (memory, file, sqlite)."`
	DataDir  string `name:"data-dir" help:"Data directory override for the file backend."`
	LogLevel string `name:"log-level" help:"Log level override (debug, info, warn, error)."`
}

var commands struct {
	Globals globals `embed`

	Serve   serveCmd   `cmd help:"Serve the JSON API."`
	Budget  budgetCmd  `cmd help:"Print the monthly budget report."`
	Add     addCmd     `cmd help:"Record a transaction."`
	History historyCmd `cmd help:"List or search transactions, newest first."`
	Account accountCmd `cmd help:"Manage accounts."`
	Tags    tagsCmd    `cmd help:"Manage tags."`
	Backup  backupCmd  `cmd help:"Write a backup file."`
	Restore restoreCmd `cmd help:"Replace the ledger with a backup file."`
	Reset   resetCmd   `cmd help:"Delete every account and transaction."`
	Usage   usageCmd   `cmd help:"Show how much storage the ledger uses."`
}

func main() {
	ctx := kong.Parse(&commands,
		kong.Name("paydo"),
		kong.Description("Personal finance ledger with Persian calendar budgets."))
	err := ctx.Run(newRunContext(&commands.Globals, os.Stdout))
	ctx.FatalIfErrorf(err)
}
