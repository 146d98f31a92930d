package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
)

// CLI is the command-line interface of the server binary.
type CLI struct {
	ConfigDir string `help:"Directory holding config.yaml and .env" default:"." type:"path"`

	Serve   ServeCmd   `cmd:"" help:"Run the API and metrics listeners (default)" default:"1"`
	Migrate MigrateCmd `cmd:"" help:"Create or update the database schema and indexes, then exit"`
}

// @title Trainer Core API
// @version 1.0
// @description Scheduling, programs, workout logging and performance analytics for personal trainers and their clients.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("trainer-core"),
		kong.Description("Personal-training platform API server."),
		kong.UsageOnError(),
	)
	if err := ctx.Run(&cli); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
