// Command trgovina-server runs the trgovina REST API.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/erazemk/trgovina/internal/config"
)

const usage = `Usage: trgovina-server <command> [flags]

Commands:
  serve   run the API server (creates the database on first run)
  seed    generate a demo company in the database

Run "trgovina-server <command> -h" for the command's flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = cmdServe(os.Args[2:])
	case "seed":
		err = cmdSeed(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n%s", os.Args[1], usage)
		os.Exit(1)
	}

	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// commonFlags registers the flags every command shares and returns a
// loader for the merged configuration.
func commonFlags(fs *pflag.FlagSet) func(extra ...config.FlagKey) (*config.Config, error) {
	file := fs.StringP("config", "c", "", "config file (default: trgovina.yaml search)")
	fs.StringP("db", "d", "", "SQLite database path")
	fs.StringP("log", "l", "", "log file path")
	fs.String("log-level", "", "debug, info, warn or error")

	return func(extra ...config.FlagKey) (*config.Config, error) {
		keys := append([]config.FlagKey{
			{Flag: "db", Key: "server.db"},
			{Flag: "log", Key: "log.file"},
			{Flag: "log-level", Key: "log.level"},
		}, extra...)
		return config.Load(*file, fs, keys...)
	}
}
