// Command trgovina is the operator CLI and terminal point of sale for a
// trgovina server.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/erazemk/trgovina/internal/client"
	"github.com/erazemk/trgovina/internal/config"
	"github.com/erazemk/trgovina/internal/logging"
	"github.com/erazemk/trgovina/internal/sanitize"
	"github.com/erazemk/trgovina/internal/session"
)

func root() *Command {
	return &Command{
		Name:    "trgovina",
		Summary: "Manage a trgovina store from the terminal.",
		Subcommands: []*Command{
			loginCmd(), logoutCmd(), whoamiCmd(), passwdCmd(),
			posCmd(), scanCmd(),
			branchesCmd(), productsCmd(), stockCmd(),
			salesCmd(), shiftsCmd(),
			suppliersCmd(), ordersCmd(),
			alertsCmd(), reportsCmd(),
			usersCmd(), rolesCmd(),
			companiesCmd(), usageCmd(), feedbackCmd(),
		},
	}
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, errorText(err))
		os.Exit(1)
	}
}

func run(args []string) error {
	global := pflag.NewFlagSet("trgovina", pflag.ContinueOnError)
	global.SetInterspersed(false)
	global.Usage = func() {}
	cfgFile := global.StringP("config", "c", "", "config file")
	output := global.StringP("output", "o", "table", "output format: table, json or yaml")
	global.String("url", "", "API base URL")
	global.String("session", "", "session file")

	if err := global.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			root().PrintHelp(os.Stdout)
			fmt.Fprintln(os.Stdout, "\nGlobal flags:")
			fmt.Fprint(os.Stdout, global.FlagUsages())
			return nil
		}
		return usageErr("%v", err)
	}

	e := &env{stdout: os.Stdout, stderr: os.Stderr, stdin: os.Stdin, format: *output}
	if err := e.init(*cfgFile, global); err != nil {
		return err
	}
	defer e.close()
	return root().Execute(e, global.Args())
}

// env is the state shared by every command.
type env struct {
	stdout io.Writer
	stderr io.Writer
	stdin  *os.File
	in     *bufio.Reader
	format string

	cfg      *config.Config
	log      *zap.Logger
	closeLog func()
	sess     *session.Store
	api      *client.Client
}

func (e *env) init(cfgFile string, fs *pflag.FlagSet) error {
	switch e.format {
	case "table", "json", "yaml":
	default:
		return usageErr("unknown output format %q", e.format)
	}

	cfg, err := config.Load(cfgFile, fs,
		config.FlagKey{Flag: "url", Key: "client.base_url"},
		config.FlagKey{Flag: "session", Key: "client.session_file"},
	)
	if err != nil {
		return err
	}
	e.cfg = cfg

	// The terminal belongs to command output and the POS screen.
	logCfg := cfg.Log
	logCfg.Quiet = true
	e.log, e.closeLog, err = logging.New(logCfg)
	if err != nil {
		return err
	}

	path := cfg.Client.SessionFile
	if path == "" {
		if path, err = session.DefaultPath(); err != nil {
			return err
		}
	}
	if e.sess, err = session.OpenFileStore(path); err != nil {
		return err
	}

	e.api = e.newClient()
	return nil
}

func (e *env) newClient(opts ...client.Option) *client.Client {
	opts = append([]client.Option{
		client.WithTokenStore(e.sess),
		client.WithLogger(e.log.Named("client")),
	}, opts...)
	return client.New(client.Config{
		BaseURL:   e.cfg.Client.BaseURL,
		Timeout:   e.cfg.Client.Timeout,
		UserAgent: "trgovina-cli",
	}, opts...)
}

func (e *env) close() {
	if e.closeLog != nil {
		e.closeLog()
	}
}

func (e *env) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), e.cfg.Client.Timeout+5*time.Second)
}

// requireLogin fails early when there is no stored session.
func (e *env) requireLogin() error {
	if !e.sess.LoggedIn() {
		return errors.New("not logged in, run 'trgovina login' first")
	}
	return nil
}

// branch returns the --branch flag, falling back to the session's branch.
func (e *env) branch(fs *pflag.FlagSet) int64 {
	if id, _ := fs.GetInt64("branch"); id != 0 {
		return id
	}
	return e.sess.BranchID()
}

// actionError carries what the user was doing, for the sanitized message.
type actionError struct {
	action sanitize.Action
	err    error
}

func (a *actionError) Error() string { return a.err.Error() }
func (a *actionError) Unwrap() error { return a.err }

func failed(a sanitize.Action, err error) error {
	if err == nil {
		return nil
	}
	return &actionError{action: a, err: err}
}

// errorText is what the user sees for err. API errors are sanitized.
func errorText(err error) string {
	var ae *actionError
	if errors.As(err, &ae) {
		return "error: " + client.UserMessage(ae.err, ae.action)
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) || errors.Is(err, client.ErrSessionExpired) {
		return "error: " + client.UserMessage(err, sanitize.ActionGeneric)
	}
	return "error: " + err.Error()
}

func parseID(args []string, what string) (int64, error) {
	if len(args) != 1 {
		return 0, usageErr("expected one %s id", what)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, usageErr("invalid %s id %q", what, args[0])
	}
	return id, nil
}
