package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/erazemk/trgovina/internal/sanitize"
)

func loginCmd() *Command {
	return &Command{
		Name:    "login",
		Summary: "Sign in and store the session.",
		Args:    "[username]",
		Flags: func(fs *pflag.FlagSet) {
			fs.Bool("password-stdin", false, "read the password from stdin")
		},
		Run: func(e *env, fs *pflag.FlagSet, args []string) error {
			username := ""
			if len(args) > 0 {
				username = args[0]
			}
			if username == "" {
				if me := e.sess.User(); me != nil {
					username = me.Username
				}
			}
			if username == "" {
				var err error
				if username, err = e.prompt("Username: "); err != nil {
					return err
				}
			}

			fromStdin, _ := fs.GetBool("password-stdin")
			password, err := e.readPassword("Password: ", fromStdin)
			if err != nil {
				return err
			}

			ctx, cancel := e.ctx()
			defer cancel()
			pair, err := e.api.Login(ctx, username, password)
			if err != nil {
				return failed(sanitize.ActionAuth, err)
			}
			if err := e.sess.SetUser(pair.User); err != nil {
				return err
			}
			if pair.User.BranchID != nil {
				if err := e.sess.SetBranch(*pair.User.BranchID); err != nil {
					return err
				}
			}
			e.log.Info("logged in")
			fmt.Fprintf(e.stdout, "Logged in as %s.\n", pair.User.Username)
			return nil
		},
	}
}

func logoutCmd() *Command {
	return &Command{
		Name:    "logout",
		Summary: "Revoke the session tokens and forget the session.",
		Run: func(e *env, _ *pflag.FlagSet, _ []string) error {
			if !e.sess.LoggedIn() {
				fmt.Fprintln(e.stdout, "Not logged in.")
				return nil
			}
			ctx, cancel := e.ctx()
			defer cancel()
			if err := e.api.Logout(ctx); err != nil {
				e.log.Warn("revoking tokens", zap.Error(err))
			}
			fmt.Fprintln(e.stdout, "Logged out.")
			return nil
		},
	}
}

func whoamiCmd() *Command {
	return &Command{
		Name:    "whoami",
		Summary: "Show the signed-in user.",
		Run: func(e *env, _ *pflag.FlagSet, _ []string) error {
			if err := e.requireLogin(); err != nil {
				return err
			}
			ctx, cancel := e.ctx()
			defer cancel()
			me, err := e.api.Me(ctx)
			if err != nil {
				return failed(sanitize.ActionFetch, err)
			}
			if err := e.sess.SetUser(me); err != nil {
				return err
			}

			role := "user"
			switch {
			case me.IsPlatformAdmin:
				role = "platform admin"
			case me.IsAdmin:
				role = "company admin"
			case me.RoleName != "":
				role = me.RoleName
			}
			return e.emit(record(me,
				[2]string{"Username", me.Username},
				[2]string{"Name", orDash(me.FullName)},
				[2]string{"Company", orDash(me.CompanyName)},
				[2]string{"Branch", orDash(me.BranchName)},
				[2]string{"Role", role},
				[2]string{"Permissions", orDash(strings.Join(me.Permissions, ", "))},
			))
		},
	}
}

func passwdCmd() *Command {
	return &Command{
		Name:    "passwd",
		Summary: "Change your password.",
		Run: func(e *env, _ *pflag.FlagSet, _ []string) error {
			if err := e.requireLogin(); err != nil {
				return err
			}
			current, err := e.readPassword("Current password: ", false)
			if err != nil {
				return err
			}
			next, err := e.readPassword("New password: ", false)
			if err != nil {
				return err
			}
			again, err := e.readPassword("Repeat new password: ", false)
			if err != nil {
				return err
			}
			if next != again {
				return errors.New("passwords do not match")
			}

			ctx, cancel := e.ctx()
			defer cancel()
			if err := e.api.ChangePassword(ctx, current, next); err != nil {
				return failed(sanitize.ActionUpdate, err)
			}
			fmt.Fprintln(e.stdout, "Password changed.")
			return nil
		},
	}
}

func (e *env) prompt(label string) (string, error) {
	fmt.Fprint(e.stderr, label)
	line, err := e.readLine()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readLine reads one line of stdin through a reader shared by all prompts.
func (e *env) readLine() (string, error) {
	if e.in == nil {
		e.in = bufio.NewReader(e.stdin)
	}
	line, err := e.in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readPassword prompts with echo off, or reads one line from stdin when
// stdin is not a terminal or fromStdin is set.
func (e *env) readPassword(label string, fromStdin bool) (string, error) {
	fd := int(e.stdin.Fd())
	if fromStdin || !term.IsTerminal(fd) {
		return e.readLine()
	}

	fmt.Fprint(e.stderr, label)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(e.stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	if len(b) == 0 {
		return "", errors.New("password cannot be empty")
	}
	return string(b), nil
}
