package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
)

// errUsage marks errors caused by how the command was called.
var errUsage = errors.New("usage")

func usageErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

// Command is one node of the CLI tree. Exactly one of Run or Subcommands
// is set.
type Command struct {
	Name    string
	Summary string
	// Args names the positional arguments in help output.
	Args string

	// Flags registers the command's flags on a fresh set.
	Flags       func(fs *pflag.FlagSet)
	Subcommands []*Command
	Run         func(e *env, fs *pflag.FlagSet, args []string) error

	parent *Command
}

func (c *Command) fullName() string {
	if c.parent == nil {
		return c.Name
	}
	return c.parent.fullName() + " " + c.Name
}

// Execute dispatches args to the matching subcommand or runs c.
func (c *Command) Execute(e *env, args []string) error {
	if len(args) > 0 && isHelpFlag(args[0]) {
		c.PrintHelp(e.stdout)
		return nil
	}

	if len(c.Subcommands) > 0 {
		if len(args) == 0 || strings.HasPrefix(args[0], "-") {
			c.PrintHelp(e.stderr)
			return usageErr("%s: subcommand required", c.fullName())
		}
		for _, sub := range c.Subcommands {
			if sub.Name == args[0] {
				sub.parent = c
				return sub.Execute(e, args[1:])
			}
		}
		return usageErr("unknown command %q, run '%s --help' for usage", args[0], c.fullName())
	}

	fs := pflag.NewFlagSet(c.fullName(), pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if c.Flags != nil {
		c.Flags(fs)
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			c.PrintHelp(e.stdout)
			return nil
		}
		return usageErr("%v, run '%s --help' for usage", err, c.fullName())
	}
	return c.Run(e, fs, fs.Args())
}

// PrintHelp writes the command's usage, subcommands and flags.
func (c *Command) PrintHelp(w io.Writer) {
	usage := c.fullName()
	if len(c.Subcommands) > 0 {
		usage += " <command>"
	}
	if c.Args != "" {
		usage += " " + c.Args
	}
	fmt.Fprintf(w, "Usage: %s [flags]\n", usage)
	if c.Summary != "" {
		fmt.Fprintf(w, "\n%s\n", c.Summary)
	}

	if len(c.Subcommands) > 0 {
		fmt.Fprintln(w, "\nCommands:")
		width := 0
		for _, sub := range c.Subcommands {
			width = max(width, len(sub.Name))
		}
		for _, sub := range c.Subcommands {
			fmt.Fprintf(w, "  %-*s  %s\n", width, sub.Name, sub.Summary)
		}
	}

	if c.Flags != nil {
		fs := pflag.NewFlagSet(c.Name, pflag.ContinueOnError)
		c.Flags(fs)
		fmt.Fprintln(w, "\nFlags:")
		fmt.Fprint(w, fs.FlagUsages())
	}
}

func isHelpFlag(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}
