package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/erazemk/trgovina/internal/barcode"
	"github.com/erazemk/trgovina/internal/client"
	"github.com/erazemk/trgovina/internal/pos"
	"github.com/erazemk/trgovina/internal/sanitize"
)

func (e *env) scannerConfig() barcode.Config {
	return barcode.Config{
		MaxKeyInterval: e.cfg.Scanner.MaxKeyInterval,
		MinLength:      e.cfg.Scanner.MinLength,
	}
}

func posCmd() *Command {
	return &Command{
		Name:    "pos",
		Summary: "Open the point of sale.",
		Run: func(e *env, _ *pflag.FlagSet, _ []string) error {
			var prog *tea.Program
			send := func(msg tea.Msg) {
				if prog != nil {
					prog.Send(msg)
				}
			}

			api := e.newClient(
				client.WithNotifier(func(n client.Notice) { send(pos.NoticeMsg(n)) }),
				client.WithSessionExpired(func() { send(pos.SessionExpiredMsg{}) }),
			)
			model := pos.New(api, pos.Config{
				Scanner:        e.scannerConfig(),
				SearchDebounce: e.cfg.POS.SearchDebounce,
				Session:        e.sess,
				Logger:         e.log.Named("pos"),
			})

			prog = tea.NewProgram(model, tea.WithAltScreen())
			e.log.Info("pos started")
			if _, err := prog.Run(); err != nil {
				return fmt.Errorf("running pos: %w", err)
			}
			return nil
		},
	}
}

func scanCmd() *Command {
	return &Command{
		Name:    "scan",
		Summary: "Listen for barcode scans and print the scanned products. Ctrl-C stops.",
		Run: func(e *env, _ *pflag.FlagSet, _ []string) error {
			if err := e.requireLogin(); err != nil {
				return err
			}
			fd := int(e.stdin.Fd())
			if !term.IsTerminal(fd) {
				return errors.New("scan needs a terminal")
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			// Raw mode: keys arrive one by one and output needs explicit \r.
			state, err := term.MakeRaw(fd)
			if err != nil {
				return fmt.Errorf("entering raw mode: %w", err)
			}
			defer term.Restore(fd, state)

			fmt.Fprint(e.stdout, "Waiting for scans. Press Ctrl-C to stop.\r\n")
			scanner := barcode.NewScanner(e.scannerConfig(), func(code string) {
				e.printScan(ctx, code)
			})
			defer scanner.Stop()

			return barcode.Listen(ctx, e.stdin, scanner)
		},
	}
}

func (e *env) printScan(ctx context.Context, code string) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Client.Timeout)
	defer cancel()

	p, err := e.api.ProductByBarcode(ctx, code)
	switch {
	case client.IsNotFound(err):
		fmt.Fprintf(e.stdout, "%s  not found\r\n", code)
	case err != nil:
		e.log.Warn("barcode lookup", zap.String("code", code), zap.Error(err))
		fmt.Fprintf(e.stdout, "%s  %s\r\n", code, client.UserMessage(err, sanitize.ActionFetch))
	default:
		stock := "-"
		if p.Stock != nil {
			stock = fmt.Sprint(*p.Stock)
		}
		fmt.Fprintf(e.stdout, "%s  %s  %s  stock %s\r\n", code, p.Name, money(p.Price), stock)
	}
}
