package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/erazemk/trgovina/internal/logging"
	"github.com/erazemk/trgovina/internal/seed"
)

func cmdSeed(args []string) error {
	fs := pflag.NewFlagSet("seed", pflag.ContinueOnError)
	load := commonFlags(fs)
	var opts seed.Options
	fs.Uint64Var(&opts.Seed, "seed", 0, "random seed (default: random)")
	fs.IntVar(&opts.Branches, "branches", 2, "number of branches")
	fs.IntVar(&opts.Products, "products", 40, "number of products")
	fs.IntVar(&opts.Sales, "sales", 25, "sales per branch")
	fs.StringVar(&opts.Password, "password", "demo-password", "password of every demo account")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := load()
	if err != nil {
		return err
	}
	log, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()

	database, err := openDatabase(cfg.Server.DB)
	if err != nil {
		return err
	}
	defer database.Close()

	res, err := seed.Run(context.Background(), database, opts, log.Named("seed"))
	if errors.Is(err, seed.ErrAlreadySeeded) {
		log.Warn("database already holds demo data", zap.String("path", cfg.Server.DB))
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("Demo company: %s\n", res.Company.Name)
	fmt.Printf("  %d branches, %d products, %d suppliers, %d sales\n",
		res.Branches, res.Products, res.Suppliers, res.Sales)
	fmt.Println()
	fmt.Printf("Admin:    %s\n", res.Admin)
	fmt.Printf("Manager:  %s\n", seed.ManagerUsername)
	fmt.Printf("Cashiers: %s\n", strings.Join(res.Cashiers, ", "))
	fmt.Printf("Password: %s\n", opts.Password)
	return nil
}
