package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/iov-one/vault/app"
)

func cmdInit(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ContinueOnError)
	fl.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), `
Load the genesis file into a new database. The genesis declares the chain id,
the initial balances, the registry owner with its approvers and the
expiration window of deposits. A database can be initialized only once.
		`)
		fl.PrintDefaults()
	}
	var (
		genesisFl = fl.String("genesis", "genesis.json", "Path to the genesis file.")
	)
	if err := fl.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	gen, err := app.LoadGenesis(*genesisFl)
	if err != nil {
		return err
	}
	if cfg.ChainID != "" && cfg.ChainID != gen.ChainID {
		return fmt.Errorf("genesis declares chain %q, not %q", gen.ChainID, cfg.ChainID)
	}

	a, closeApp, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer closeApp()

	if err := a.InitChain(gen); err != nil {
		return err
	}
	fmt.Fprintf(output, "chain %s initialized in %s\n", gen.ChainID, cfg.dbPath())
	return nil
}
