package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"github.com/iov-one/vault"
	"github.com/iov-one/vault/errors"
	"github.com/iov-one/vault/eventlog"
	"github.com/iov-one/vault/x/approvers"
	"github.com/iov-one/vault/x/cash"
	"github.com/iov-one/vault/x/escrow"
)

func cmdBalance(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ContinueOnError)
	fl.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), `
Print the balance of an account. Use -custody to see the funds held for
pending deposits.
		`)
		fl.PrintDefaults()
	}
	var (
		addrFl    = flAddress(fl, "addr", "", "Address of the account.")
		custodyFl = fl.Bool("custody", false, "Print the balance of the custody account.")
	)
	if err := fl.Parse(args); err != nil {
		return err
	}
	addr := *addrFl
	if *custodyFl {
		addr = escrow.CustodyAddress
	}
	if err := addr.Validate(); err != nil {
		return fmt.Errorf("invalid address: %s", err)
	}

	bank := cash.NewController(cash.NewBucket())
	return view(func(db vault.ReadOnlyKVStore) error {
		balance, err := bank.Balance(db, addr)
		if err != nil {
			return err
		}
		fmt.Fprintln(output, balance)
		return nil
	})
}

// depositView is the JSON representation of a deposit.
type depositView struct {
	ID        uint64         `json:"id"`
	Amount    int64          `json:"amount"`
	Depositor vault.Address  `json:"depositor"`
	Receiver  vault.Address  `json:"receiver"`
	Approver  vault.Address  `json:"approver"`
	CreatedAt vault.UnixTime `json:"created_at"`
	Status    string         `json:"status"`
}

func newDepositView(d *escrow.Deposit) depositView {
	return depositView{
		ID:        d.ID,
		Amount:    d.Amount,
		Depositor: d.Depositor,
		Receiver:  d.Receiver,
		Approver:  d.Approver,
		CreatedAt: d.CreatedAt,
		Status:    d.Status.String(),
	}
}

func cmdShow(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ContinueOnError)
	fl.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), `
Print deposits as JSON. Select a single deposit with -id, or all deposits of
a depositor or an approver.
		`)
		fl.PrintDefaults()
	}
	var (
		idFl        = fl.Uint64("id", 0, "ID of the deposit.")
		depositorFl = flAddress(fl, "depositor", "", "List all deposits made by this address.")
		approverFl  = flAddress(fl, "approver", "", "List all deposits settled by this address.")
	)
	if err := fl.Parse(args); err != nil {
		return err
	}

	ledger := escrow.NewLedger()
	var deposits []depositView
	err := view(func(db vault.ReadOnlyKVStore) error {
		var it *escrow.DepositIterator
		var err error
		switch {
		case *idFl != 0:
			d, err := ledger.Get(db, *idFl)
			if err != nil {
				return err
			}
			deposits = append(deposits, newDepositView(d))
			return nil
		case len(*depositorFl) != 0:
			it, err = ledger.ByDepositor(db, *depositorFl)
		case len(*approverFl) != 0:
			it, err = ledger.ByApprover(db, *approverFl)
		default:
			return errors.Wrap(errors.ErrInput, "one of -id, -depositor or -approver is required")
		}
		if err != nil {
			return err
		}
		found, err := escrow.Collect(it)
		if err != nil {
			return err
		}
		for _, d := range found {
			deposits = append(deposits, newDepositView(d))
		}
		return nil
	})
	if err != nil {
		return err
	}
	return writeJSON(output, deposits)
}

func cmdApprovers(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ContinueOnError)
	fl.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), `
Print the registry owner followed by all registered approvers.
		`)
		fl.PrintDefaults()
	}
	if err := fl.Parse(args); err != nil {
		return err
	}

	registry := approvers.NewRegistry()
	return view(func(db vault.ReadOnlyKVStore) error {
		owner, err := registry.Owner(db)
		if err != nil {
			return err
		}
		all, err := registry.Approvers(db)
		if err != nil {
			return err
		}
		fmt.Fprintf(output, "owner %s\n", owner)
		for _, a := range all {
			fmt.Fprintf(output, "approver %s\n", a)
		}
		return nil
	})
}

func cmdEvents(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ContinueOnError)
	fl.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), `
Print the event log, one event per line, starting with the given sequence.
		`)
		fl.PrintDefaults()
	}
	var (
		fromFl = fl.Uint64("from", 0, "Sequence of the first event to print.")
	)
	if err := fl.Parse(args); err != nil {
		return err
	}

	events := eventlog.NewLog()
	return view(func(db vault.ReadOnlyKVStore) error {
		it, err := events.Iterate(db, *fromFl)
		if err != nil {
			return err
		}
		defer it.Release()
		for {
			seq, rec, err := it.Next()
			switch {
			case errors.ErrIteratorDone.Is(err):
				return nil
			case err != nil:
				return err
			}
			payload, err := escrow.DecodeEvent(rec)
			if err != nil {
				return err
			}
			body, err := json.Marshal(payload)
			if err != nil {
				return fmt.Errorf("cannot serialize event %d: %s", seq, err)
			}
			fmt.Fprintf(output, "%d\t%d\t%s\t%s\t%s\n", seq, rec.Height, rec.Time, rec.Name, body)
		}
	})
}

// view opens the database configured by the environment and runs fn on it.
func view(fn func(vault.ReadOnlyKVStore) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, closeApp, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer closeApp()
	return a.View(fn)
}

func writeJSON(output io.Writer, v interface{}) error {
	raw, err := json.MarshalIndent(v, "", "\t")
	if err != nil {
		return fmt.Errorf("cannot serialize: %s", err)
	}
	_, err = fmt.Fprintln(output, string(raw))
	return err
}
