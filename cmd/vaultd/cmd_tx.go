package main

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/iov-one/vault"
	"github.com/iov-one/vault/app"
	"github.com/iov-one/vault/orm"
	"github.com/iov-one/vault/x/approvers"
	"github.com/iov-one/vault/x/cash"
	"github.com/iov-one/vault/x/escrow"
	"github.com/iov-one/vault/x/sigs"
)

func cmdDeposit(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ContinueOnError)
	fl.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), `
Place funds in custody until the approver releases them to the receiver or
refunds them. Attached must equal the declared amount.
		`)
		fl.PrintDefaults()
	}
	var (
		keyPathFl  = fl.String("key", "vault.key", "Path to the private key signing the transaction.")
		amountFl   = fl.Int64("amount", 0, "Declared amount of the deposit.")
		attachedFl = fl.Int64("attached", -1, "Value attached to the deposit. Defaults to the declared amount.")
		receiverFl = flAddress(fl, "receiver", "", "Address the funds are released to.")
		approverFl = flAddress(fl, "approver", "", "Address of the approver settling the deposit.")
		nowFl      = flTime(fl)
	)
	if err := fl.Parse(args); err != nil {
		return err
	}
	attached := *attachedFl
	if attached < 0 {
		attached = *amountFl
	}

	msg := &escrow.DepositMsg{
		Amount:   *amountFl,
		Attached: attached,
		Receiver: *receiverFl,
		Approver: *approverFl,
	}
	res, err := submit(*keyPathFl, nowFl(), msg)
	if err != nil {
		return err
	}
	id, err := orm.DecodeSequence(res.Data)
	if err != nil {
		return fmt.Errorf("cannot decode deposit id: %s", err)
	}
	fmt.Fprintf(output, "deposit %d created at height %d\n", id, res.Height)
	return nil
}

func cmdApprove(input io.Reader, output io.Writer, args []string) error {
	return settle(output, args, "approve", "Release the funds of a pending deposit to its receiver.",
		func(id uint64) vault.Msg { return &escrow.ApproveMsg{DepositID: id} })
}

func cmdRefund(input io.Reader, output io.Writer, args []string) error {
	return settle(output, args, "refund", "Return the funds of a pending deposit to its depositor.",
		func(id uint64) vault.Msg { return &escrow.RefundMsg{DepositID: id} })
}

// settle implements the commands acting on a single deposit as its
// approver.
func settle(output io.Writer, args []string, action, help string, build func(uint64) vault.Msg) error {
	fl := flag.NewFlagSet("", flag.ContinueOnError)
	fl.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "\n%s\n\n", help)
		fl.PrintDefaults()
	}
	var (
		keyPathFl = fl.String("key", "vault.key", "Path to the private key of the approver.")
		idFl      = fl.Uint64("id", 0, "ID of the deposit.")
		nowFl     = flTime(fl)
	)
	if err := fl.Parse(args); err != nil {
		return err
	}

	res, err := submit(*keyPathFl, nowFl(), build(*idFl))
	if err != nil {
		return err
	}
	fmt.Fprintf(output, "%s of deposit %d done at height %d\n", action, *idFl, res.Height)
	return nil
}

func cmdReclaim(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ContinueOnError)
	fl.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), `
Take back the funds of all pending deposits that outlived the expiration
window. Only deposits made by the signer are reclaimed.
		`)
		fl.PrintDefaults()
	}
	var (
		keyPathFl = fl.String("key", "vault.key", "Path to the private key of the depositor.")
		nowFl     = flTime(fl)
	)
	if err := fl.Parse(args); err != nil {
		return err
	}

	key, err := readKey(*keyPathFl)
	if err != nil {
		return err
	}
	msg := &escrow.ReclaimMsg{Depositor: key.PublicKey().Address()}
	res, err := submit(*keyPathFl, nowFl(), msg)
	if err != nil {
		return err
	}
	total, err := orm.DecodeSequence(res.Data)
	if err != nil {
		return fmt.Errorf("cannot decode reclaimed total: %s", err)
	}
	fmt.Fprintf(output, "reclaimed %d at height %d\n", total, res.Height)
	return nil
}

func cmdAddApprover(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ContinueOnError)
	fl.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), `
Register a new approver. Only the registry owner can sign this transaction.
		`)
		fl.PrintDefaults()
	}
	var (
		keyPathFl  = fl.String("key", "vault.key", "Path to the private key of the registry owner.")
		approverFl = flAddress(fl, "approver", "", "Address of the new approver.")
		nowFl      = flTime(fl)
	)
	if err := fl.Parse(args); err != nil {
		return err
	}

	res, err := submit(*keyPathFl, nowFl(), &approvers.AddApproverMsg{Approver: *approverFl})
	if err != nil {
		return err
	}
	fmt.Fprintf(output, "approver %s registered at height %d\n", *approverFl, res.Height)
	return nil
}

func cmdSend(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ContinueOnError)
	fl.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), `
Transfer funds from the signer account to another address.
		`)
		fl.PrintDefaults()
	}
	var (
		keyPathFl = fl.String("key", "vault.key", "Path to the private key of the sender.")
		dstFl     = flAddress(fl, "dst", "", "Destination address.")
		amountFl  = fl.Int64("amount", 0, "Amount to transfer.")
		memoFl    = fl.String("memo", "", "Optional short note.")
		nowFl     = flTime(fl)
	)
	if err := fl.Parse(args); err != nil {
		return err
	}

	key, err := readKey(*keyPathFl)
	if err != nil {
		return err
	}
	msg := &cash.SendMsg{
		Source:      key.PublicKey().Address(),
		Destination: *dstFl,
		Amount:      *amountFl,
		Memo:        *memoFl,
	}
	res, err := submit(*keyPathFl, nowFl(), msg)
	if err != nil {
		return err
	}
	fmt.Fprintf(output, "sent %d to %s at height %d\n", *amountFl, *dstFl, res.Height)
	return nil
}

// submit signs given message with the key stored under keyPath using the
// current sequence of that key and delivers it as a new block.
func submit(keyPath string, now time.Time, msg vault.Msg) (*app.Result, error) {
	key, err := readKey(keyPath)
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a, closeApp, err := openApp(cfg)
	if err != nil {
		return nil, err
	}
	defer closeApp()

	chainID := a.ChainID()
	if chainID == "" {
		return nil, fmt.Errorf("database in %s is not initialized, run init first", cfg.Home)
	}

	var seq int64
	err = a.View(func(db vault.ReadOnlyKVStore) error {
		var err error
		seq, err = sigs.NextSequence(db, key.PublicKey())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("cannot load sequence: %s", err)
	}

	tx := app.NewTx(msg)
	if err := tx.Sign(key, chainID, seq); err != nil {
		return nil, fmt.Errorf("cannot sign transaction: %s", err)
	}
	raw, err := tx.Marshal()
	if err != nil {
		return nil, fmt.Errorf("cannot serialize transaction: %s", err)
	}

	res := a.DeliverTx(now, raw)
	if res.IsErr() {
		return nil, fmt.Errorf("transaction %s failed with code %d: %s", res.Ref, res.Code, res.Log)
	}
	return &res, nil
}
