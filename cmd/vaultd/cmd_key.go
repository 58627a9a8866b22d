package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"os"

	"github.com/iov-one/vault/crypto"
)

func cmdKeygen(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ContinueOnError)
	fl.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), `
Generate a new private key and store it in a file. Existing files are never
overwritten.
		`)
		fl.PrintDefaults()
	}
	var (
		keyPathFl = fl.String("key", "vault.key", "Path to the file the private key is written to.")
	)
	if err := fl.Parse(args); err != nil {
		return err
	}

	if _, err := os.Stat(*keyPathFl); !os.IsNotExist(err) {
		return fmt.Errorf("private key file %q exists, not overwriting", *keyPathFl)
	}

	key, err := crypto.GenPrivateKey()
	if err != nil {
		return err
	}
	fd, err := os.OpenFile(*keyPathFl, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0400)
	if err != nil {
		return fmt.Errorf("cannot create private key file: %s", err)
	}
	defer fd.Close()
	if _, err := io.WriteString(fd, hex.EncodeToString(key.Seed())); err != nil {
		return fmt.Errorf("cannot write private key: %s", err)
	}
	if err := fd.Close(); err != nil {
		return fmt.Errorf("cannot close private key file: %s", err)
	}
	fmt.Fprintln(output, key.PublicKey().Address())
	return nil
}

func cmdKeyaddr(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ContinueOnError)
	fl.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), `
Print out the address of the private key stored in a file. Use -bech32 to
get a checksummed representation.
		`)
		fl.PrintDefaults()
	}
	var (
		keyPathFl = fl.String("key", "vault.key", "Path to the private key file.")
		hrpFl     = fl.String("bech32", "", "If set, print the bech32 address with given human readable part.")
	)
	if err := fl.Parse(args); err != nil {
		return err
	}

	key, err := readKey(*keyPathFl)
	if err != nil {
		return err
	}
	addr := key.PublicKey().Address()
	if *hrpFl == "" {
		fmt.Fprintln(output, addr)
		return nil
	}
	b32, err := addr.Bech32(*hrpFl)
	if err != nil {
		return fmt.Errorf("cannot encode bech32 address: %s", err)
	}
	fmt.Fprintln(output, b32)
	return nil
}

// readKey loads the private key written by the keygen command.
func readKey(path string) (crypto.PrivateKey, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read private key file: %s", err)
	}
	return crypto.ParsePrivateKey(string(raw))
}
