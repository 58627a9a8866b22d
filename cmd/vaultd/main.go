/*
Command vaultd runs the escrow ledger on a local database.

Every command opens the database found in VAULT_HOME, executes and closes
it again. Transactions are signed with a local key and delivered as a block
of their own.

  $ vaultd keygen -key owner.key
  $ vaultd init -genesis genesis.json
  $ vaultd deposit -key alice.key -amount 100 -attached 100 -receiver <addr> -approver <addr>
  $ vaultd approve -key approver.key -id 1
*/
package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// commands is a register of all available commands that can be executed by
// this program. The name is used to match with the first argument given.
//
// A command function is given stdin, stdout and the command line arguments
// without the program name and the command name. It is expected to read and
// write only to provided input and output.
var commands = map[string]func(input io.Reader, output io.Writer, args []string) error{
	"add-approver": cmdAddApprover,
	"approve":      cmdApprove,
	"approvers":    cmdApprovers,
	"balance":      cmdBalance,
	"deposit":      cmdDeposit,
	"events":       cmdEvents,
	"init":         cmdInit,
	"keyaddr":      cmdKeyaddr,
	"keygen":       cmdKeygen,
	"reclaim":      cmdReclaim,
	"refund":       cmdRefund,
	"send":         cmdSend,
	"show":         cmdShow,
	"version":      cmdVersion,
}

func main() {
	if len(os.Args) == 1 {
		fmt.Fprintf(os.Stderr, "%s runs the vault escrow ledger.\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Usage: %s <command> [<flags>]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nAvailable commands are:\n\t%s\n", strings.Join(availableCmds(), "\n\t"))
		fmt.Fprintf(os.Stderr, "Run '%s <command> -help' to learn more about each command.\n", os.Args[0])
		os.Exit(2)
	}
	run, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "\nAvailable commands are:\n\t%s\n", strings.Join(availableCmds(), "\n\t"))
		os.Exit(2)
	}

	// Skip two first arguments. Second argument is the command name that
	// we just consumed.
	if err := run(os.Stdin, os.Stdout, os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func availableCmds() []string {
	available := make([]string, 0, len(commands))
	for name := range commands {
		available = append(available, name)
	}
	sort.Strings(available)
	return available
}

func cmdVersion(in io.Reader, out io.Writer, args []string) error {
	fmt.Fprintln(out, gitHash)
	return nil
}

// gitHash is set during the compilation time.
var gitHash string = "dev"
