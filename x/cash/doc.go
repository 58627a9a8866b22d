/*
Package cash keeps the balances of native currency units owned by every
address. All value transfers of the ledger, including the ones done by the
escrow, go through the Controller of this package.

The cash package exposes a SendMsg to move funds between accounts and
allows minting initial balances from the genesis file.
*/
package cash
