/*
Package app links together all the extensions into a running ledger.

Application keeps the committed store and processes one transaction at a
time. Every delivered transaction is a block of its own: it gets the next
height and the block time given by the caller.
*/
package app
