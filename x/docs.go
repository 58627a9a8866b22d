/*
Package x contains the extensions of the vault ledger.

Extensions implement common functionality (Handler, Decorator,
etc.) and are combined together to construct the application.
Every extension keeps its own buckets, messages and handlers and
accesses other extensions only through small interfaces, so that
for example the escrow does not depend on how balances are stored.
*/
package x
