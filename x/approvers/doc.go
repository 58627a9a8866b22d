/*
Package approvers maintains the set of identities allowed to settle
deposits. The set is managed by a single owner configured in the genesis
file. Members are only ever added, never revoked.
*/
package approvers
