/*
Package escrow implements deposits held in custody until a designated
approver settles them.

A depositor places funds for a receiver. The approver named in the deposit
either approves it, releasing the funds to the receiver, or refunds it,
returning the funds to the depositor. A deposit that nobody settled within
the expiration window can be reclaimed by its depositor. Every deposit is
settled exactly once and is never deleted.

All funds are kept by a single custody address. The status of a deposit is
always written before any funds leave the custody, so a transfer that calls
back into the engine finds the deposit already settled.
*/
package escrow
