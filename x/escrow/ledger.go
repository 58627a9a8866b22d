package escrow

import (
	"github.com/iov-one/vault"
	"github.com/iov-one/vault/errors"
	"github.com/iov-one/vault/orm"
)

// BucketName is where the deposits are stored.
const BucketName = "deposit"

// Ledger stores every deposit ever made. Deposits are keyed by their id
// encoded as a sequence value, so that iteration follows creation order.
type Ledger struct {
	bucket orm.ModelBucket
	ids    orm.Sequence
}

// NewLedger returns a ledger using the default bucket.
func NewLedger() *Ledger {
	return &Ledger{
		bucket: orm.NewModelBucket(BucketName, &Deposit{},
			orm.WithIndex("depositor", depositorIndex),
			orm.WithIndex("approver", approverIndex),
		),
		ids: orm.NewSequence(BucketName, "id"),
	}
}

func depositorIndex(obj orm.Model) ([][]byte, error) {
	d, ok := obj.(*Deposit)
	if !ok {
		return nil, errors.WithType(errors.ErrModel, obj)
	}
	return [][]byte{d.Depositor}, nil
}

func approverIndex(obj orm.Model) ([][]byte, error) {
	d, ok := obj.(*Deposit)
	if !ok {
		return nil, errors.WithType(errors.ErrModel, obj)
	}
	return [][]byte{d.Approver}, nil
}

// Create stores a new pending deposit and returns its id. Ids start at 1
// and grow by one with every call.
func (l *Ledger) Create(db vault.KVStore, amount int64, receiver, approver, depositor vault.Address, createdAt vault.UnixTime) (uint64, error) {
	id, err := l.ids.NextInt(db)
	if err != nil {
		return 0, errors.Wrap(err, "cannot acquire id")
	}
	d := &Deposit{
		ID:        id,
		Amount:    amount,
		Depositor: depositor,
		Receiver:  receiver,
		Approver:  approver,
		CreatedAt: createdAt,
		Status:    Pending,
	}
	if _, err := l.bucket.Put(db, orm.EncodeSequence(id), d); err != nil {
		return 0, errors.Wrap(err, "cannot store deposit")
	}
	return id, nil
}

// Get returns the deposit with given id. Ids that were never issued result
// in ErrInvalidID.
func (l *Ledger) Get(db vault.ReadOnlyKVStore, id uint64) (*Deposit, error) {
	if id == 0 {
		return nil, errors.Wrap(ErrInvalidID, "zero")
	}
	var d Deposit
	switch err := l.bucket.One(db, orm.EncodeSequence(id), &d); {
	case err == nil:
		return &d, nil
	case errors.ErrNotFound.Is(err):
		return nil, errors.Wrapf(ErrInvalidID, "%d", id)
	default:
		return nil, err
	}
}

// LastID returns the id of the most recent deposit, or zero if none exists.
func (l *Ledger) LastID(db vault.ReadOnlyKVStore) (uint64, error) {
	return l.ids.Latest(db)
}

// Transition settles a pending deposit. The caller must be the approver when
// moving to Approved or Refunded and the depositor when moving to
// Reclaimed. The updated deposit is returned.
//
// This is the only place where a stored deposit is modified.
func (l *Ledger) Transition(db vault.KVStore, id uint64, caller vault.Address, next Status) (*Deposit, error) {
	d, err := l.Get(db, id)
	if err != nil {
		return nil, err
	}
	if d.Status != Pending {
		return nil, errors.Wrapf(ErrAlreadyTouched, "deposit %d is %s", id, d.Status)
	}
	switch next {
	case Approved, Refunded:
		if !d.Approver.Equals(caller) {
			return nil, errors.Wrapf(ErrNotAnApprover, "deposit %d", id)
		}
	case Reclaimed:
		if !d.Depositor.Equals(caller) {
			return nil, errors.Wrapf(errors.ErrUnauthorized, "deposit %d belongs to %s", id, d.Depositor)
		}
	default:
		return nil, errors.Wrapf(errors.ErrState, "cannot move deposit to %s", next)
	}

	d.Status = next
	if _, err := l.bucket.Put(db, orm.EncodeSequence(id), d); err != nil {
		return nil, errors.Wrap(err, "cannot store deposit")
	}
	return d, nil
}

// ListPendingExpired returns the pending deposits of the depositor which
// age, at time now, reached the window. Deposits are returned in id order.
// The store must not be modified while the iterator is in use.
func (l *Ledger) ListPendingExpired(db vault.ReadOnlyKVStore, depositor vault.Address, now vault.UnixTime, window int64) (*DepositIterator, error) {
	it, err := l.bucket.IndexScan(db, "depositor", depositor)
	if err != nil {
		return nil, err
	}
	return &DepositIterator{
		models: it,
		accept: func(d *Deposit) bool {
			return d.Status == Pending && d.Expired(now, window)
		},
	}, nil
}

// ByDepositor returns all deposits made by given address in id order.
func (l *Ledger) ByDepositor(db vault.ReadOnlyKVStore, depositor vault.Address) (*DepositIterator, error) {
	it, err := l.bucket.IndexScan(db, "depositor", depositor)
	if err != nil {
		return nil, err
	}
	return &DepositIterator{models: it}, nil
}

// ByApprover returns all deposits to be settled by given address in id
// order.
func (l *Ledger) ByApprover(db vault.ReadOnlyKVStore, approver vault.Address) (*DepositIterator, error) {
	it, err := l.bucket.IndexScan(db, "approver", approver)
	if err != nil {
		return nil, err
	}
	return &DepositIterator{models: it}, nil
}

// DepositIterator lazily loads deposits. Once exhausted, Next returns
// errors.ErrIteratorDone.
type DepositIterator struct {
	models orm.ModelIterator
	accept func(*Deposit) bool
}

// Next returns the next matching deposit.
func (it *DepositIterator) Next() (*Deposit, error) {
	for {
		var d Deposit
		if _, err := it.models.LoadNext(&d); err != nil {
			return nil, err
		}
		if it.accept == nil || it.accept(&d) {
			return &d, nil
		}
	}
}

// Release releases the iterator.
func (it *DepositIterator) Release() {
	it.models.Release()
}

// Collect reads all remaining deposits and releases the iterator.
func Collect(it *DepositIterator) ([]*Deposit, error) {
	defer it.Release()

	var res []*Deposit
	for {
		switch d, err := it.Next(); {
		case err == nil:
			res = append(res, d)
		case errors.ErrIteratorDone.Is(err):
			return res, nil
		default:
			return nil, err
		}
	}
}
