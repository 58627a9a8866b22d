package orm

import (
	"reflect"

	"github.com/iov-one/vault"
)

// Model is implemented by any entity that can be stored using ModelBucket.
type Model interface {
	vault.Persistent
	Validate() error
}

// Indexer calculates the index values of a model. A model may be indexed
// under any number of values, including none.
type Indexer func(Model) ([][]byte, error)

// newModel returns a new, zero value instance of the same type as given
// model. Model must be a pointer to a structure.
func newModel(proto Model) Model {
	return reflect.New(reflect.TypeOf(proto).Elem()).Interface().(Model)
}
