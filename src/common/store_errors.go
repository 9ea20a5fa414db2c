package common

import "fmt"

// StoreErrType ...
type StoreErrType uint32

const (
	// KeyNotFound is returned when the catalog holds no such entry.
	KeyNotFound StoreErrType = iota
)

// StoreErr is returned by catalog stores.
type StoreErr struct {
	dataType string
	errType  StoreErrType
	key      string
}

// NewStoreErr ...
func NewStoreErr(dataType string, errType StoreErrType, key string) StoreErr {
	return StoreErr{
		dataType: dataType,
		errType:  errType,
		key:      key,
	}
}

// Error ...
func (e StoreErr) Error() string {
	m := "unknown store error"
	if e.errType == KeyNotFound {
		m = "not found"
	}
	return fmt.Sprintf("%s %q: %s", e.dataType, e.key, m)
}

// IsStore checks that an error is of type StoreErr and that it's code matches
// the provided StoreErr code.
func IsStore(err error, t StoreErrType) bool {
	storeErr, ok := err.(StoreErr)
	return ok && storeErr.errType == t
}
