// Package store provides the key-value persistence boundary used by the
// result cache, the quota guard and the usage tracker. Implementations
// must never return partially written values.
package store

// Store defines the interface for persisted key-value state
type Store interface {
	// Get returns the value for key. The bool reports presence; the
	// error reports storage trouble, never absence.
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
	// Keys returns every stored key with the given prefix.
	Keys(prefix string) ([]string, error)
	Clear() error
}
