package storage

import "errors"

var ErrNotFound = errors.New("key not found")

// Store is the browser-local style key-value persistence the whole system
// runs on: synchronous get/set/delete of JSON values addressed by string
// keys, scoped to a single device. Update is the one extension over that
// contract: a serialized read-modify-write, so concurrent in-process writers
// cannot lose each other's increments.
type Store interface {
	// Get decodes the value under key into v. Returns ErrNotFound when the
	// key is absent.
	Get(key string, v any) error

	// Set encodes v as JSON and persists it under key, replacing any
	// previous value.
	Set(key string, v any) error

	// Delete removes key. Deleting an absent key is a no-op.
	Delete(key string) error

	// Update runs fn with the current raw JSON value (nil when absent) and
	// persists what fn returns. Returning nil raw deletes the key. fn errors
	// abort the update and are returned unchanged. Calls to Update on the
	// same store are serialized.
	Update(key string, fn func(raw []byte) ([]byte, error)) error

	Close() error
}
