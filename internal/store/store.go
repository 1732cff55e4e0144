// Package store provides the client's durable storage: a handful of small
// named blobs (session token, theme preference, results cache) that must
// survive restarts.
package store

// Well-known blob keys.
const (
	KeyToken        = "token"
	KeyTheme        = "theme"
	KeyResultsCache = "resultsCache"
)

// Store persists named blobs. Get returns ok=false when the key is absent.
type Store interface {
	Get(key string) (value []byte, ok bool, err error)
	Set(key string, value []byte) error
	Delete(key string) error
}
