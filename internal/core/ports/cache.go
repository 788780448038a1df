package ports

import "encoding/json"

// ResponseCache is the short-lived in-process store for upstream payloads.
// The store is process-local and infallible, so operations carry no error path;
// freshness is evaluated on lookup and stale entries simply read as absent.
type ResponseCache interface {
	// Get returns the cached payload for key. ok=false when the key is absent
	// or the entry has outlived its TTL.
	Get(key string) (payload json.RawMessage, ok bool)
	// Set stores payload under key with the current timestamp, overwriting any
	// previous entry.
	Set(key string, payload json.RawMessage)
	// Size reports the number of stored entries, stale ones included.
	Size() int
}
