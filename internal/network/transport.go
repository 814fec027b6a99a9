package network

import (
	"context"
	"fmt"
)

// Row is a single record returned by a router, as loosely-typed
// vendor-keyed string fields. Parsing is the caller's job.
type Row map[string]string

// Transport owns one authenticated session to one router endpoint and
// translates path/parameter requests into the vendor wire protocol.
//
// Two implementations exist side by side: the binary RouterOS API client
// and the REST-over-HTTP client, because router firmware versions support
// different protocols. Both must stay interchangeable behind this shape.
//
// Path conventions:
//   - Read takes the collection path (e.g. /ip/hotspot/user) and issues the
//     vendor's listing command against it, filtered by query.
//   - Write takes the full command path including the verb
//     (e.g. /ip/hotspot/user/add, /ip/hotspot/user/set).
//   - Remove takes the collection path and the vendor record id.
//
// A transport never retries, reconnects or buffers; retry policy belongs to
// the caller. Every call is a real round trip.
type Transport interface {
	// Connect establishes the session. Lazy: Read/Write/Remove call it on
	// first use, and repeated calls reuse the existing session.
	Connect(ctx context.Context) error

	// Read lists records under path matching query (nil query lists all).
	Read(ctx context.Context, path string, query map[string]string) ([]Row, error)

	// Write executes a mutating command. The returned row carries any
	// vendor reply attributes (e.g. the id of a created record).
	Write(ctx context.Context, path string, params map[string]string) (Row, error)

	// Remove deletes the record with the given vendor id under path.
	Remove(ctx context.Context, path string, id string) error

	// Disconnect releases the session. Safe to call when not connected.
	Disconnect() error
}

// ConnectionError wraps a transport-level failure (unreachable host,
// rejected credentials, timeout). Callers must not assume automatic retry.
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("router connection to %s failed: %v", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
