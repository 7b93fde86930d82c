// Package cookie extracts request cookies from the raw, interleaved header
// list a transport hands to the router.
//
// # Architecture boundaries
//
// This package is a pure transformation over already-buffered header data. It
// does NOT validate cookie names, decode values, or consult the session store.
package cookie
