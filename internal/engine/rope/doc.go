// Package rope implements an immutable chunked text storage with a
// per-chunk newline index.
//
// Text is stored as an ordered table of bounded string chunks together
// with prefix sums of byte lengths and newline counts. Mutating
// operations return a new Rope value that shares every untouched chunk
// with the original, so taking a snapshot is allocation-free and a
// snapshot can be read from any goroutine while the owner keeps
// editing.
//
// Complexity: a localized k-byte edit re-chunks only the affected
// region (O(k)) and rebuilds the prefix-sum table (O(c) for c chunks,
// c = len/4KiB). Line and offset lookups binary-search the prefix sums
// in O(log c) plus a scan of a single chunk.
package rope
