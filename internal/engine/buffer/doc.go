// Package buffer provides the mutable text buffer at the heart of a
// document: offset and line/column addressing, validated edits,
// immutable snapshots for background work, and change notification
// fan-out to the subsystems that track buffer state (undo, highlight,
// search, autosave).
package buffer
