// Package history records reversible edit operations for a buffer and
// supports undo/redo. Consecutive keystroke-sized edits coalesce into
// single undo units; explicit groups collapse bulk operations such as
// replace-all into one step.
package history
