// Package line owns the decoded DLT record model.
//
// Ownership boundary:
// - TraceLine shared fields and feature flags
// - the tagged payload variants (verbose, non-verbose, control, skipped)
// - the cached text projection
// - sequencing of emitted lines and merged skip records
package line
