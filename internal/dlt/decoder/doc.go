// Package decoder turns an unbounded stream of byte chunks into trace lines.
//
// Ownership boundary:
// - record boundary detection for file, serial and network framings
// - buffering of incomplete records between calls
// - resynchronisation after corrupt input, reported as Skipped lines
// - dispatch of payloads to the verbose, non-verbose and control codecs
//
// A Decoder serves exactly one stream and is not safe for concurrent use.
// The output for a byte sequence does not depend on how it is split across
// Decode calls.
package decoder
