// Package encoder writes trace lines as DLT records.
//
// Ownership boundary:
// - standard and extended header construction from line features
// - verbose, non-verbose and control payload encoding
// - file, serial and network framing prefixes
// - the wrapping message counter of one output stream
//
// An Encoder never writes a partial record into the caller's buffer.
package encoder
