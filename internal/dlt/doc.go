// Package dlt owns the shared vocabulary of the DLT wire protocol.
//
// Ownership boundary:
// - message type/subtype classification and descriptions
// - line feature flags
// - fixed 4-byte identifier slots
//
// Header, argument, catalogue, decoder and encoder primitives live in the
// sub-packages.
package dlt
