// Package args owns DLT argument primitives.
//
// Ownership boundary:
// - the verbose type-info word and its bit fields
// - one codec per verbose argument kind
// - non-verbose PDU decoding driven by catalogue type names
// - ASCII (ISO-8859-15) and UTF-8 text codings
package args
