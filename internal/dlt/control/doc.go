// Package control owns DLT control message payloads.
//
// Ownership boundary:
// - service id table and names
// - request and response payload types and their text
// - decode and encode of control payloads in message byte order
//
// Service ids at or above 0xFFF that are not in the table are software
// injections and carry an opaque payload.
package control
