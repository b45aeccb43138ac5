// Package catalogue resolves non-verbose message identifiers to frame
// descriptions.
//
// Ownership boundary:
// - frame and PDU descriptors
// - layered lookup (ECU overlay, application/context sub-maps, global map)
// - decoding a non-verbose payload against a frame
// - loading frames from TOML files derived from FIBEX
//
// A Catalogue is built once and then only read; concurrent lookups are safe
// once loading has finished.
package catalogue
