// Package channel keeps one decoder per logical byte stream.
//
// A Mux maps channel keys (a file name, a remote address) to Channels. The
// mux lock only covers adding, finding and removing channels. Decoding runs
// on whichever goroutine owns the channel's reads, so a Channel must not be
// fed from two goroutines at once.
package channel
