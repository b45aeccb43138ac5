// Package ingest reads DLT byte streams from files, packet captures, TCP
// servers and UDP sockets, feeds them through per-stream decoders and hands
// the decoded lines to a Sink.
package ingest
