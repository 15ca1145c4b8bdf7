// Package swp implements a sliding-window selective-repeat data-link
// protocol (the classical "protocol 6"): reliable, in-order delivery of
// packets over a channel that may lose, corrupt, duplicate and reorder
// frames.
//
// # Architecture
//
// A Protocol owns the sender and receiver windows and runs a single event
// loop. Everything that happens to the link arrives as an Event on one
// EventQueue:
//
//   - NetworkLayerReady: the upper layer has a packet and send credit.
//   - FrameArrival: an intact frame was received from the physical layer.
//   - ChecksumError: a corrupted frame was received.
//   - Timeout: a retransmission timer fired for a sequence number.
//   - AckTimeout: the delayed-ACK timer fired.
//
// The physical layer, the upper layer and the two timer facilities only post
// events; window state is mutated exclusively by the goroutine running
// [Protocol.Run].
//
// # Windows
//
// Sequence numbers are taken from [seqnum.Space] [0, MaxSeq]. The window size
// NR_BUFS is (MaxSeq+1)/2 for both directions. Every frame piggybacks a
// cumulative acknowledgement of everything received before the receiver's
// lower window edge. A frame that arrives out of order triggers one NAK per
// error episode so the sender can retransmit just that frame.
//
// # Timers
//
// Each outstanding send slot has a retransmission timer (default 200ms).
// A single delayed-ACK timer (default 50ms) makes sure received data is
// acknowledged even when no reverse traffic carries the acknowledgement.
package swp
