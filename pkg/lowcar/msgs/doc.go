// Package msgs provides the lowcar message and identity model.
package msgs

// Lowcar messages are exchanged between a peripheral board and the
// host bridge. The framing/checksum layer delivers them fully decoded:
// a message id, a payload length and a bounded payload. Messages are
// transient and never retained across control ticks.
//
// Producer: lowcar board / host bridge
// Consumer: lowcar board / host bridge
