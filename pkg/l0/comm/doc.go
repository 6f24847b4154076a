// Package comm provides the L0 serial command transport.
package comm

// L0 transport is communicated between the controller and a serial WiFi
// modem speaking textual AT commands.
//
// The transport is split in two layers. Ring is a fixed capacity byte queue
// with exactly one producer and one consumer; a pair of rings decouples the
// receive/transmit side of a peripheral (Port, standing in for the UART
// interrupt handler) from the foreground caller. Channel sits on top of the
// rings and performs line oriented exchanges: send a command, discard the
// modem's echo, then collect the reply until the expected number of line
// feeds has been observed.
//
// Progress is measured in line feeds, never in byte counts. The number of
// line feeds expected for a reply depends on the kind of command (Mode).
//
// Producer: modem (through Port)
// Consumer: Channel
