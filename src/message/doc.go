// Package message defines the decoded structures exchanged between
// federates and relay nodes.
//
// There are three of them. A Request travels from a federate up the relay
// tree to the node that owns the federation execution. A Response travels
// back down the same path. A Callback is emitted by the owner and travels
// down to every federate listed in its To set; relay nodes split it per
// downstream link.
//
// Request and Callback are flat unions: Op and Kind say which fields are
// meaningful. Unused fields are omitted on the wire.
package message
