// Package federation implements the authoritative state of federation
// executions: the registry of live executions, their joined federates, time
// management, declarations, the object and ownership directory and
// synchronization points.
//
// Only the root relay node runs this package. Every execution is an actor:
// one goroutine drains an unbounded FIFO mailbox and is the only writer of
// the execution's state. Requests are posted with a reply function and never
// block the caller; responses and callbacks leave through the reply function
// and the Emitter in the order the actor produced them.
//
// The registry maps names and handles to executions. Creating an execution
// is serialized by the registry lock, so of any number of concurrent creates
// for one name exactly one succeeds.
package federation
