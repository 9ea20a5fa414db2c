// Package node implements the relay node, the building block of a relay
// tree.
//
// A node accepts links from federates and from child nodes, and holds at most
// one link to its parent. The node without a parent is the root: it owns the
// federation registry, so every federation execution in the tree lives there
// and all its mutations are serialized by that execution's goroutine.
//
// Routing
//
// Requests travel up. A node that is not the root records each request in a
// correlation table under a fresh identifier, forwards it to its parent, and
// goes on routing; the caller's identifier is restored when the response
// comes back down the same path. No link ever waits for a response.
//
// Callbacks travel down. They are addressed to a set of federates; each node
// splits that set per child link, using routes learned from join responses,
// and drops federates it has no route to.
//
// Link loss
//
// When a child link closes, every federate behind it is resigned upward with
// the CancelThenDeleteThenDivest action, exactly as if it had resigned
// itself. A join answered after its link closed is undone the same way. When
// the parent link closes, the node can no longer reach the registry: it
// closes all its child links and shuts down.
package node
