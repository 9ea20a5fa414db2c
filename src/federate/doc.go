// Package federate implements the federate ambassador: the client a
// simulation uses to take part in a federation execution through a relay
// node.
//
// An Ambassador owns one link to a node. Every operation is a request that
// travels to the root and blocks until its response comes back, or until
// the context is done. Callbacks arrive on the same link and are queued in
// the order the node sent them; the response to a call always precedes the
// callbacks the call caused.
//
//	a, err := federate.Connect(trans, "10.0.0.1:1337", conf)
//	...
//	fd, err := a.JoinFederationExecution(ctx, "", "", "traffic")
//	...
//	err = a.Dispatch(ctx, func(cb *message.Callback) {
//		switch cb.Kind {
//		case message.ReflectAttributeValues:
//			...
//		}
//	})
//
// The logical time granted last and the GALT seen last are cached and can be
// read without a round trip.
package federate
