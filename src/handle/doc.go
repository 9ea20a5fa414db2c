// Package handle defines the typed identifiers issued inside a federation
// execution and the allocator that issues them.
//
// Every kind of handle (federate, object class, object instance, attribute,
// interaction class, parameter, dimension, region, retraction) lives in its
// own disjoint space. A handle is a strictly increasing unsigned integer
// starting at 1; the zero value is never issued and is used as "no handle".
// Handles are never reused for the lifetime of the allocator that issued
// them.
package handle
