// Package fom holds the object and interaction model a federation execution
// is created with.
//
// Parsing FOM/FDD documents is somebody else's job. This package only
// defines the already-resolved structure the federation engine consumes: a
// class hierarchy of object classes with inheritable attributes, a class
// hierarchy of interaction classes with inheritable parameters, and the
// routing space dimensions. Decode reads that structure from a small YAML
// document, which is convenient for tools and tests:
//
//	name: demo
//	time: HLAinteger64Time
//	objectClasses:
//	  - name: HLAobjectRoot
//	  - name: Vehicle
//	    parent: HLAobjectRoot
//	    attributes:
//	      - name: Position
//	interactionClasses:
//	  - name: HLAinteractionRoot
//	  - name: Collision
//	    parent: HLAinteractionRoot
//	    parameters:
//	      - name: Force
package fom
