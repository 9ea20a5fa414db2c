// Package store keeps the catalog of federation executions owned by a root
// relay node, so that a restarted root keeps refusing duplicate creates and
// never reissues a federation handle.
package store

import (
	"time"

	"github.com/mosaicnetworks/rtinet/src/fom"
	"github.com/mosaicnetworks/rtinet/src/handle"
)

// FederationRecord is the persisted part of a federation execution.
type FederationRecord struct {
	Name    string            `codec:"name"`
	Handle  handle.Federation `codec:"handle"`
	Model   *fom.Model        `codec:"model"`
	Created time.Time         `codec:"created"`

	// Handle watermarks, so that handles are not reissued after a restart.
	LastFederate handle.Federate       `codec:"lastFederate"`
	LastInstance handle.ObjectInstance `codec:"lastInstance"`
}

// Store ...
type Store interface {
	PutFederation(rec *FederationRecord) error
	GetFederation(name string) (*FederationRecord, error)
	DeleteFederation(name string) error
	Federations() ([]*FederationRecord, error)
	LastFederationHandle() (handle.Federation, error)
	StorePath() string
	Close() error
}
