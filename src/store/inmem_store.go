package store

import (
	"sort"
	"sync"

	cm "github.com/mosaicnetworks/rtinet/src/common"
	"github.com/mosaicnetworks/rtinet/src/handle"
)

// InmemStore is a Store that forgets everything on exit.
type InmemStore struct {
	sync.Mutex
	federations map[string]*FederationRecord
	last        handle.Federation
}

// NewInmemStore ...
func NewInmemStore() *InmemStore {
	return &InmemStore{
		federations: make(map[string]*FederationRecord),
	}
}

// PutFederation ...
func (s *InmemStore) PutFederation(rec *FederationRecord) error {
	s.Lock()
	defer s.Unlock()
	c := *rec
	s.federations[rec.Name] = &c
	if rec.Handle > s.last {
		s.last = rec.Handle
	}
	return nil
}

// GetFederation ...
func (s *InmemStore) GetFederation(name string) (*FederationRecord, error) {
	s.Lock()
	defer s.Unlock()
	rec, ok := s.federations[name]
	if !ok {
		return nil, cm.NewStoreErr("Federation", cm.KeyNotFound, name)
	}
	c := *rec
	return &c, nil
}

// DeleteFederation ...
func (s *InmemStore) DeleteFederation(name string) error {
	s.Lock()
	defer s.Unlock()
	if _, ok := s.federations[name]; !ok {
		return cm.NewStoreErr("Federation", cm.KeyNotFound, name)
	}
	delete(s.federations, name)
	return nil
}

// Federations returns all records ordered by name.
func (s *InmemStore) Federations() ([]*FederationRecord, error) {
	s.Lock()
	defer s.Unlock()
	res := make([]*FederationRecord, 0, len(s.federations))
	for _, rec := range s.federations {
		c := *rec
		res = append(res, &c)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res, nil
}

// LastFederationHandle ...
func (s *InmemStore) LastFederationHandle() (handle.Federation, error) {
	s.Lock()
	defer s.Unlock()
	return s.last, nil
}

// StorePath ...
func (s *InmemStore) StorePath() string {
	return ""
}

// Close ...
func (s *InmemStore) Close() error {
	return nil
}
