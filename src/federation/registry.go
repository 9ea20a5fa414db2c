package federation

import (
	"sort"
	"sync"
	"time"

	cm "github.com/mosaicnetworks/rtinet/src/common"
	"github.com/mosaicnetworks/rtinet/src/fom"
	"github.com/mosaicnetworks/rtinet/src/handle"
	"github.com/mosaicnetworks/rtinet/src/logicaltime"
	"github.com/mosaicnetworks/rtinet/src/message"
	"github.com/mosaicnetworks/rtinet/src/store"
	"github.com/sirupsen/logrus"
)

// Registry owns the federation executions of a relay tree. It lives on the
// root node.
type Registry struct {
	sync.RWMutex
	byName   map[string]*Execution
	byHandle map[handle.Federation]*Execution
	creating map[string]bool
	closed   bool

	handles *handle.Allocator[handle.Federation]
	store   store.Store
	emitter Emitter
	logger  *logrus.Entry

	// Catalog writes run in order on their own goroutine, never on the
	// caller of Handle.
	writes     *cm.Queue[func()]
	writerDone chan struct{}
}

// NewRegistry creates a registry and restores the executions recorded in s
// as existing and empty.
func NewRegistry(s store.Store, emitter Emitter, logger *logrus.Entry) (*Registry, error) {
	last, err := s.LastFederationHandle()
	if err != nil {
		return nil, err
	}

	r := &Registry{
		byName:   make(map[string]*Execution),
		byHandle:   make(map[handle.Federation]*Execution),
		creating:   make(map[string]bool),
		handles:    handle.NewAllocatorFrom(last),
		store:      s,
		emitter:    emitter,
		logger:     logger,
		writes:     cm.NewQueue[func()](),
		writerDone: make(chan struct{}),
	}

	recs, err := s.Federations()
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		idx, err := fom.NewIndex(rec.Model)
		if err != nil {
			r.logger.WithFields(logrus.Fields{
				"federation": rec.Name,
				"error":      err,
			}).Error("Dropping unreadable federation record")
			continue
		}
		e := newExecution(r, rec, idx)
		r.byName[rec.Name] = e
		r.byHandle[rec.Handle] = e
		r.logger.WithField("federation", rec.Name).Debug("Restored federation execution")
	}

	go r.writeLoop()

	return r, nil
}

func (r *Registry) writeLoop() {
	defer close(r.writerDone)
	defer r.writes.Close()
	for w := range r.writes.Out() {
		if w == nil {
			return
		}
		w()
	}
}

// Handle routes req to its execution. The reply is called exactly once,
// possibly from another goroutine and possibly before Handle returns.
func (r *Registry) Handle(req *message.Request, reply ReplyFunc) {
	switch req.Op {
	case message.OpCreate:
		if err := r.create(req, reply); err != nil {
			reply(message.NewResponse(req, err))
		}
		return
	case message.OpList:
		resp := message.NewResponse(req, nil)
		resp.Federations = r.List()
		reply(resp)
		return
	case message.OpDestroy, message.OpJoin:
		r.RLock()
		e, ok := r.byName[req.Name]
		if ok {
			e.post(req, reply)
		}
		r.RUnlock()
		if !ok {
			reply(message.NewResponse(req, cm.NewRTIErr(cm.FederationExecutionDoesNotExist, "%s", req.Name)))
		}
		return
	case message.OpQueryGALT:
		r.RLock()
		e, ok := r.byHandle[req.Federation]
		r.RUnlock()
		if !ok {
			reply(message.NewResponse(req, cm.NewRTIErr(cm.FederateNotExecutionMember, "%s", handle.Format(handle.FederationKind, req.Federation))))
			return
		}
		resp := message.NewResponse(req, nil)
		resp.Time, resp.Valid = e.GALT()
		reply(resp)
		return
	}

	r.RLock()
	e, ok := r.byHandle[req.Federation]
	if ok {
		e.post(req, reply)
	}
	r.RUnlock()
	if !ok {
		reply(message.NewResponse(req, cm.NewRTIErr(cm.FederateNotExecutionMember, "%s", handle.Format(handle.FederationKind, req.Federation))))
	}
}

// create claims the name and hands the catalog write to the writer. The
// execution becomes visible, and the create is answered, once the record is
// stored. An error is returned when the create fails before that.
func (r *Registry) create(req *message.Request, reply ReplyFunc) error {
	if req.Name == "" {
		return cm.NewRTIErr(cm.IllegalName, "empty federation execution name")
	}
	if req.Model != nil {
		if _, err := logicaltime.ParseDomain(req.Model.TimeImplementation); err != nil {
			return cm.NewRTIErr(cm.CouldNotCreateLogicalTimeFactory, "%v", err)
		}
	}
	idx, err := fom.NewIndex(req.Model)
	if err != nil {
		return cm.NewRTIErr(cm.InconsistentFDD, "%v", err)
	}

	r.Lock()
	defer r.Unlock()

	if r.closed {
		return cm.NewRTIErr(cm.RTIinternalError, "registry closed")
	}
	if _, ok := r.byName[req.Name]; ok || r.creating[req.Name] {
		return cm.NewRTIErr(cm.FederationExecutionAlreadyExists, "%s", req.Name)
	}

	rec := &store.FederationRecord{
		Name:    req.Name,
		Handle:  r.handles.Next(),
		Model:   req.Model,
		Created: time.Now().UTC(),
	}
	r.creating[rec.Name] = true
	r.writes.Put(func() {
		reply(message.NewResponse(req, r.finishCreate(rec, idx)))
	})
	return nil
}

// finishCreate stores rec and installs its execution. It runs on the
// catalog writer.
func (r *Registry) finishCreate(rec *store.FederationRecord, idx *fom.Index) error {
	err := r.store.PutFederation(rec)

	r.Lock()
	defer r.Unlock()

	delete(r.creating, rec.Name)
	if err != nil {
		return cm.NewRTIErr(cm.RTIinternalError, "storing %s: %v", rec.Name, err)
	}
	if r.closed {
		return cm.NewRTIErr(cm.RTIinternalError, "registry closed")
	}

	e := newExecution(r, rec, idx)
	r.byName[rec.Name] = e
	r.byHandle[rec.Handle] = e

	r.logger.WithFields(logrus.Fields{
		"federation": rec.Name,
		"handle":     rec.Handle,
		"time":       idx.Domain,
	}).Debug("Created federation execution")

	return nil
}

// remove is called by an execution that accepted a destroy, before the
// destroy is answered.
func (r *Registry) remove(e *Execution) {
	deleted := make(chan struct{})

	r.Lock()
	delete(r.byName, e.name)
	delete(r.byHandle, e.handle)
	closed := r.closed
	if !closed {
		// Queued under the lock, so a later create of the same name is
		// stored after this delete.
		r.writes.Put(func() {
			defer close(deleted)
			if err := r.store.DeleteFederation(e.name); err != nil && !cm.IsStore(err, cm.KeyNotFound) {
				r.logger.WithFields(logrus.Fields{
					"federation": e.name,
					"error":      err,
				}).Error("Failed to delete federation record")
			}
		})
	}
	r.Unlock()

	if !closed {
		<-deleted
	}

	r.logger.WithField("federation", e.name).Debug("Destroyed federation execution")
}

// List describes the live executions, ordered by name.
func (r *Registry) List() []message.FederationInfo {
	r.RLock()
	defer r.RUnlock()

	res := make([]message.FederationInfo, 0, len(r.byName))
	for _, e := range r.byName {
		res = append(res, message.FederationInfo{
			Name:      e.name,
			Handle:    e.handle,
			Time:      e.index.Domain.String(),
			Federates: e.Members(),
		})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res
}

// Execution returns the live execution called name.
func (r *Registry) Execution(name string) (*Execution, bool) {
	r.RLock()
	defer r.RUnlock()
	e, ok := r.byName[name]
	return e, ok
}

// Executions returns all live executions.
func (r *Registry) Executions() []*Execution {
	r.RLock()
	defer r.RUnlock()
	res := make([]*Execution, 0, len(r.byName))
	for _, e := range r.byName {
		res = append(res, e)
	}
	return res
}

// Close stops every execution goroutine and waits for pending catalog
// writes. Requests still queued at executions are dropped.
func (r *Registry) Close() {
	r.Lock()
	if r.closed {
		r.Unlock()
		return
	}
	r.closed = true
	for _, e := range r.byName {
		e.stop()
	}
	r.byName = make(map[string]*Execution)
	r.byHandle = make(map[handle.Federation]*Execution)
	r.writes.Put(nil)
	r.Unlock()

	<-r.writerDone
}
