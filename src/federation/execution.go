package federation

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	cm "github.com/mosaicnetworks/rtinet/src/common"
	"github.com/mosaicnetworks/rtinet/src/fom"
	"github.com/mosaicnetworks/rtinet/src/handle"
	"github.com/mosaicnetworks/rtinet/src/logicaltime"
	"github.com/mosaicnetworks/rtinet/src/message"
	"github.com/mosaicnetworks/rtinet/src/store"
	"github.com/sirupsen/logrus"
)

type envelope struct {
	req   *message.Request
	reply ReplyFunc
}

// Execution is one federation execution. All fields below the mailbox are
// owned by the execution goroutine.
type Execution struct {
	name     string
	handle   handle.Federation
	index    *fom.Index
	domain   logicaltime.Domain
	registry *Registry
	logger   *logrus.Entry

	members atomic.Int32
	galt    *galtSet
	mailbox *cm.Queue[envelope]
	done    chan struct{}

	record    store.FederationRecord
	closed    bool
	federates map[handle.Federate]*member
	names     map[string]handle.Federate
	waiting   map[handle.Federate]*member
	out       []*message.Callback

	federateHandles   *handle.Allocator[handle.Federate]
	instanceHandles   *handle.Allocator[handle.ObjectInstance]
	retractionHandles *handle.Allocator[handle.Retraction]
	regionHandles     *handle.Allocator[handle.Region]

	objects      map[handle.ObjectInstance]*object
	reservations map[string]*reservation
	retractions  map[handle.Retraction]*retraction
	syncPoints   map[string]*syncPoint
	regions      map[handle.Region]*region
	seq          uint64
}

// member is the state of one joined federate.
type member struct {
	handle handle.Federate
	name   string
	typ    string

	timeState

	publishedObjects       map[handle.ObjectClass]map[handle.Attribute]bool
	subscribedObjects      map[handle.ObjectClass]map[handle.Attribute]bool
	publishedInteractions  map[handle.InteractionClass]bool
	subscribedInteractions map[handle.InteractionClass]bool

	// Subscription regions per class. A class subscribed without regions
	// has no entry.
	objectRegions      map[handle.ObjectClass][]handle.Region
	interactionRegions map[handle.InteractionClass][]handle.Region
}

func newExecution(r *Registry, rec *store.FederationRecord, idx *fom.Index) *Execution {
	e := &Execution{
		name:     rec.Name,
		handle:   rec.Handle,
		index:    idx,
		domain:   idx.Domain,
		registry: r,
		logger: r.logger.WithFields(logrus.Fields{
			"federation": rec.Name,
		}),
		galt:              newGALTSet(),
		mailbox:           cm.NewQueue[envelope](),
		done:              make(chan struct{}),
		record:            *rec,
		federates:         make(map[handle.Federate]*member),
		names:             make(map[string]handle.Federate),
		waiting:           make(map[handle.Federate]*member),
		federateHandles:   handle.NewAllocatorFrom(rec.LastFederate),
		instanceHandles:   handle.NewAllocatorFrom(rec.LastInstance),
		retractionHandles: handle.NewAllocator[handle.Retraction](),
		regionHandles:     handle.NewAllocator[handle.Region](),
		objects:           make(map[handle.ObjectInstance]*object),
		reservations:      make(map[string]*reservation),
		retractions:       make(map[handle.Retraction]*retraction),
		syncPoints:        make(map[string]*syncPoint),
		regions:           make(map[handle.Region]*region),
	}
	e.galt.Publish()
	go e.run()
	return e
}

// Name ...
func (e *Execution) Name() string {
	return e.name
}

// Handle ...
func (e *Execution) Handle() handle.Federation {
	return e.handle
}

// Domain ...
func (e *Execution) Domain() logicaltime.Domain {
	return e.domain
}

// Members returns the number of joined federates.
func (e *Execution) Members() int {
	return int(e.members.Load())
}

// GALT returns the last published greatest available logical time. valid
// is false when no federate is regulating.
func (e *Execution) GALT() (t logicaltime.Time, valid bool) {
	return e.galt.Load()
}

// Done is closed when the execution goroutine has exited.
func (e *Execution) Done() <-chan struct{} {
	return e.done
}

func (e *Execution) post(req *message.Request, reply ReplyFunc) {
	if !e.mailbox.Put(envelope{req: req, reply: reply}) {
		reply(message.NewResponse(req, cm.NewRTIErr(cm.FederationExecutionDoesNotExist, "%s", e.name)))
	}
}

// stop makes the goroutine exit once everything posted so far is handled.
func (e *Execution) stop() {
	e.mailbox.Put(envelope{})
}

func (e *Execution) run() {
	defer close(e.done)
	for env := range e.mailbox.Out() {
		if env.req == nil {
			e.mailbox.Close()
			return
		}
		e.dispatch(env)
	}
}

type handlerFunc func(e *Execution, m *member, req *message.Request, resp *message.Response) error

var handlers = map[message.Op]handlerFunc{
	message.OpResign:            (*Execution).resign,
	message.OpRegisterSyncPoint: (*Execution).registerSyncPoint,
	message.OpSyncPointAchieved: (*Execution).syncPointAchieved,

	message.OpPublishObjectClassAttributes:     (*Execution).publishObjectClassAttributes,
	message.OpUnpublishObjectClassAttributes:   (*Execution).unpublishObjectClassAttributes,
	message.OpSubscribeObjectClassAttributes:   (*Execution).subscribeObjectClassAttributes,
	message.OpUnsubscribeObjectClassAttributes: (*Execution).unsubscribeObjectClassAttributes,
	message.OpPublishInteractionClass:          (*Execution).publishInteractionClass,
	message.OpUnpublishInteractionClass:        (*Execution).unpublishInteractionClass,
	message.OpSubscribeInteractionClass:        (*Execution).subscribeInteractionClass,
	message.OpUnsubscribeInteractionClass:      (*Execution).unsubscribeInteractionClass,

	message.OpReserveObjectInstanceName:        (*Execution).reserveObjectInstanceName,
	message.OpReleaseObjectInstanceName:        (*Execution).releaseObjectInstanceName,
	message.OpRegisterObjectInstance:           (*Execution).registerObjectInstance,
	message.OpUpdateAttributeValues:            (*Execution).updateAttributeValues,
	message.OpSendInteraction:                  (*Execution).sendInteraction,
	message.OpDeleteObjectInstance:             (*Execution).deleteObjectInstance,
	message.OpRequestAttributeValueUpdate:      (*Execution).requestAttributeValueUpdate,
	message.OpRequestClassAttributeValueUpdate: (*Execution).requestClassAttributeValueUpdate,

	message.OpUnconditionalDivestiture:    (*Execution).unconditionalDivestiture,
	message.OpNegotiatedDivestiture:       (*Execution).negotiatedDivestiture,
	message.OpConfirmDivestiture:          (*Execution).confirmDivestiture,
	message.OpCancelNegotiatedDivestiture: (*Execution).cancelNegotiatedDivestiture,
	message.OpAcquisition:                 (*Execution).acquisition,
	message.OpAcquisitionIfAvailable:      (*Execution).acquisitionIfAvailable,
	message.OpReleaseResponse:             (*Execution).releaseResponse,
	message.OpCancelAcquisition:           (*Execution).cancelAcquisition,
	message.OpQueryAttributeOwnership:     (*Execution).queryAttributeOwnership,
	message.OpIsAttributeOwnedByFederate:  (*Execution).isAttributeOwnedByFederate,

	message.OpEnableTimeRegulation:        (*Execution).enableTimeRegulation,
	message.OpDisableTimeRegulation:       (*Execution).disableTimeRegulation,
	message.OpEnableTimeConstrained:       (*Execution).enableTimeConstrained,
	message.OpDisableTimeConstrained:      (*Execution).disableTimeConstrained,
	message.OpTimeAdvanceRequest:          (*Execution).timeAdvance,
	message.OpTimeAdvanceRequestAvailable: (*Execution).timeAdvance,
	message.OpNextMessageRequest:          (*Execution).timeAdvance,
	message.OpNextMessageRequestAvailable: (*Execution).timeAdvance,
	message.OpFlushQueueRequest:           (*Execution).timeAdvance,
	message.OpQueryLogicalTime:            (*Execution).queryLogicalTime,
	message.OpQueryLITS:                   (*Execution).queryLITS,
	message.OpModifyLookahead:             (*Execution).modifyLookahead,
	message.OpQueryLookahead:              (*Execution).queryLookahead,
	message.OpRetract:                     (*Execution).retract,

	message.OpCreateRegion:              (*Execution).createRegion,
	message.OpCommitRegionModifications: (*Execution).commitRegionModifications,
	message.OpDeleteRegion:              (*Execution).deleteRegion,
}

// dispatch handles one request. The response is always delivered before
// any callback the request caused.
func (e *Execution) dispatch(env envelope) {
	req := env.req
	resp := message.NewResponse(req, nil)
	resp.Federation = e.handle

	var err error
	destroyed := false
	switch {
	case e.closed:
		err = cm.NewRTIErr(cm.FederationExecutionDoesNotExist, "%s", e.name)
	case req.Op == message.OpJoin:
		err = e.join(req, resp)
	case req.Op == message.OpDestroy:
		err = e.destroy()
		destroyed = err == nil
	default:
		m, ok := e.federates[req.Federate]
		if !ok {
			err = cm.NewRTIErr(cm.FederateNotExecutionMember, "%s", handle.Format(handle.FederateKind, req.Federate))
			break
		}
		h, ok := handlers[req.Op]
		if !ok {
			err = cm.NewRTIErr(cm.Unsupported, "%s", req.Op)
			break
		}
		err = h(e, m, req, resp)
	}

	if err != nil {
		resp.Err, resp.ErrText = cm.ErrCode(err)
		e.logger.WithFields(logrus.Fields{
			"op":       req.Op,
			"federate": req.Federate,
			"error":    err,
		}).Debug("Request failed")
	}

	if !e.closed {
		e.settle()
	}

	env.reply(resp)
	e.flush()

	if destroyed {
		e.stop()
	}
}

// emit queues a callback; it is sent after the current response.
func (e *Execution) emit(cb *message.Callback) {
	if len(cb.To) == 0 {
		return
	}
	cb.Federation = e.handle
	e.out = append(e.out, cb)
}

func (e *Execution) flush() {
	for _, cb := range e.out {
		e.registry.emitter.Emit(cb)
	}
	e.out = e.out[:0]
}

func (e *Execution) destroy() error {
	if len(e.federates) > 0 {
		return cm.NewRTIErr(cm.FederatesCurrentlyJoined, "%d federates joined %s", len(e.federates), e.name)
	}
	e.closed = true
	e.registry.remove(e)
	return nil
}

func (e *Execution) join(req *message.Request, resp *message.Response) error {
	name := req.FederateName
	if strings.HasPrefix(name, "HLA") {
		return cm.NewRTIErr(cm.IllegalName, "federate name %q", name)
	}
	if _, ok := e.names[name]; ok && name != "" {
		return cm.NewRTIErr(cm.FederateNameAlreadyInUse, "%q in %s", name, e.name)
	}

	h := e.federateHandles.Next()
	if name == "" {
		name = fmt.Sprintf("federate-%d", h)
		for _, ok := e.names[name]; ok; _, ok = e.names[name] {
			name = name + "'"
		}
	}

	m := &member{
		handle:                 h,
		name:                   name,
		typ:                    req.FederateType,
		timeState:              newTimeState(e.domain),
		publishedObjects:       make(map[handle.ObjectClass]map[handle.Attribute]bool),
		subscribedObjects:      make(map[handle.ObjectClass]map[handle.Attribute]bool),
		publishedInteractions:  make(map[handle.InteractionClass]bool),
		subscribedInteractions: make(map[handle.InteractionClass]bool),
		objectRegions:          make(map[handle.ObjectClass][]handle.Region),
		interactionRegions:     make(map[handle.InteractionClass][]handle.Region),
	}
	e.federates[h] = m
	e.names[name] = h
	e.members.Store(int32(len(e.federates)))

	resp.Federate = h
	resp.Name = name
	resp.Model = e.index.Model

	e.record.LastFederate = h
	e.saveRecord()

	e.joinSyncPoints(m)

	e.logger.WithFields(logrus.Fields{
		"federate": h,
		"name":     name,
		"type":     req.FederateType,
	}).Debug("Federate joined")

	return nil
}

// resign retires every piece of state m holds. Link loss ends up here too.
func (e *Execution) resign(m *member, req *message.Request, resp *message.Response) error {
	e.cancelAcquisitionsOf(m)
	if req.ResignAction.Deletes() {
		e.deleteObjectsOf(m)
	}
	e.divestAllOf(m)
	e.forgetDeclarationsOf(m)
	e.forgetRegionsOf(m)
	e.retireTimeStateOf(m)
	e.leaveSyncPoints(m)
	e.releaseReservationsOf(m)

	delete(e.federates, m.handle)
	delete(e.names, m.name)
	delete(e.waiting, m.handle)
	e.members.Store(int32(len(e.federates)))

	e.logger.WithFields(logrus.Fields{
		"federate": m.handle,
		"name":     m.name,
		"action":   req.ResignAction,
	}).Debug("Federate resigned")

	return nil
}

func (e *Execution) saveRecord() {
	e.record.LastInstance = e.instanceHandles.Last()
	rec := e.record
	if err := e.registry.store.PutFederation(&rec); err != nil {
		e.logger.WithField("error", err).Error("Failed to store federation record")
	}
}

// sortedMembers returns the federates of set ordered by handle.
func sortedMembers(set map[handle.Federate]*member) []*member {
	res := make([]*member, 0, len(set))
	for _, m := range set {
		res = append(res, m)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].handle < res[j].handle })
	return res
}

func sortedFederates(set map[handle.Federate]bool) []handle.Federate {
	res := make([]handle.Federate, 0, len(set))
	for f := range set {
		res = append(res, f)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

func sortedAttributes(set map[handle.Attribute]bool) []handle.Attribute {
	res := make([]handle.Attribute, 0, len(set))
	for a := range set {
		res = append(res, a)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}
