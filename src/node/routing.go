package node

import (
	"sort"
	"time"

	cm "github.com/mosaicnetworks/rtinet/src/common"
	"github.com/mosaicnetworks/rtinet/src/handle"
	"github.com/mosaicnetworks/rtinet/src/message"
	"github.com/mosaicnetworks/rtinet/src/net"
	"github.com/sirupsen/logrus"
)

type eventKind uint8

const (
	evLink eventKind = iota
	evChildFrame
	evChildLost
	evParentFrame
	evParentLost
	evReply
	evCallback
	evLocal
	evStats
)

type event struct {
	kind     eventKind
	link     net.Link
	child    *child
	frame    *net.Frame
	response *message.Response
	callback *message.Callback
	request  *message.Request
	reply    func(*message.Response)
	stats    chan map[string]string
}

// child is a link to a federate or to a child node.
type child struct {
	link      net.Link
	kind      net.PeerKind
	name      string
	gone      bool
	federates map[route]bool
}

// route names one joined federate.
type route struct {
	federation handle.Federation
	federate   handle.Federate
}

// pending is an entry of the correlation table: a request sent up the tree
// and waiting for its response. from is nil for requests the node issued
// itself.
type pending struct {
	from  *child
	id    uint64
	reply func(*message.Response)

	op         message.Op
	federation handle.Federation
	federate   handle.Federate
	sent       time.Time
}

func (n *Node) handle(ev event) {
	switch ev.kind {
	case evLink:
		n.addChild(ev.link)
	case evChildFrame:
		n.childFrame(ev.child, ev.frame)
	case evChildLost:
		n.removeChild(ev.child)
	case evParentFrame:
		n.parentFrame(ev.frame)
	case evParentLost:
		n.logger.Error("Lost parent link, shutting down")
		n.stop()
	case evReply:
		n.respond(ev.response)
	case evCallback:
		n.deliver(ev.callback)
	case evLocal:
		n.forward(ev.request, &pending{reply: ev.reply})
	case evStats:
		ev.stats <- n.stats()
	}
}

func (n *Node) addChild(l net.Link) {
	c := &child{
		link:      l,
		kind:      net.PeerFederate,
		federates: make(map[route]bool),
	}
	n.children[l.ID()] = c
	n.metrics.Links.Set(float64(len(n.children)))

	n.logger.WithFields(logrus.Fields{
		"link":   l.ID(),
		"remote": l.RemoteAddr(),
	}).Debug("Accepted link")

	go n.readChild(c)
}

// removeChild resigns every federate behind a lost link, exactly as if each
// had resigned itself.
func (n *Node) removeChild(c *child) {
	if c.gone {
		return
	}
	c.gone = true
	delete(n.children, c.link.ID())
	c.link.Close()

	lost := sortedRoutes(c.federates)
	for _, r := range lost {
		delete(n.routes, r)
		delete(c.federates, r)
		n.resignLost(r)
	}

	n.logger.WithFields(logrus.Fields{
		"link":      c.link.ID(),
		"name":      c.name,
		"federates": len(lost),
	}).Debug("Lost child link")

	n.metrics.Links.Set(float64(len(n.children)))
	n.updateGauges()
}

func (n *Node) childFrame(c *child, f *net.Frame) {
	if c.gone {
		return
	}

	switch f.Type {
	case net.FrameHello:
		c.kind = f.Hello.Kind
		c.name = f.Hello.Name
		n.logger.WithFields(logrus.Fields{
			"link": c.link.ID(),
			"name": c.name,
			"kind": c.kind.String(),
		}).Debug("Hello")
	case net.FrameRequest:
		n.request(c, f.Request)
	default:
		n.logger.WithFields(logrus.Fields{
			"link": c.link.ID(),
			"type": f.Type.String(),
		}).Warn("Unexpected frame from child link")
	}
}

func (n *Node) parentFrame(f *net.Frame) {
	switch f.Type {
	case net.FrameResponse:
		n.respond(f.Response)
	case net.FrameCallback:
		n.deliver(f.Callback)
	default:
		n.logger.WithField("type", f.Type.String()).Warn("Unexpected frame from parent link")
	}
}

// request checks that the caller is joined through c, then sends req up.
func (n *Node) request(c *child, req *message.Request) {
	if !req.Op.Lifecycle() && n.routes[route{req.Federation, req.Federate}] != c {
		err := cm.NewRTIErr(cm.FederateNotExecutionMember, "%s of %s is not joined through this link",
			handle.Format(handle.FederateKind, req.Federate),
			handle.Format(handle.FederationKind, req.Federation))
		n.send(c, net.NewResponseFrame(message.NewResponse(req, err)))
		return
	}

	n.forward(req, &pending{from: c, id: req.ID})
}

// forward records p under a fresh id and hands a copy of req to the
// registry on the root, or to the parent link.
func (n *Node) forward(req *message.Request, p *pending) {
	n.nextID++
	id := n.nextID

	p.op = req.Op
	p.federation = req.Federation
	p.federate = req.Federate
	p.sent = time.Now()
	n.pending[id] = p
	n.metrics.Pending.Set(float64(len(n.pending)))

	up := req.Copy()
	up.ID = id

	if n.registry != nil {
		n.registry.Handle(up, func(resp *message.Response) {
			n.inbox.Put(event{kind: evReply, response: resp})
		})
		return
	}

	if err := n.parent.Send(net.NewRequestFrame(up)); err != nil {
		n.respond(message.NewResponse(up, cm.NewRTIErr(cm.NotConnected, "%v", err)))
		return
	}
	n.metrics.Forwarded.Inc()
	n.metrics.Routed.WithLabelValues(net.FrameRequest.String()).Inc()
}

// respond matches resp with its pending entry and passes it down.
func (n *Node) respond(resp *message.Response) {
	p, ok := n.pending[resp.ID]
	if !ok {
		n.logger.WithField("id", resp.ID).Warn("Dropping response to unknown request")
		return
	}
	delete(n.pending, resp.ID)
	n.metrics.Pending.Set(float64(len(n.pending)))

	n.learn(p, resp)

	resp.ID = p.id
	switch {
	case p.reply != nil:
		p.reply(resp)
	case p.from == nil:
		n.logger.WithFields(logrus.Fields{
			"op":    p.op.String(),
			"error": resp.Error(),
			"after": time.Since(p.sent),
		}).Debug("Implicit request answered")
	case !p.from.gone:
		n.send(p.from, net.NewResponseFrame(resp))
	}
}

// learn updates the routing table from successful joins and resigns.
func (n *Node) learn(p *pending, resp *message.Response) {
	if resp.Err != cm.NoError {
		return
	}

	switch p.op {
	case message.OpJoin:
		r := route{resp.Federation, resp.Federate}
		if p.from == nil {
			return
		}
		if p.from.gone {
			n.logger.WithFields(logrus.Fields{
				"federation": resp.Federation,
				"federate":   resp.Federate,
			}).Debug("Join answered after its link closed, resigning")
			n.resignLost(r)
			return
		}
		n.routes[r] = p.from
		p.from.federates[r] = true
	case message.OpResign:
		r := route{p.federation, p.federate}
		if c, ok := n.routes[r]; ok && c == p.from {
			delete(n.routes, r)
			delete(c.federates, r)
		}
	}

	n.updateGauges()
}

func (n *Node) resignLost(r route) {
	n.forward(&message.Request{
		Op:           message.OpResign,
		Federation:   r.federation,
		Federate:     r.federate,
		ResignAction: message.CancelThenDeleteThenDivest,
	}, &pending{})
}

// deliver splits cb per child link. Federates this node has no route to are
// skipped; they resigned or never joined through here.
func (n *Node) deliver(cb *message.Callback) {
	groups := make(map[*child][]handle.Federate)
	var order []*child
	for _, f := range cb.To {
		c, ok := n.routes[route{cb.Federation, f}]
		if !ok {
			continue
		}
		if _, seen := groups[c]; !seen {
			order = append(order, c)
		}
		groups[c] = append(groups[c], f)
	}

	for _, c := range order {
		out := cb
		if len(groups[c]) != len(cb.To) {
			out = cb.Readdress(groups[c])
		}
		n.send(c, net.NewCallbackFrame(out))
	}
}

func (n *Node) send(c *child, f *net.Frame) {
	if err := c.link.Send(f); err != nil {
		n.logger.WithFields(logrus.Fields{
			"link":  c.link.ID(),
			"type":  f.Type.String(),
			"error": err,
		}).Debug("Failed to send frame")
		return
	}
	n.metrics.Routed.WithLabelValues(f.Type.String()).Inc()
}

func (n *Node) updateGauges() {
	n.metrics.Federates.Set(float64(len(n.routes)))

	if n.registry != nil {
		n.metrics.Federations.Set(float64(len(n.registry.Executions())))
		return
	}
	federations := make(map[handle.Federation]bool)
	for r := range n.routes {
		federations[r.federation] = true
	}
	n.metrics.Federations.Set(float64(len(federations)))
}

func sortedRoutes(set map[route]bool) []route {
	res := make([]route, 0, len(set))
	for r := range set {
		res = append(res, r)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].federation != res[j].federation {
			return res[i].federation < res[j].federation
		}
		return res[i].federate < res[j].federate
	})
	return res
}
