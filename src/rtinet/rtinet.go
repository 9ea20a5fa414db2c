package rtinet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mosaicnetworks/rtinet/src/config"
	"github.com/mosaicnetworks/rtinet/src/net"
	"github.com/mosaicnetworks/rtinet/src/node"
	"github.com/mosaicnetworks/rtinet/src/service"
	"github.com/mosaicnetworks/rtinet/src/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrNodeStopped is returned by Run when the node stops on its own, which
// happens when a non-root node loses its parent.
var ErrNodeStopped = errors.New("relay node stopped")

// RTInet is a relay node with everything it needs to run as a process: a
// store, a TCP transport, a metrics registry and the HTTP service.
type RTInet struct {
	Config    *config.Config
	Node      *node.Node
	Transport *net.NetworkTransport
	Store     store.Store
	Registry  *prometheus.Registry
	Service   *service.Service

	logger *logrus.Entry
}

// NewRTInet ...
func NewRTInet(c *config.Config) *RTInet {
	return &RTInet{
		Config: c,
		logger: c.Logger(),
	}
}

// Init creates the store, transport, node and service, and dials the parent.
func (r *RTInet) Init() error {
	if r.Config.Name == "" {
		r.Config.Name = uuid.NewString()
	}
	r.logger = r.logger.WithField("node", r.Config.Name)

	if err := r.initStore(); err != nil {
		return err
	}

	if err := r.initTransport(); err != nil {
		return err
	}

	if err := r.initNode(); err != nil {
		return err
	}

	if err := r.initService(); err != nil {
		return err
	}

	return nil
}

// initStore opens the badger catalog when persistence is on. Only the root
// keeps a catalog.
func (r *RTInet) initStore() error {
	if !r.Config.Store || r.Config.ParentAddr != "" {
		r.Store = store.NewInmemStore()

		r.logger.Debug("created new in-mem store")

		return nil
	}

	r.logger.WithField("path", r.Config.DatabaseDir).Debug("Attempting to load or create database")

	s, err := store.NewBadgerStore(r.Config.DatabaseDir)
	if err != nil {
		return fmt.Errorf("opening store in %s: %v", r.Config.DatabaseDir, err)
	}
	r.Store = s

	return nil
}

func (r *RTInet) initTransport() error {
	transport, err := net.NewTCPTransport(
		r.Config.BindAddr,
		r.Config.AdvertiseAddr,
		r.Config.TCPTimeout,
		r.Config.MaxQueue,
		r.logger,
	)
	if err != nil {
		return err
	}

	r.Transport = transport

	return nil
}

func (r *RTInet) initNode() error {
	r.Registry = prometheus.NewRegistry()
	r.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	conf := node.NewConfig(
		r.Config.Name,
		r.Config.ParentAddr,
		r.Config.TCPTimeout,
		r.logger,
	)

	n, err := node.NewNode(conf, r.Transport, r.Store, r.Registry)
	if err != nil {
		return err
	}

	if err := n.Init(); err != nil {
		return fmt.Errorf("failed to initialize node: %s", err)
	}

	r.Node = n

	return nil
}

func (r *RTInet) initService() error {
	if !r.Config.NoService {
		r.Service = service.NewService(
			r.Config.ServiceAddr,
			r.Node,
			r.Registry,
			r.Config.CallTimeout,
			r.logger,
		)
	}
	return nil
}

// Run runs the node and the service until ctx is done, or until either of
// them stops. The store is closed on return.
func (r *RTInet) Run(ctx context.Context) error {
	r.logger.WithFields(logrus.Fields{
		"listen":    r.Transport.LocalAddr(),
		"advertise": r.Transport.AdvertiseAddr(),
		"parent":    r.Config.ParentAddr,
		"root":      r.Node.IsRoot(),
	}).Info("Running relay node")

	g, ctx := errgroup.WithContext(ctx)

	r.Node.RunAsync()
	g.Go(func() error {
		select {
		case <-r.Node.Done():
			return ErrNodeStopped
		case <-ctx.Done():
			r.Node.Shutdown()
			return nil
		}
	})

	if r.Service != nil {
		g.Go(r.Service.Serve)
		g.Go(func() error {
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), r.Config.TCPTimeout)
			defer cancel()
			return r.Service.Shutdown(sctx)
		})
	}

	err := g.Wait()

	if cerr := r.Store.Close(); cerr != nil && err == nil {
		err = cerr
	}

	r.logger.WithError(err).Debug("Relay node stopped")

	return err
}
