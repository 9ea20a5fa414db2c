// Package rtinet assembles a relay node process: configuration, federation
// catalog store, TCP transport, node and HTTP service.
//
//	conf := config.NewDefaultConfig()
//	conf.ParentAddr = "10.0.0.1:1337"
//	engine := rtinet.NewRTInet(conf)
//	if err := engine.Init(); err != nil {
//		...
//	}
//	err := engine.Run(ctx)
//
// A node started without a parent address is the root of its relay tree.
package rtinet
