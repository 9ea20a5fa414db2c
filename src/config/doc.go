// Package config defines the configuration for a relay node.
//
// Regardless of how a node is started, directly from Go code or as a
// standalone process from the command line, it uses the Config object defined
// in this package to store and forward configuration options. On top of these
// options, a node relies on a data directory, defined by Config.DataDir, where
// it looks for:
//
//  rtinode.toml // (optional) configuration file, also .yaml or .json.
//  badger_db    // the federation catalog of a root node started with --store.
package config
