package node

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mosaicnetworks/rtinet/src/common"
	"github.com/sirupsen/logrus"
)

// Config holds the settings of one relay node.
type Config struct {
	// Name identifies the node in logs and in the Hello it sends its parent.
	Name string `mapstructure:"name"`

	// ParentAddr is the address of the parent node. A node without a parent
	// is the root and owns the federation registry.
	ParentAddr string `mapstructure:"parent"`

	// Timeout bounds the dial to the parent.
	Timeout time.Duration `mapstructure:"timeout"`

	Logger *logrus.Entry
}

// NewConfig ...
func NewConfig(name string,
	parentAddr string,
	timeout time.Duration,
	logger *logrus.Entry) *Config {

	return &Config{
		Name:       name,
		ParentAddr: parentAddr,
		Timeout:    timeout,
		Logger:     logger,
	}
}

// DefaultConfig returns the configuration of a root node with a random name.
func DefaultConfig() *Config {
	logger := logrus.New()
	logger.Level = logrus.DebugLevel

	return &Config{
		Name:    uuid.NewString(),
		Timeout: 1000 * time.Millisecond,
		Logger:  logrus.NewEntry(logger),
	}
}

// TestConfig returns a root configuration logging through t.
func TestConfig(t testing.TB, name string) *Config {
	config := DefaultConfig()
	config.Name = name
	config.Logger = common.NewTestEntry(t, common.TestLogLevel)
	return config
}
