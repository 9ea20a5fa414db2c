package federate

import (
	"testing"
	"time"

	"github.com/mosaicnetworks/rtinet/src/common"
	"github.com/sirupsen/logrus"
)

// Config holds the settings of a federate ambassador.
type Config struct {
	// Name is sent in the Hello frame and used as the default federate name
	// on join.
	Name string `mapstructure:"name"`

	// Type is the federate type declared on join.
	Type string `mapstructure:"type"`

	// Timeout bounds calls made with a context that has no deadline. Zero
	// means no bound.
	Timeout time.Duration `mapstructure:"timeout"`

	Logger *logrus.Entry
}

// DefaultConfig ...
func DefaultConfig() *Config {
	logger := logrus.New()
	logger.Level = logrus.DebugLevel

	return &Config{
		Type:    "rtinet",
		Timeout: 10 * time.Second,
		Logger:  logrus.NewEntry(logger),
	}
}

// TestConfig returns a configuration logging through t.
func TestConfig(t testing.TB, name string) *Config {
	config := DefaultConfig()
	config.Name = name
	config.Type = "test"
	config.Logger = common.NewTestEntry(t, common.TestLogLevel)
	return config
}
