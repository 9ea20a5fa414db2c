package command

import (
	"github.com/mosaicnetworks/rtinet/src/config"
	"github.com/spf13/cobra"
)

var (
	_config = config.NewDefaultConfig()
)

// RootCmd is the root command for rtinode
var RootCmd = &cobra.Command{
	Use:              "rtinode",
	Short:            "HLA federation relay node",
	TraverseChildren: true,
}
