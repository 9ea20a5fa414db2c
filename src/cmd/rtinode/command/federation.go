package command

import (
	"context"
	"os"
	"time"

	"github.com/mosaicnetworks/rtinet/src/federate"
	"github.com/mosaicnetworks/rtinet/src/fom"
	"github.com/mosaicnetworks/rtinet/src/net"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	connectAddr string
	callTimeout time.Duration
	clientLog   string
)

// NewCreateCmd returns the command that creates a federation execution from
// a YAML object model file.
func NewCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create [name] [fom.yaml]",
		Short: "Create a federation execution",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			model, err := fom.Decode(f)
			if err != nil {
				return err
			}

			return withAmbassador(func(ctx context.Context, a *federate.Ambassador) error {
				return a.CreateFederationExecution(ctx, args[0], model)
			})
		},
	}
	addClientFlags(cmd)
	return cmd
}

// NewDestroyCmd returns the command that destroys a federation execution.
func NewDestroyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "destroy [name]",
		Short: "Destroy a federation execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAmbassador(func(ctx context.Context, a *federate.Ambassador) error {
				return a.DestroyFederationExecution(ctx, args[0])
			})
		},
	}
	addClientFlags(cmd)
	return cmd
}

// NewListCmd returns the command that prints the live federation executions
// as YAML.
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List federation executions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAmbassador(func(ctx context.Context, a *federate.Ambassador) error {
				infos, err := a.ListFederationExecutions(ctx)
				if err != nil {
					return err
				}

				enc := yaml.NewEncoder(cmd.OutOrStdout())
				defer enc.Close()

				return enc.Encode(infos)
			})
		},
	}
	addClientFlags(cmd)
	return cmd
}

func addClientFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&connectAddr, "connect", "c", _config.BindAddr, "IP:Port of the node to connect to")
	cmd.Flags().DurationVarP(&callTimeout, "timeout", "t", _config.CallTimeout, "Request timeout")
	cmd.Flags().StringVar(&clientLog, "log", "warn", "debug, info, warn, error, fatal, panic")
}

// withAmbassador connects a short-lived federate ambassador to the node at
// connectAddr and runs fn with it.
func withAmbassador(fn func(context.Context, *federate.Ambassador) error) error {
	_config.LogLevel = clientLog
	logger := _config.Logger()

	trans, err := net.NewTCPTransport("127.0.0.1:0", "", _config.TCPTimeout, 0, logger)
	if err != nil {
		return err
	}
	defer trans.Close()

	conf := federate.DefaultConfig()
	conf.Name = "rtinode"
	conf.Timeout = callTimeout
	conf.Logger = logger

	a, err := federate.Connect(trans, connectAddr, conf)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	return fn(ctx, a)
}
