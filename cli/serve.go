package cli

import (
	"github.com/spf13/cobra"

	"netprobe/api"
	"netprobe/config"
)

func newServeCmd(loaded func() *config.Config) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP scan service",
		Long: `serve accepts scan jobs over HTTP, queues them in Redis (or memory when
redis.addr is empty) and runs them on background workers.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loaded()
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			return api.Run(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.addr")
	return cmd
}
