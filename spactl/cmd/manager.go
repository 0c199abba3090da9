package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/cubium/spacore/spa/streamconn"
	"github.com/spf13/cobra"
)

var managerCmd = &cobra.Command{
	Use:   "manager",
	Short: "Run the subnet manager that components connect to over TCP.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		listen := cfg.ManagerListen
		if cmd.Flags().Changed("listen") {
			listen, _ = cmd.Flags().GetString("listen")
		}

		router := streamconn.MakeRouterBuilder().
			WithManagerAddress(cfg.ManagerAddress).
			WithLogger(logger).
			Build()

		ctx, stop := signal.NotifyContext(cmd.Context(),
			os.Interrupt, syscall.SIGTERM)
		defer stop()

		return router.ListenAndServe(ctx, listen)
	},
}

func init() {
	rootCmd.AddCommand(managerCmd)
	managerCmd.Flags().String("listen", "",
		"Address to listen on. Defaults to SPA_MANAGER_LISTEN.")
}
