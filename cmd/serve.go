package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yeti47/eight/blobserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the blob server that published clips and thumbnails are uploaded to",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp("blob-server", flags.overrides())
		if err != nil {
			return err
		}
		defer a.close()

		server, err := blobserver.NewServer(a.current().BlobServer, a.logger)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return server.Run(ctx)
	},
}
