package cli

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"site2apk/internal/builder"
	"site2apk/internal/notify"
	"site2apk/internal/webserver"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the conversion form over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			if strings.TrimSpace(listen) != "" {
				cfg.Listen = listen
			}

			resolver, err := cfg.Resolver()
			if err != nil {
				return err
			}

			var notifier notify.Sink
			if ntfy := notify.NewNtfy(cfg.NtfyTopic, 0); ntfy != nil {
				notifier = ntfy
			}

			srv := webserver.NewServer(cfg, resolver, builder.NewClient(cfg.RequestTimeout.Duration), notifier)

			runCtx, stop := signal.NotifyContext(commandContextOrBackground(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return srv.ListenAndServe(runCtx)
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "Listen address, overrides the config file")

	return cmd
}

func commandContextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return context.Background()
}
