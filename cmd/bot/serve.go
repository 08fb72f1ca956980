package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"jobalert/internal/app"
)

func serveCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot (webhook server or long polling)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := app.NewApp(f.resolveConfigPath())
			if err != nil {
				return err
			}
			if err := a.Start(ctx); err != nil {
				_ = a.Stop(context.Background())
				return err
			}

			select {
			case <-ctx.Done():
			case <-a.Done():
			}
			sctx, scancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer scancel()
			stopErr := a.Stop(sctx)
			if err := a.Err(); err != nil {
				return err
			}
			return stopErr
		},
	}
}
