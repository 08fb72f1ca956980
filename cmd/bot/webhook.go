package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"jobalert/internal/app"
	logx "jobalert/pkg/logx"
)

func webhookCmd(f *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Register or remove the Telegram webhook",
	}

	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Register the webhook URL with Telegram (setWebhook)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.load()
			if err != nil {
				return err
			}
			url, _ := cmd.Flags().GetString("url")
			if strings.TrimSpace(url) == "" {
				url = cfg.Telegram.WebhookURL
			}
			if strings.TrimSpace(url) == "" {
				return fmt.Errorf("webhook url is required (--url or telegram.webhook_url)")
			}
			tg, err := app.NewTelegram(cfg, logx.NewConsole("warn"))
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if err := tg.SetWebhook(ctx, url, cfg.Telegram.WebhookSecret); err != nil {
				return fmt.Errorf("set webhook: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "webhook set: %s\n", url)
			return nil
		},
	}
	setCmd.Flags().String("url", "", "public webhook URL (defaults to telegram.webhook_url)")

	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Remove the webhook (deleteWebhook)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.load()
			if err != nil {
				return err
			}
			drop, _ := cmd.Flags().GetBool("drop-pending")
			tg, err := app.NewTelegram(cfg, logx.NewConsole("warn"))
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if err := tg.RemoveWebhook(ctx, drop); err != nil {
				return fmt.Errorf("delete webhook: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "webhook deleted")
			return nil
		},
	}
	deleteCmd.Flags().Bool("drop-pending", false, "drop pending updates")

	cmd.AddCommand(setCmd, deleteCmd)
	return cmd
}
