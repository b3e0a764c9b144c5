package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"notifyconf/internal/domain"
)

func newServicesCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "services",
		Short: "List resolved service URLs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.printServices(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func (o *rootOptions) printServices(ctx context.Context, out io.Writer) error {
	services := o.app.Services(ctx, o.expression())
	defer o.app.Release(services)
	for _, service := range services {
		if _, err := fmt.Fprintln(out, service.URL()); err != nil {
			return err
		}
	}
	return nil
}

func newNotifyCommand(opts *rootOptions) *cobra.Command {
	var (
		title      string
		body       string
		notifyType string
	)
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Deliver a message to every matching service",
		Long: `Deliver a message to every service whose config source matches the tag
filter. The body is read from stdin when --body is not given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			parsedType, err := domain.ParseNotifyType(notifyType)
			if err != nil {
				return err
			}
			if body == "" {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read body: %w", err)
				}
				body = string(raw)
			}

			result, err := opts.app.Notify(cmd.Context(), opts.expression(), domain.Notification{
				Title: title,
				Body:  body,
				Type:  parsedType,
			})
			if err != nil {
				return err
			}
			for _, failure := range result.Failed {
				fmt.Fprintf(cmd.ErrOrStderr(), "failed %s: %s\n", failure.URL, failure.Err)
			}
			if !result.OK() {
				return fmt.Errorf("%d of %d notifications failed", len(result.Failed), len(result.Failed)+result.Sent)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent %d notification(s)\n", result.Sent)
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "message title")
	cmd.Flags().StringVarP(&body, "body", "b", "", "message body (stdin when empty)")
	cmd.Flags().StringVarP(&notifyType, "type", "n", string(domain.NotifyTypeInfo), "notification type (info|success|warning|failure)")
	return cmd
}

func newValidateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate URL...",
		Short: "Strictly instantiate config source URLs and report errors",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, raw := range args {
				source, err := opts.app.Validate(raw)
				if err != nil {
					failed++
					fmt.Fprintf(cmd.OutOrStdout(), "invalid %s: %s\n", raw, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ok %s\n", source.URL())
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d config urls invalid", failed, len(args))
			}
			return nil
		},
	}
}

func newWatchCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Re-list services whenever a local config file changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			if err := opts.printServices(ctx, out); err != nil {
				return err
			}
			return opts.app.Watch(ctx, func(ctx context.Context) {
				fmt.Fprintln(out, strings.Repeat("-", 8))
				if err := opts.printServices(ctx, out); err != nil {
					opts.logger.Error("list services failed", "error", err.Error())
				}
			})
		},
	}
}
