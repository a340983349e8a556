package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/filedrop/pkg/configs"
	"github.com/yeisme/filedrop/pkg/internal/service"
	"github.com/yeisme/filedrop/pkg/internal/storage"
)

var (
	purgeConfirm string

	sweepCmd = &cobra.Command{
		Use:   "sweep",
		Short: "remove expired and exhausted share links",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, func(ctx context.Context, svc *service.Services) error {
				res, err := svc.Sweeper.SweepExpired(ctx)
				if err != nil {
					return err
				}

				for _, id := range res.Removed {
					fmt.Fprintln(cmd.OutOrStdout(), "removed", id)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%d removed, %d errors in %s\n", len(res.Removed), res.Errors, res.Duration)

				return nil
			})
		},
	}

	purgeCmd = &cobra.Command{
		Use:   "purge",
		Short: "delete every stored file and record",
		RunE: func(cmd *cobra.Command, args []string) error {
			if purgeConfirm == "" {
				return errors.New("--confirm is required")
			}

			return withServices(cmd, func(ctx context.Context, svc *service.Services) error {
				res, err := svc.Purger.PurgeAll(ctx, purgeConfirm)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%d deleted, %d errors\n", res.Deleted, res.Errors)

				return nil
			})
		},
	}

	quotaCmd = &cobra.Command{
		Use:   "quota",
		Short: "print storage usage against the configured quota",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, func(ctx context.Context, svc *service.Services) error {
				snap, err := svc.Quota.Snapshot(ctx)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "used %d / %d bytes (%d%%)\n", snap.Used, snap.Max, snap.Percent)

				if snap.Exceeded() {
					fmt.Fprintln(cmd.OutOrStdout(), "quota exceeded")
				}

				return nil
			})
		},
	}
)

// withServices 打开存储（不连接 MQ）并构造服务，供离线维护命令使用.
func withServices(cmd *cobra.Command, fn func(ctx context.Context, svc *service.Services) error) error {
	ctx := commandContext(cmd)
	cfg := configs.GetConfig()

	mgr, err := storage.Init(ctx, cfg, storage.WithoutMQ())
	if err != nil {
		return err
	}
	defer mgr.Close()

	return fn(ctx, service.New(cfg, mgr))
}

// registerMaintenanceCommands 注册 sweep、purge 与 quota.
func registerMaintenanceCommands() {
	purgeCmd.Flags().StringVar(&purgeConfirm, "confirm", "", "confirmation code, must match drop.purge_token")

	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(purgeCmd)
	rootCmd.AddCommand(quotaCmd)
}
