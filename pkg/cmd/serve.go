package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yeisme/filedrop/pkg/app"
	"github.com/yeisme/filedrop/pkg/configs"
	"github.com/yeisme/filedrop/pkg/log"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "start the HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.NewApp(ctx, configs.GetConfig())
	if err != nil {
		return err
	}

	defer func() {
		if err := a.Close(); err != nil {
			log.Logger().Error().Err(err).Msg("shutdown")
		}
	}()

	return a.Run(ctx)
}

func registerServeCommands() {
	rootCmd.AddCommand(serveCmd)
}

// commandContext cobra 在未设置 context 时返回 nil.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return context.Background()
}
