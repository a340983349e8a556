package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/filedrop/pkg/internal/storage/artifact"
	kv "github.com/yeisme/filedrop/pkg/internal/storage/kv"
)

var (
	kvCmd = &cobra.Command{
		Use:     "kv",
		Short:   "Key-Value store related commands",
		Aliases: []string{"keyvalue"},
	}

	kvListCmd = &cobra.Command{
		Use:     "list",
		Short:   "list all registered kv types",
		Aliases: []string{"ls", "l"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "Registered kv types:")

			for _, t := range kv.GetRegisteredTypes() {
				fmt.Fprintln(cmd.OutOrStdout(), "   - "+string(t))
			}
		},
	}

	artifactCmd = &cobra.Command{
		Use:   "artifact",
		Short: "Artifact store related commands",
	}

	artifactListCmd = &cobra.Command{
		Use:     "list",
		Short:   "list all registered artifact store types",
		Aliases: []string{"ls", "l"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "Registered artifact types:")

			for _, t := range artifact.GetRegisteredTypes() {
				fmt.Fprintln(cmd.OutOrStdout(), "   - "+string(t))
			}
		},
	}
)

// registerKVCommands 注册 KV 与工件存储相关命令.
func registerKVCommands() {
	rootCmd.AddCommand(kvCmd)
	kvCmd.AddCommand(kvListCmd)

	rootCmd.AddCommand(artifactCmd)
	artifactCmd.AddCommand(artifactListCmd)
}
