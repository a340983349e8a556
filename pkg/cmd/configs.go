package cmd

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/yeisme/filedrop/pkg/configs"
)

var (
	// config 子命令.
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "config subcommands",
	}

	// 打印当前使用的配置文件路径.
	pathCmd = &cobra.Command{
		Use:   "path",
		Short: "print the path of the current config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := configs.GetViper()
			if v == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "config not initialized")

				return nil
			}

			cfg := v.ConfigFileUsed()
			if cfg == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "no config file used (defaults and env only)")

				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), cfg)

			return nil
		},
	}

	// 以 JSON 打印生效的配置，--debug 时附带 viper 的 Debug 输出.
	debugCmd = &cobra.Command{
		Use:   "debug",
		Short: "print the current config values",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := configs.GetViper()
			if v == nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "config not initialized.")

				return nil
			}

			if debug {
				v.Debug()
			}

			b, err := sonic.ConfigStd.MarshalIndent(configs.GetConfig(), "", "  ")
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(b))

			return nil
		},
	}
)

// 校验生效配置并打印各后端的选择.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "validate the config and print the selected backends",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configs.GetConfig()
		if err := configs.Validate(cfg); err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "public url : %s\n", cfg.Server.BaseURL())
		fmt.Fprintf(w, "database   : %s\n", cfg.DB.GetDBType())
		fmt.Fprintf(w, "artifacts  : %s\n", cfg.Artifact.Type)
		fmt.Fprintf(w, "kv         : %s\n", cfg.KV.GetKVType())
		fmt.Fprintf(w, "mq         : %s\n", cfg.MQ.GetMQType())
		fmt.Fprintf(w, "jobs       : %t\n", cfg.Jobs.Enabled)
		fmt.Fprintln(w, "config ok")

		return nil
	},
}

// registerConfigsCommands 注册 CLI 子命令.
func registerConfigsCommands() {
	configCmd.AddCommand(pathCmd)
	configCmd.AddCommand(debugCmd)
	configCmd.AddCommand(checkCmd)

	rootCmd.AddCommand(configCmd)
}
