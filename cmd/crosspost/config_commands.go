package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"crosspost/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			var configFlag string
			if ctx.configFlag != nil {
				configFlag = strings.TrimSpace(*ctx.configFlag)
			}
			cfg, path, exists, err := config.Load(configFlag)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}

			rows := [][]string{
				{"paths.data_dir", cfg.Paths.DataDir},
				{"paths.media_dir", cfg.Paths.MediaDir},
				{"paths.log_dir", cfg.Paths.LogDir},
				{"discord.guild_id", fmt.Sprintf("%d", cfg.Discord.GuildID)},
				{"discord.submit_channel_id", fmt.Sprintf("%d", cfg.Discord.SubmitChannelID)},
				{"discord.log_channel_id", fmt.Sprintf("%d", cfg.Discord.LogChannelID)},
				{"discord.queue_channel_id", fmt.Sprintf("%d", cfg.Discord.QueueChannelID)},
				{"discord.token", maskSecret(cfg.Discord.Token)},
				{"publisher.base_url", cfg.Publisher.BaseURL},
				{"publisher.username", cfg.Publisher.Username},
				{"publisher.password", maskSecret(cfg.Publisher.Password)},
				{"publisher.caption", cfg.Publisher.Caption},
				{"workflow.upload_interval_minutes", fmt.Sprintf("%d", cfg.Workflow.UploadIntervalMinutes)},
				{"workflow.reconcile_interval_seconds", fmt.Sprintf("%d", cfg.Workflow.ReconcileIntervalSeconds)},
				{"media.max_attachments", fmt.Sprintf("%d", cfg.Media.MaxAttachments)},
				{"media.ffmpeg_binary", cfg.Media.FFmpegBinary},
				{"logging.format", cfg.Logging.Format},
				{"logging.level", cfg.Logging.Level},
			}
			table := renderTable([]string{"Setting", "Value"}, rows, []columnAlignment{alignLeft, alignLeft})
			fmt.Fprintln(out, table)
			return nil
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Aliases:     []string{"new"},
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to set the Discord token and publisher credentials before starting the daemon.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func maskSecret(value string) string {
	if value == "" {
		return ""
	}
	return "********"
}
