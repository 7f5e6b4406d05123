package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"easel/internal/config"
)

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigValidateCommand())
	configCmd.AddCommand(newConfigShowCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
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
			if overwrite {
				if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("remove existing config: %w", err)
				}
			}

			if err := config.WriteSample(target); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to set github.token (or export GITHUB_TOKEN) before collecting webpages.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:         "validate",
		Short:       "Validate the configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, resolvedPath, found, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !found {
				fmt.Fprintln(out, "No configuration file found; defaults are valid.")
				return nil
			}
			fmt.Fprintf(out, "Configuration at %s is valid.\n", resolvedPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "path", "p", "", "Configuration file to validate")
	return cmd
}

func newConfigShowCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:         "show",
		Short:       "Print the effective configuration",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, resolvedPath, found, err := config.Load(configPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if found {
				fmt.Fprintf(out, "# %s\n", resolvedPath)
			} else {
				fmt.Fprintln(out, "# built-in defaults (no configuration file found)")
			}
			display := *cfg
			if display.GitHub.Token != "" {
				display.GitHub.Token = "<redacted>"
			}
			if display.Toxicity.APIKey != "" {
				display.Toxicity.APIKey = "<redacted>"
			}
			encoded, err := toml.Marshal(display)
			if err != nil {
				return fmt.Errorf("encode configuration: %w", err)
			}
			_, err = out.Write(encoded)
			return err
		},
	}

	cmd.Flags().StringVarP(&configPath, "path", "p", "", "Configuration file to show")
	return cmd
}
