package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"jobalert/internal/config"
)

const defaultConfigPath = "./config.json"

type rootFlags struct {
	configPath string
	envFiles   []string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}
	root := &cobra.Command{
		Use:           "jobalert",
		Short:         "Telegram job alert bot",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadDotEnv(f.envFiles...)
		},
	}
	root.PersistentFlags().StringVarP(&f.configPath, "config", "c", defaultConfigPath, "path to config json/yaml (optional; env only when missing)")
	root.PersistentFlags().StringSliceVar(&f.envFiles, "env-file", []string{".env"}, "dotenv files loaded before the config")

	root.AddCommand(
		serveCmd(f),
		jobsCmd(f),
		subscribersCmd(f),
		webhookCmd(f),
	)
	return root
}

// resolveConfigPath falls back to env-only config when the default file is absent.
func (f *rootFlags) resolveConfigPath() string {
	if f.configPath != defaultConfigPath {
		return f.configPath
	}
	if _, err := os.Stat(f.configPath); errors.Is(err, fs.ErrNotExist) {
		return ""
	}
	return f.configPath
}

func (f *rootFlags) load() (*config.Config, error) {
	return config.NewConfigManager(f.resolveConfigPath()).Load()
}
