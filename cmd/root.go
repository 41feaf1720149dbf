// Package cmd implements the locate command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/wanmail/locate/internal/config"
	"github.com/wanmail/locate/internal/observability"
)

// Version is set at build time with -ldflags "-X".
var Version = "dev"

// app carries the state shared by one command tree.
type app struct {
	cfgFile string
	v       *viper.Viper
	cfg     *config.Config
}

// NewRootCmd builds a fresh command tree with its own viper instance.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	config.SetDefaults(a.v)

	root := &cobra.Command{
		Use:           "locate",
		Short:         "Locate resolves human field names to page elements.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.initializeConfig(cmd); err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "locate"})
				return err
			}
			observability.InitializeLogger(a.cfg.Logger)
			observability.GetLogger().Debug("Configuration loaded.",
				zap.String("version", Version),
				zap.String("config_file", a.v.ConfigFileUsed()),
			)
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./locate.yaml)")
	root.PersistentFlags().String("log-level", "", "override logger.level")
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(
		newCandidatesCmd(a),
		newFindCmd(a),
		newVersionCmd(),
	)
	return root
}

// initializeConfig reads the config file and LOCATE_* environment
// variables, then binds command flags over them.
func (a *app) initializeConfig(cmd *cobra.Command) error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.AddConfigPath(".")
		a.v.SetConfigName("locate")
		a.v.SetConfigType("yaml")
	}

	a.v.SetEnvPrefix("LOCATE")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults and environment apply.
	}

	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		a.v.Set("logger.level", f.Value.String())
	}
	for flag, key := range map[string]string{
		"backend":  "browser.backend",
		"remote":   "browser.remote_url",
		"browser":  "browser.browser_name",
		"headless": "browser.headless",
		"timeout":  "resolver.presence_timeout",
	} {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			a.v.Set(key, f.Value.String())
		}
	}

	cfg, err := config.NewConfigFromViper(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// Execute runs the command tree and returns the process exit code.
func Execute(ctx context.Context) int {
	defer observability.Sync()
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		observability.GetLogger().Debug("Command failed.", zap.Error(err))
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
