package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	hybridmod "github.com/albertocavalcante/go-hybridmod"
	"github.com/albertocavalcante/go-hybridmod/label"
)

const (
	configName = ".hybridmod"
	envPrefix  = "HYBRIDMOD"
)

// Config keys, shared by flags, the config file and HYBRIDMOD_* variables.
const (
	keyCatalog          = "catalog"
	keyLogLevel         = "log-level"
	keyReservedPrefixes = "reserved-prefixes"
	keyPinned           = "pinned"
	keyMetricsFile      = "metrics-file"
)

// app carries what every subcommand needs once configuration is loaded.
type app struct {
	v        *viper.Viper
	cfgFile  string
	logger   *slog.Logger
	registry *prometheus.Registry
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "hybridmod",
		Short: "Resolve hybrid modules and report their readability graph",
		Long: `hybridmod resolves a module and everything it requires against a
descriptor catalog, then reports which module supplies each visible package.

A catalog is a directory, a file:// or http(s):// URL, or a YAML manifest.
Several catalogs are searched in order.

Examples:
  hybridmod resolve app@1.0 --catalog ./modules
  hybridmod graph app@1.0 --format dot | dot -Tsvg > graph.svg
  hybridmod lock app@1.0 -o hybridmod.lock
  hybridmod lock app@1.0 --check hybridmod.lock`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.writeMetrics()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is ./"+configName+".yaml, then $HOME/"+configName+".yaml)")
	flags.StringSlice(keyCatalog, nil, "catalog location; repeat to search several in order")
	flags.String(keyLogLevel, "warn", "log level: debug, info, warn, error")
	flags.StringSlice(keyReservedPrefixes, hybridmod.DefaultReservedPrefixes, "module name prefixes reserved for platform modules")
	flags.Bool(keyPinned, false, "require every hybrid requirement to carry a compiled version")
	flags.String(keyMetricsFile, "", "write resolver metrics in Prometheus text format to this file")

	cmd.AddCommand(
		newResolveCmd(a),
		newGraphCmd(a),
		newLockCmd(a),
		newVersionCmd(),
	)
	return cmd
}

// init loads configuration and installs the logger.
func (a *app) init(cmd *cobra.Command) error {
	if err := a.v.BindPFlags(cmd.Root().PersistentFlags()); err != nil {
		return err
	}
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.SetConfigName(configName)
		a.v.SetConfigType("yaml")
		a.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			a.v.AddConfigPath(home)
		}
	}
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	logger, err := newLogger(cmd.ErrOrStderr(), a.v.GetString(keyLogLevel))
	if err != nil {
		return err
	}
	a.logger = logger
	if f := a.v.ConfigFileUsed(); f != "" {
		a.logger.Debug("config loaded", "file", f)
	}
	return nil
}

// newLogger returns a slog logger backed by a charmbracelet/log handler.
func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", keyLogLevel, level, err)
	}
	handler := log.NewWithOptions(w, log.Options{
		Level:  lvl,
		Prefix: "hybridmod",
	})
	return slog.New(handler), nil
}

// options builds resolver options from the loaded configuration.
func (a *app) options() []hybridmod.Option {
	opts := []hybridmod.Option{
		hybridmod.WithLogger(a.logger),
		hybridmod.WithReservedPrefixes(a.v.GetStringSlice(keyReservedPrefixes)...),
	}
	if a.v.GetBool(keyPinned) {
		opts = append(opts, hybridmod.WithPinnedRequirements())
	}
	if a.v.GetString(keyMetricsFile) != "" {
		if a.registry == nil {
			a.registry = prometheus.NewRegistry()
		}
		opts = append(opts, hybridmod.WithMetrics(a.registry))
	}
	return opts
}

// resolver opens the configured catalogs and starts a session.
func (a *app) resolver() (*hybridmod.Resolver, error) {
	locations := a.v.GetStringSlice(keyCatalog)
	if len(locations) == 0 {
		return nil, fmt.Errorf("no catalog configured: pass --%s or set %s_CATALOG", keyCatalog, envPrefix)
	}
	opts := a.options()
	catalog, err := hybridmod.OpenCatalogs(locations, opts...)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("catalog opened", "locations", strings.Join(locations, ","))
	return hybridmod.NewResolver(catalog, opts...)
}

func (a *app) writeMetrics() error {
	path := a.v.GetString(keyMetricsFile)
	if path == "" || a.registry == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, a.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

// parseRoots parses "name[@version]" arguments.
func parseRoots(args []string) ([]label.ModuleID, error) {
	ids := make([]label.ModuleID, 0, len(args))
	for _, arg := range args {
		id, err := label.ParseModuleID(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
