package main

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"

	"github.com/neurodesk/hypermark/pkg/compiler"
	"github.com/neurodesk/hypermark/pkg/component"
	"github.com/neurodesk/hypermark/pkg/config"
	"github.com/neurodesk/hypermark/pkg/diag"
	"github.com/neurodesk/hypermark/pkg/markdown"
	"github.com/neurodesk/hypermark/pkg/netcache"
	"github.com/neurodesk/hypermark/pkg/node"
	"github.com/neurodesk/hypermark/pkg/parser"
	"github.com/spf13/cobra"
)

var rootConfigPath string
var verbose bool
var logFormat string

var rootCmd = cobra.Command{
	Use:           "hypermark",
	Short:         "Compile hypermark templates to HTML",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// env is what every command works with: the loaded configuration and the
// component registry built from it.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	mgr    *component.Manager
	cache  *netcache.Cache
}

func newEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load(rootConfigPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	logger := newLogger(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())

	e := &env{
		cfg:    cfg,
		logger: logger,
		mgr:    component.NewManager(component.WithLogger(logger)),
	}
	if cfg.CacheDir != "" {
		e.cache = netcache.New(cfg.CacheDir)
		e.cache.Logger = logger
	}
	if err := e.loadComponents(); err != nil {
		return nil, err
	}
	return e, nil
}

// loadComponents registers every component directory of the
// configuration.
func (e *env) loadComponents() error {
	for _, dir := range e.cfg.Components {
		names, err := e.mgr.RegisterDir(dir)
		if err != nil {
			return err
		}
		e.logger.Debug("loaded components", "dir", dir, "count", len(names))
	}
	return nil
}

// compile parses and compiles the file at path. set overrides the
// configured bindings.
func (e *env) compile(path string, set map[string]any) (*node.Document, error) {
	doc, err := parser.ParseFile(path)
	if err != nil {
		return nil, err
	}
	baseDir := e.cfg.BaseDir
	if baseDir == "" {
		baseDir = filepath.Dir(path)
	}
	opts := []markdown.Option{markdown.WithBaseDir(baseDir)}
	if e.cache != nil {
		opts = append(opts, markdown.WithCache(e.cache))
	}
	c := compiler.New(e.mgr,
		compiler.WithLogger(e.logger),
		compiler.WithMarkdown(markdown.New(opts...)),
		compiler.WithFile(path),
	)

	bindings := map[string]any{}
	maps.Copy(bindings, e.cfg.Bindings)
	maps.Copy(bindings, set)
	return c.Compile(doc, bindings)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config", config.FileName, "Path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json")

	renderCmd.Flags().StringP("output", "o", "", "Write the result to this file instead of stdout")
	renderCmd.Flags().Bool("compressed", false, "Render without indentation")
	renderCmd.Flags().StringArray("set", []string{}, "Bind a value as KEY=VALUE; may be repeated")
	rootCmd.AddCommand(&renderCmd)

	rootCmd.AddCommand(&fmtCmd)
	rootCmd.AddCommand(&componentsCmd)

	watchCmd.Flags().StringP("output", "o", "", "File to write on every change")
	watchCmd.Flags().Bool("compressed", false, "Render without indentation")
	watchCmd.Flags().StringArray("set", []string{}, "Bind a value as KEY=VALUE; may be repeated")
	_ = watchCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(&watchCmd)
}

// describeError renders diagnostics with their source snippet.
func describeError(err error) string {
	var de *diag.Error
	if errors.As(err, &de) {
		return de.Pretty()
	}
	return err.Error()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var de *diag.Error
		if errors.As(err, &de) {
			fmt.Fprintln(os.Stderr, describeError(err))
		} else {
			slog.Error("fatal", "error", err)
		}
		os.Exit(1)
	}
}
