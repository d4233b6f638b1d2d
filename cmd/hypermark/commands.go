package main

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/natefinch/atomic"
	"github.com/neurodesk/hypermark/pkg/parser"
	"github.com/neurodesk/hypermark/pkg/render"
	"github.com/spf13/cobra"
)

var renderCmd = cobra.Command{
	Use:   "render FILE",
	Short: "Compile a template and print or write the HTML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(cmd)
		if err != nil {
			return err
		}
		opts, err := readRenderFlags(cmd, e)
		if err != nil {
			return err
		}
		return e.renderTo(cmd, args[0], opts)
	},
}

var fmtCmd = cobra.Command{
	Use:   "fmt FILE",
	Short: "Reformat a template without compiling it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := parser.ParseFile(args[0])
		if err != nil {
			return err
		}
		out, err := render.String(doc, render.Expanded)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
		return err
	},
}

var componentsCmd = cobra.Command{
	Use:   "components",
	Short: "List the configured components",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(cmd)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tSCOPE\tPROPS\tPATH")
		for _, name := range e.mgr.Names() {
			def, _ := e.mgr.Get(name)
			props := slices.Sorted(maps.Keys(def.Props))
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", def.Name, def.Scope, strings.Join(props, ","), def.Path)
		}
		return tw.Flush()
	},
}

type renderOptions struct {
	output string
	mode   render.Mode
	set    map[string]any
}

func readRenderFlags(cmd *cobra.Command, e *env) (renderOptions, error) {
	opts := renderOptions{mode: render.Expanded}
	opts.output, _ = cmd.Flags().GetString("output")
	compressed, _ := cmd.Flags().GetBool("compressed")
	if compressed || e.cfg.Compressed {
		opts.mode = render.Compressed
	}
	sets, _ := cmd.Flags().GetStringArray("set")
	set, err := parseSet(sets)
	if err != nil {
		return opts, err
	}
	opts.set = set
	return opts, nil
}

// renderTo compiles path and writes the result to the output file, or to
// stdout when there is none.
func (e *env) renderTo(cmd *cobra.Command, path string, opts renderOptions) error {
	out, err := e.renderFile(path, opts)
	if err != nil {
		return err
	}
	if opts.output == "" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), out)
		return err
	}
	if err := atomic.WriteFile(opts.output, bytes.NewReader([]byte(out+"\n"))); err != nil {
		return fmt.Errorf("writing %s: %w", opts.output, err)
	}
	e.logger.Info("rendered", "file", path, "output", opts.output)
	return nil
}

func (e *env) renderFile(path string, opts renderOptions) (string, error) {
	doc, err := e.compile(path, opts.set)
	if err != nil {
		return "", err
	}
	return render.String(doc, opts.mode)
}

// parseSet turns KEY=VALUE flags into bindings. Values that read as
// integers, floats or booleans keep that type.
func parseSet(vals []string) (map[string]any, error) {
	out := map[string]any{}
	for _, kv := range vals {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --set %q, expected KEY=VALUE", kv)
		}
		out[k] = typedValue(v)
	}
	return out, nil
}

func typedValue(v string) any {
	if i, err := strconv.ParseInt(v, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return v
}
