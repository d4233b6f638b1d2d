package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/neurodesk/hypermark/pkg/component"
	"github.com/spf13/cobra"
)

var watchCmd = cobra.Command{
	Use:   "watch FILE",
	Short: "Re-render a template whenever it or a component changes",
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
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		w, err := newWatcher(e, args[0], opts)
		if err != nil {
			return err
		}
		defer w.Close()
		return w.Run(ctx, cmd)
	},
}

// watcher re-renders one template when it, a markdown file next to it or
// a component source changes.
type watcher struct {
	fs   *fsnotify.Watcher
	env  *env
	file string
	opts renderOptions
}

func newWatcher(e *env, file string, opts renderOptions) (*watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &watcher{fs: fsw, env: e, file: file, opts: opts}

	dirs := []string{filepath.Dir(file)}
	if e.cfg.BaseDir != "" {
		dirs = append(dirs, e.cfg.BaseDir)
	}
	dirs = append(dirs, e.cfg.Components...)
	for _, dir := range dirs {
		if err := w.watchDirRecursive(dir); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

// watchDirRecursive adds a directory and its subdirectories to the watch
// list. Hidden directories are skipped.
func (w *watcher) watchDirRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			return filepath.SkipDir
		}
		return w.fs.Add(path)
	})
}

func (w *watcher) Close() error { return w.fs.Close() }

// Run renders once and then after every settled burst of changes until ctx
// is done.
func (w *watcher) Run(ctx context.Context, cmd *cobra.Command) error {
	const debounce = 100 * time.Millisecond
	logger := w.env.logger

	w.rebuild(cmd, false)
	var timer *time.Timer
	var fire <-chan time.Time
	reload := false
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if st, err := os.Stat(event.Name); err == nil && st.IsDir() {
					_ = w.watchDirRecursive(event.Name)
					continue
				}
			}
			if !w.relevant(event.Name) {
				continue
			}
			if strings.EqualFold(filepath.Ext(event.Name), component.Extension) {
				reload = true
			}
			logger.Debug("change", "path", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.rebuild(cmd, reload)
			reload = false

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", "error", err)
		}
	}
}

// rebuild renders the template, first reloading the components and their
// cached fragments when a component source changed. Failures are logged
// and the previous output is kept.
func (w *watcher) rebuild(cmd *cobra.Command, reload bool) {
	logger := w.env.logger
	if reload {
		for _, name := range w.env.mgr.Names() {
			_ = w.env.mgr.Unregister(name)
		}
		w.env.mgr.ResetCache()
		if err := w.env.loadComponents(); err != nil {
			logger.Error("reloading components", "error", describeError(err))
			return
		}
	}
	if err := w.env.renderTo(cmd, w.file, w.opts); err != nil {
		logger.Error("render failed", "file", w.file, "error", describeError(err))
	}
}

// relevant reports whether a change to path can alter the output: the
// template itself, a component source or a markdown file. This also
// ignores the temporary files of atomic output writes.
func (w *watcher) relevant(path string) bool {
	if samePath(path, w.opts.output) {
		return false
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case component.Extension, ".md", ".markdown":
		return true
	}
	return samePath(path, w.file)
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
