package driver

import (
	"context"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/tliron/commonlog"
)

var watchLog = commonlog.GetLogger("tslua.watch")

// WatchOptions configures Watch.
type WatchOptions struct {
	// Debounce is how long to wait after the last change before rebuilding.
	Debounce time.Duration
	// OnSuccess is a shell command run after every successful rebuild.
	OnSuccess string
	// Report receives the result of every build, including the first one.
	Report func(*BuildResult)
}

const defaultDebounce = 100 * time.Millisecond

// Watch builds the project, then rebuilds changed files until ctx is done.
// Every directory under the source root is watched, including ones created
// later.
func Watch(ctx context.Context, p *Project, opts WatchOptions) error {
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := p.Config.RootPath()
	if err := addTree(w, root); err != nil {
		return err
	}

	res, err := p.Build(ctx)
	if err != nil {
		return err
	}
	finishBuild(ctx, res, opts)

	pending := make(map[string]bool)
	timer := time.NewTimer(opts.Debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := addTree(w, ev.Name); err != nil {
						watchLog.Warningf("watching %s: %s", ev.Name, err)
					}
					// Files copied in together with the directory produce no
					// events of their own.
					for _, rel := range sourcesUnder(root, ev.Name) {
						pending[rel] = true
					}
					timer.Reset(opts.Debounce)
					continue
				}
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !strings.HasSuffix(ev.Name, ".ts") || strings.HasSuffix(ev.Name, ".d.ts") {
				continue
			}
			rel, err := filepath.Rel(root, ev.Name)
			if err != nil {
				continue
			}
			watchLog.Debugf("%s: %s", ev.Op, rel)
			pending[rel] = true
			timer.Reset(opts.Debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			watchLog.Errorf("watch error: %s", err)

		case <-timer.C:
			files := make([]string, 0, len(pending))
			for rel := range pending {
				files = append(files, rel)
			}
			sort.Strings(files)
			pending = make(map[string]bool)

			watchLog.Infof("rebuilding %d file(s)", len(files))
			res, err := p.BuildFiles(ctx, files)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				watchLog.Errorf("build failed: %s", err)
				continue
			}
			finishBuild(ctx, res, opts)
		}
	}
}

func finishBuild(ctx context.Context, res *BuildResult, opts WatchOptions) {
	if opts.Report != nil {
		opts.Report(res)
	}
	if res.OK() && opts.OnSuccess != "" {
		runOnSuccess(ctx, opts.OnSuccess)
	}
}

func runOnSuccess(ctx context.Context, command string) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		watchLog.Warningf("onSuccess command failed: %s", err)
	}
}

// addTree watches dir and every directory below it, except hidden ones.
func addTree(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		watchLog.Debugf("watching %s", path)
		return w.Add(path)
	})
}

// sourcesUnder lists the sources below dir relative to root.
func sourcesUnder(root, dir string) []string {
	var files []string
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".ts") || strings.HasSuffix(path, ".d.ts") {
			return nil
		}
		if rel, err := filepath.Rel(root, path); err == nil {
			files = append(files, rel)
		}
		return nil
	})
	return files
}
