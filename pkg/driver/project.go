package driver

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/nooga/tslua/pkg/config"
	"github.com/nooga/tslua/pkg/errors"
	luart "github.com/nooga/tslua/pkg/runtime"
	"github.com/nooga/tslua/pkg/source"
	"golang.org/x/sync/errgroup"
)

// Project is a directory of sources compiled with one configuration.
type Project struct {
	Config *config.Config
	// Force ignores the build cache.
	Force bool
}

// LoadProject reads tslua.toml from dir, or from the nearest parent that
// has one. Without a configuration file the defaults apply to dir.
func LoadProject(dir string) (*Project, error) {
	c, err := config.FindAndLoad(dir)
	if err != nil {
		return nil, err
	}
	if c == nil {
		if c, err = config.Default(dir); err != nil {
			return nil, err
		}
	}
	if err := c.CheckCompiler(Version); err != nil {
		return nil, err
	}
	return &Project{Config: c}, nil
}

// Options returns the per-file compilation options of the project.
func (p *Project) Options() Options {
	return Options{RuntimeModule: p.Config.Build.Runtime, Header: p.Config.Build.Header}
}

// FileFailure is a source file that did not compile.
type FileFailure struct {
	Path   string
	Errors []errors.TsluaError
}

// BuildResult summarizes one build. Paths are relative to the source root.
type BuildResult struct {
	Compiled []string
	Skipped  []string
	Failed   []FileFailure
}

// OK reports whether every file compiled.
func (r *BuildResult) OK() bool {
	return len(r.Failed) == 0
}

// Sources returns the .ts files under the source root, relative to it, in
// lexical order. Declaration files (.d.ts) hold no code and are skipped.
func (p *Project) Sources() ([]string, error) {
	root := p.Config.RootPath()
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".ts") || strings.HasSuffix(path, ".d.ts") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

// outputFor maps a source path relative to the root to its output path.
func (p *Project) outputFor(rel string) string {
	return filepath.Join(p.Config.OutPath(), OutputPath(rel))
}

// Build compiles every source file under the root. Files whose source and
// options are unchanged since the last build are skipped. A file that fails
// to compile does not stop the others; its errors are in the result.
func (p *Project) Build(ctx context.Context) (*BuildResult, error) {
	files, err := p.Sources()
	if err != nil {
		return nil, err
	}
	return p.build(ctx, files)
}

// BuildFiles compiles the given files, relative to the source root.
func (p *Project) BuildFiles(ctx context.Context, files []string) (*BuildResult, error) {
	return p.build(ctx, files)
}

func (p *Project) build(ctx context.Context, files []string) (*BuildResult, error) {
	cfg := p.Config
	opts := p.Options()

	cache := newBuildCache()
	if cfg.CacheEnabled() && !p.Force {
		cache = loadBuildCache(cfg.CachePath())
	}

	var (
		mu     sync.Mutex
		result BuildResult
	)

	workers := cfg.Build.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, rel := range files {
		rel := rel
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			compiled, failure, err := p.buildFile(rel, opts, cache)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			switch {
			case failure != nil:
				result.Failed = append(result.Failed, *failure)
			case compiled:
				result.Compiled = append(result.Compiled, rel)
			default:
				result.Skipped = append(result.Skipped, rel)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Strings(result.Compiled)
	sort.Strings(result.Skipped)
	sort.Slice(result.Failed, func(i, j int) bool { return result.Failed[i].Path < result.Failed[j].Path })

	if !cfg.Build.NoInclude && len(result.Compiled) > 0 {
		path, err := luart.WriteTo(cfg.IncludePath(), cfg.Build.Runtime)
		if err != nil {
			return nil, err
		}
		log.Debugf("runtime library at %s", path)
	}
	if cfg.CacheEnabled() {
		if err := cache.save(cfg.CachePath()); err != nil {
			return nil, err
		}
	}
	log.Infof("build: %d compiled, %d up to date, %d failed", len(result.Compiled), len(result.Skipped), len(result.Failed))
	return &result, nil
}

// buildFile compiles one file unless the cache says its output is current.
// Compile errors are reported as a failure; only I/O problems are errors.
func (p *Project) buildFile(rel string, opts Options, cache *buildCache) (bool, *FileFailure, error) {
	path := filepath.Join(p.Config.RootPath(), rel)
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Deleted since discovery, e.g. during watch.
			cache.forget(rel)
			if err := os.Remove(p.outputFor(rel)); err == nil {
				log.Infof("removed output of deleted %s", rel)
			}
			return false, nil, nil
		}
		return false, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	hash := sourceHash(content, opts)
	if cache.fresh(rel, hash) {
		debugPrintf("// [Driver] %s is up to date\n", rel)
		return false, nil, nil
	}

	code, errs := compile(source.FromFile(path, string(content)), opts)
	if len(errs) > 0 {
		cache.forget(rel)
		log.Warningf("%s: %d error(s)", rel, len(errs))
		return false, &FileFailure{Path: rel, Errors: errs}, nil
	}

	out := p.outputFor(rel)
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return false, nil, fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(out, []byte(code), 0o644); err != nil {
		return false, nil, fmt.Errorf("writing %s: %w", out, err)
	}
	cache.record(rel, hash, out)
	log.Debugf("compiled %s -> %s", rel, out)
	return true, nil, nil
}
