package watcher

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// StdinName is the argument that selects standard input.
const StdinName = "-"

// Input is one source named on the command line, in command-line order.
type Input struct {
	Name  string // as displayed
	Path  string // empty for stdin
	Stdin bool
}

// Resolve expands arguments into inputs. No arguments means stdin. Glob
// patterns are expanded in lexical order and must match at least one file;
// plain paths are kept as given so a missing file fails when it is opened.
func Resolve(args []string) ([]Input, error) {
	if len(args) == 0 {
		return []Input{{Name: "<stdin>", Stdin: true}}, nil
	}

	var inputs []Input
	for _, arg := range args {
		if arg == StdinName {
			inputs = append(inputs, Input{Name: "<stdin>", Stdin: true})
			continue
		}
		if !isPattern(arg) {
			inputs = append(inputs, Input{Name: arg, Path: arg})
			continue
		}

		matches, err := expandGlob(arg)
		if err != nil {
			return nil, fmt.Errorf("expand pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files matched pattern %q", arg)
		}
		for _, m := range matches {
			inputs = append(inputs, Input{Name: m, Path: m})
		}
	}
	return inputs, nil
}

// isPattern reports whether arg should be glob-expanded. An existing file
// whose name merely contains glob characters is taken literally.
func isPattern(arg string) bool {
	if !strings.ContainsAny(arg, "*?[{") {
		return false
	}
	_, err := os.Stat(arg)
	return err != nil
}

// expandGlob resolves a glob pattern to matching file paths.
// Supports recursive patterns like /var/log/**/*.log via doublestar.
func expandGlob(pattern string) ([]string, error) {
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly(), doublestar.WithFailOnIOErrors())
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// ---------------------------------------------------------------------------
// Follow-mode watcher
// ---------------------------------------------------------------------------

// Event represents a change to one of the followed files.
type Event struct {
	Path string
	Op   fsnotify.Op
}

// Watcher reports changes to a fixed set of files. It watches their parent
// directories so a file that is rotated away and recreated is still seen.
type Watcher struct {
	fsw    *fsnotify.Watcher
	Events chan Event
	paths  map[string]bool
	order  []string
}

// New creates a Watcher for the given file paths.
func New(paths []string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		fsw:    fsw,
		Events: make(chan Event, 256),
		paths:  make(map[string]bool),
	}

	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		if w.paths[abs] {
			continue
		}
		w.paths[abs] = true
		w.order = append(w.order, abs)

		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	return w, nil
}

// Start forwards events for watched files until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	defer w.fsw.Close()
	defer close(w.Events)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.paths[filepath.Clean(ev.Name)] {
				continue
			}
			// Forward relevant events (write, create, remove, rename).
			switch {
			case ev.Op&fsnotify.Write != 0,
				ev.Op&fsnotify.Create != 0,
				ev.Op&fsnotify.Remove != 0,
				ev.Op&fsnotify.Rename != 0:
				select {
				case w.Events <- Event{Path: filepath.Clean(ev.Name), Op: ev.Op}:
				case <-ctx.Done():
					return
				}
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("watcher error: %v", err)
		}
	}
}

// Paths returns the absolute paths being followed, in the order given.
func (w *Watcher) Paths() []string {
	return w.order
}
