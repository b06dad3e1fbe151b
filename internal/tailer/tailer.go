package tailer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/atikulmunna/colorlog/internal/aggregator"
	"github.com/atikulmunna/colorlog/internal/output"
	"github.com/atikulmunna/colorlog/internal/watcher"
	"github.com/fsnotify/fsnotify"
)

const readBufferSize = 64 * 1024

type flusher interface {
	Flush() error
}

// Tailer reads sources line by line and writes each colorized line to a sink
// as soon as it is complete.
type Tailer struct {
	colorizer *output.Colorizer
	sink      io.Writer
	agg       *aggregator.Aggregator

	// With follow set, Run leaves named files open in held, keyed by
	// absolute path, together with any unterminated tail it has not written.
	follow bool
	held   map[string]*trackedFile
}

// New creates a Tailer. agg may be nil.
func New(c *output.Colorizer, sink io.Writer, agg *aggregator.Aggregator) *Tailer {
	return &Tailer{
		colorizer: c,
		sink:      sink,
		agg:       agg,
		held:      make(map[string]*trackedFile),
	}
}

// EnableFollow makes Run hand its named files over to Follow instead of
// closing them, holding back each file's unterminated last line.
func (t *Tailer) EnableFollow() {
	t.follow = true
}

// Run processes inputs sequentially in order; stdin is read for stdin inputs.
// The first error stops processing.
func (t *Tailer) Run(inputs []watcher.Input, stdin io.Reader) error {
	for _, in := range inputs {
		if in.Stdin {
			if _, err := t.Stream(stdin, in.Name); err != nil {
				return err
			}
			t.sourceDone()
			continue
		}
		if err := t.runFile(in.Path); err != nil {
			return err
		}
		t.sourceDone()
	}
	return nil
}

func (t *Tailer) runFile(path string) error {
	if !t.follow {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()

		_, err = t.Stream(f, path)
		return err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	tf, err := openTracked(abs)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	if err := t.readNewLines(tf); err != nil {
		tf.file.Close()
		return err
	}

	// The same file named twice: the later read is the one to continue.
	if prev, ok := t.held[abs]; ok {
		prev.file.Close()
	}
	t.held[abs] = tf
	return nil
}

// Close releases files still held for a Follow that never ran.
func (t *Tailer) Close() {
	closeAll(t.held)
}

// Stream copies r to the sink one line at a time, including the final
// unterminated chunk. It returns the number of bytes consumed.
func (t *Tailer) Stream(r io.Reader, name string) (int64, error) {
	br := bufio.NewReaderSize(r, readBufferSize)
	var consumed int64

	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			consumed += int64(len(line))
			if werr := t.emit(line); werr != nil {
				return consumed, werr
			}
		}
		if errors.Is(err, io.EOF) {
			return consumed, nil
		}
		if err != nil {
			return consumed, fmt.Errorf("read %s: %w", name, err)
		}
	}
}

// emit colorizes one line and writes it through immediately.
func (t *Tailer) emit(line string) error {
	out, rule, matched := t.colorizer.Classify(line)
	if t.agg != nil {
		t.agg.Record(rule, matched)
	}
	if err := output.WriteString(t.sink, out); err != nil {
		return err
	}
	if f, ok := t.sink.(flusher); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("flush output: %w", err)
		}
	}
	return nil
}

func (t *Tailer) sourceDone() {
	if t.agg != nil {
		t.agg.SourceDone()
	}
}

// ---------------------------------------------------------------------------
// Follow mode
// ---------------------------------------------------------------------------

type trackedFile struct {
	path    string
	file    *os.File
	reader  *bufio.Reader
	offset  int64
	partial string // unterminated tail awaiting its newline
}

// Follow streams lines appended to the watcher's files until ctx is
// cancelled or the watcher stops. Files held by Run continue where Run
// stopped, unless the path now names a different file. Held partial lines
// are written out on return.
func (t *Tailer) Follow(ctx context.Context, w *watcher.Watcher) error {
	files := make(map[string]*trackedFile)
	defer closeAll(files)

	for _, p := range w.Paths() {
		tf, ok := t.held[p]
		delete(t.held, p)
		if !ok {
			var err error
			if tf, err = openTracked(p); err != nil {
				log.Printf("cannot follow %s yet: %v", p, err)
				continue
			}
		}
		files[p] = tf
		if err := t.readNewLines(tf); err != nil {
			return err
		}
		if _, err := t.current(files, tf); err != nil {
			return err
		}
	}
	closeAll(t.held)

	for {
		select {
		case <-ctx.Done():
			return t.flushPartials(files)

		case ev, ok := <-w.Events:
			if !ok {
				return t.flushPartials(files)
			}
			if err := t.handleEvent(files, ev); err != nil {
				return err
			}
		}
	}
}

// handleEvent dispatches watcher events to the appropriate handler.
func (t *Tailer) handleEvent(files map[string]*trackedFile, ev watcher.Event) error {
	tf, ok := files[ev.Path]

	switch {
	case ev.Op&fsnotify.Remove != 0, ev.Op&fsnotify.Rename != 0:
		if !ok {
			return nil
		}
		// Events can arrive after the replacement is already open.
		_, err := t.current(files, tf)
		return err

	case ev.Op&fsnotify.Create != 0, ev.Op&fsnotify.Write != 0:
		if !ok {
			next, err := openTracked(ev.Path)
			if err != nil {
				log.Printf("cannot open %s: %v", ev.Path, err)
				return nil
			}
			log.Printf("following %s", ev.Path)
			files[ev.Path] = next
			return t.readNewLines(next)
		}
		cur, err := t.current(files, tf)
		if err != nil || cur == nil {
			return err
		}
		return t.readNewLines(cur)
	}
	return nil
}

// current returns the tracked file for tf's path, switching to a new file
// if the path was rotated to one. The old file is drained and its partial
// line written first. It returns nil if nothing lives at the path now.
func (t *Tailer) current(files map[string]*trackedFile, tf *trackedFile) (*trackedFile, error) {
	now, statErr := os.Stat(tf.path)
	if statErr == nil {
		if old, err := tf.file.Stat(); err == nil && os.SameFile(old, now) {
			return tf, nil
		}
	}

	// Rotated or deleted: finish what the old file has.
	delete(files, tf.path)
	defer tf.file.Close()
	if err := t.readNewLines(tf); err != nil {
		return nil, err
	}
	if err := t.flushPartial(tf); err != nil {
		return nil, err
	}

	if statErr != nil {
		log.Printf("%s went away, waiting for it to reappear", tf.path)
		return nil, nil
	}
	next, err := openTracked(tf.path)
	if err != nil {
		log.Printf("cannot reopen %s: %v", tf.path, err)
		return nil, nil
	}
	log.Printf("%s was replaced, following the new file", tf.path)
	files[tf.path] = next
	return next, t.readNewLines(next)
}

// openTracked opens path for reading from the start.
func openTracked(path string) (*trackedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &trackedFile{
		path:   path,
		file:   f,
		reader: bufio.NewReaderSize(f, readBufferSize),
	}, nil
}

// readNewLines reads from the last offset to EOF and emits complete lines.
func (t *Tailer) readNewLines(tf *trackedFile) error {
	if info, err := tf.file.Stat(); err == nil && info.Size() < tf.offset {
		log.Printf("%s was truncated, reading from the start", tf.path)
		if _, err := tf.file.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("seek %s: %w", tf.path, err)
		}
		tf.reader.Reset(tf.file)
		tf.offset = 0
		tf.partial = ""
	}

	for {
		chunk, err := tf.reader.ReadString('\n')
		tf.offset += int64(len(chunk))
		if errors.Is(err, io.EOF) {
			tf.partial += chunk
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", tf.path, err)
		}

		line := tf.partial + chunk
		tf.partial = ""
		if err := t.emit(line); err != nil {
			return err
		}
	}
}

func (t *Tailer) flushPartial(tf *trackedFile) error {
	if tf.partial == "" {
		return nil
	}
	line := tf.partial
	tf.partial = ""
	return t.emit(line)
}

func (t *Tailer) flushPartials(files map[string]*trackedFile) error {
	for _, tf := range files {
		if err := t.flushPartial(tf); err != nil {
			return err
		}
	}
	return nil
}

// closeAll closes all tracked file handles.
func closeAll(files map[string]*trackedFile) {
	for path, tf := range files {
		tf.file.Close()
		delete(files, path)
	}
}
