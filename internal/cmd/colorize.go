package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/atikulmunna/colorlog/internal/aggregator"
	"github.com/atikulmunna/colorlog/internal/config"
	"github.com/atikulmunna/colorlog/internal/matcher"
	"github.com/atikulmunna/colorlog/internal/model"
	"github.com/atikulmunna/colorlog/internal/output"
	"github.com/atikulmunna/colorlog/internal/pager"
	"github.com/atikulmunna/colorlog/internal/tailer"
	"github.com/atikulmunna/colorlog/internal/watcher"
	"golang.org/x/term"
)

func runColorize(ctx context.Context, cfg config.Config, args []string, stdin io.Reader, stdout, stderr io.Writer) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	configureLogging(cfg.Verbose, stderr)

	rules := model.DefaultRules()
	colored := shouldColor(cfg, stdout)
	if cfg.ShowRules {
		return output.RenderRules(stdout, rules, colored)
	}

	// Writes to a closed stdout must come back as EPIPE, not kill the process.
	signal.Ignore(syscall.SIGPIPE)

	// --- Resolve inputs ---
	inputs, err := watcher.Resolve(args)
	if err != nil {
		return err
	}
	var followPaths []string
	if cfg.Follow {
		for _, in := range inputs {
			if !in.Stdin {
				followPaths = append(followPaths, in.Path)
			}
		}
		if len(followPaths) == 0 {
			return errors.New("--follow needs at least one named file; standard input cannot be followed")
		}
	}
	for _, in := range inputs {
		log.Printf("input: %s", in.Name)
	}

	// --- Build the colorizer ---
	m, err := matcher.New(rules, matcher.Policy(cfg.Policy))
	if err != nil {
		return err
	}
	colorizer := output.NewColorizer(m, rules, !colored)

	var agg *aggregator.Aggregator
	if cfg.Summary {
		agg = aggregator.New(rules)
	}

	// --- Open the sink ---
	sink, err := openSink(cfg, stdout, stderr)
	if err != nil {
		return err
	}
	defer func() {
		closeErr := sink.Close()
		if err == nil {
			err = closeErr
		}
		if agg != nil {
			if sumErr := output.RenderSummary(stderr, agg.Snapshot()); sumErr != nil && err == nil {
				err = sumErr
			}
		}
	}()

	// --- Stream ---
	t := tailer.New(colorizer, sink, agg)
	if cfg.Follow {
		t.EnableFollow()
		defer t.Close()
	}
	err = t.Run(inputs, stdin)
	if err == nil && cfg.Follow {
		err = follow(ctx, t, followPaths)
	}

	if output.IsBrokenPipe(err) {
		log.Printf("output closed early, stopping")
		return nil
	}
	return err
}

// follow keeps streaming appended lines until SIGINT/SIGTERM.
func follow(ctx context.Context, t *tailer.Tailer, paths []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			log.Printf("interrupted, stopping follow")
			cancel()
		case <-ctx.Done():
		}
	}()

	w, err := watcher.New(paths)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	log.Printf("following %d file(s)", len(w.Paths()))

	go w.Start(ctx)
	return t.Follow(ctx, w)
}

// openSink returns stdout, or a started pager when --less is set.
func openSink(cfg config.Config, stdout, stderr io.Writer) (pager.Sink, error) {
	if !cfg.Less {
		return pager.Stdout(stdout), nil
	}
	log.Printf("starting pager: %s", cfg.Pager)
	p, err := pager.Start(cfg.Pager, stdout, stderr)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// shouldColor applies the --color mode. A pager started with -R shows colors
// even when its own output is the only terminal.
func shouldColor(cfg config.Config, stdout io.Writer) bool {
	switch cfg.Color {
	case config.ColorNever:
		return false
	case config.ColorAuto:
		if cfg.Less {
			return true
		}
		f, ok := stdout.(*os.File)
		return ok && term.IsTerminal(int(f.Fd()))
	default:
		return true
	}
}

// configureLogging routes diagnostics to stderr only in verbose mode.
func configureLogging(verbose bool, stderr io.Writer) {
	log.SetFlags(0)
	log.SetPrefix("colorlog: ")
	if verbose {
		log.SetOutput(stderr)
		return
	}
	log.SetOutput(io.Discard)
}
