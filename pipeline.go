package bplopt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bodgit/bplopt/config"
	"github.com/bodgit/bplopt/indexed"
	"github.com/lmittmann/tint"
)

func isImage(file string) bool {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".png", ".gif", ".bmp":
		return true
	}
	return false
}

func (o *Optimizer) findImages(ctx context.Context, base, skip string) (<-chan string, <-chan error, error) {
	out := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		errc <- filepath.Walk(base, func(file string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			// Don't pick up our own output if it's written below the input
			if file == skip && info.Mode().IsDir() {
				return filepath.SkipDir
			}

			// Ignore any hidden files or directories, this includes our own temporary files
			if info.Name()[0] == '.' && file != base {
				if info.Mode().IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			// Ignore anything that isn't a normal file
			if !info.Mode().IsRegular() || !isImage(file) {
				return nil
			}

			select {
			case out <- file:
			case <-ctx.Done():
				return ctx.Err()
			}

			return nil
		})
	}()
	return out, errc, nil
}

func (o *Optimizer) imageWorker(ctx context.Context, in <-chan string, base, target string, c config.Config) (<-chan error, error) {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for file := range in {
			rel, err := filepath.Rel(base, file)
			if err != nil {
				errc <- err
				return
			}

			out := filepath.Join(target, strings.TrimSuffix(rel, filepath.Ext(rel))+".png")
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				errc <- err
				return
			}

			logger := o.logger.With("file", rel)

			r, err := o.optimizeFile(ctx, file, out, c, PaletteFiles{}, nil, logger)
			if err != nil {
				// Images that can never be converted shouldn't stop the whole batch
				if indexed.IsPrecondition(err) {
					logger.Warn("skipping image", tint.Err(err))
					continue
				}
				errc <- fmt.Errorf("%s: %w", rel, err)
				return
			}

			logger.Info("optimized", "initial", r.InitialSize, "best", r.Size)
		}
	}()
	return errc, nil
}

// waitForPipeline drains every error channel, so every stage has finished by
// the time it returns. A stage stopped by cancellation only reports the
// context's error, so the first other error takes precedence.
func waitForPipeline(errs ...<-chan error) error {
	var first, cancelled error
	errc := mergeErrors(errs...)
	for err := range errc {
		switch {
		case err == nil:
		case isCancelled(err):
			if cancelled == nil {
				cancelled = err
			}
		case first == nil:
			first = err
		}
	}
	if first != nil {
		return first
	}
	return cancelled
}

func isCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// Batch optimizes every image below dir and writes the results as PNG files
// with the same relative path below target. Images that cannot be converted
// to bitplanes are skipped.
func (o *Optimizer) Batch(ctx context.Context, dir, target string, c config.Config) error {
	if err := c.Validate(); err != nil {
		return err
	}

	base, err := filepath.Abs(dir)
	if err != nil {
		return err
	}

	target, err = filepath.Abs(target)
	if err != nil {
		return err
	}

	if target == base {
		return errors.New("output directory must differ from input directory")
	}

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	var errcList []<-chan error

	files, errc, err := o.findImages(ctx, base, target)
	if err != nil {
		return err
	}
	errcList = append(errcList, errc)

	for i := 0; i < c.Workers; i++ {
		errc, err := o.imageWorker(ctx, files, base, target, c)
		if err != nil {
			return err
		}
		errcList = append(errcList, cancelOnError(errc, cancelFunc))
	}

	return waitForPipeline(errcList...)
}

// cancelOnError passes errors through and cancels the pipeline on the first
// one so the other stages stop early.
func cancelOnError(in <-chan error, cancel context.CancelFunc) <-chan error {
	out := make(chan error, 1)
	go func() {
		defer close(out)
		for err := range in {
			if err != nil {
				cancel()
			}
			out <- err
		}
	}()
	return out
}
