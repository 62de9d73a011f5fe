package bplopt

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bodgit/bplopt/config"
	"github.com/bodgit/bplopt/indexed"
	"github.com/bodgit/bplopt/palette"
	"github.com/bodgit/bplopt/planar"
	"github.com/bodgit/bplopt/search"
)

// writeFile writes to a temporary file alongside name and only renames it
// into place once write succeeds, so a failure never leaves a partial file.
func writeFile(name string, write func(io.Writer) error) (err error) {
	f, err := os.CreateTemp(filepath.Dir(name), "."+filepath.Base(name)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()

	if err = write(f); err != nil {
		return err
	}

	if err = f.Sync(); err != nil {
		return err
	}

	if err = f.Close(); err != nil {
		return err
	}

	if err = os.Chmod(f.Name(), 0o644); err != nil {
		return err
	}

	return os.Rename(f.Name(), name)
}

func (o *Optimizer) decodeFile(file string, colors int, logger *slog.Logger) (*indexed.Image, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, format, err := indexed.Decode(f, colors)
	if err != nil {
		return nil, err
	}

	logger.Debug("read image", "file", file, "format", format, "width", m.Width, "height", m.Height, "colors", m.Colors())

	return m, nil
}

// PaletteFiles names optional palette exports written alongside bitplane or
// image output.
type PaletteFiles struct {
	// Raw, if set, receives the palette as raw 12-bit words
	Raw string
	// Copper, if set, receives the palette as a copper list
	Copper string
}

func (pf PaletteFiles) check(m *indexed.Image) error {
	if pf.Copper != "" && m.Colors() > palette.MaxRegisters {
		return fmt.Errorf("copper list holds at most %d colors, image has %d", palette.MaxRegisters, m.Colors())
	}
	return nil
}

// write exports the palette of m with entry i moved to slot order[i].
func (pf PaletteFiles) write(m *indexed.Image, order []byte, logger *slog.Logger) error {
	if pf.Raw != "" {
		logger.Debug("raw palette export", "file", pf.Raw)
		if err := writeFile(pf.Raw, func(w io.Writer) error {
			return palette.EncodeRaw(w, m.Palette, order)
		}); err != nil {
			return err
		}
	}

	if pf.Copper != "" {
		logger.Debug("copper palette export", "file", pf.Copper)
		if err := writeFile(pf.Copper, func(w io.Writer) error {
			return palette.EncodeCopper(w, m.Palette, order)
		}); err != nil {
			return err
		}
	}

	return nil
}

// OptimizeFile reads the image in file, optimizes its palette order and
// writes the reordered image to target as a PNG, along with any palette
// exports in the new order. Nothing is written unless the search completes.
func (o *Optimizer) OptimizeFile(ctx context.Context, file, target string, c config.Config, pf PaletteFiles) (*Result, error) {
	return o.optimizeFile(ctx, file, target, c, pf, o.progress, o.logger)
}

func (o *Optimizer) optimizeFile(ctx context.Context, file, target string, c config.Config, pf PaletteFiles, progress func(search.Progress), logger *slog.Logger) (*Result, error) {
	m, err := o.decodeFile(file, c.Quantize, logger)
	if err != nil {
		return nil, err
	}

	if err := pf.check(m); err != nil {
		return nil, err
	}

	r, err := o.optimize(ctx, m, c, progress, logger)
	if err != nil {
		return r, err
	}

	if err := writeFile(target, func(w io.Writer) error {
		return indexed.Encode(w, m, r.Order)
	}); err != nil {
		return r, err
	}

	logger.Info("wrote image", "file", target)

	return r, pf.write(m, r.Order, logger)
}

// ConvertOptions controls Convert.
type ConvertOptions struct {
	PaletteFiles
	Layout planar.Layout
	// Quantize reduces non-indexed images to this many colors
	Quantize int
}

// Convert writes the bitplane data of the image in file to target, along
// with any requested palette exports. The palette order of the image is
// used as is.
func (o *Optimizer) Convert(file, target string, opts ConvertOptions) error {
	m, err := o.decodeFile(file, opts.Quantize, o.logger)
	if err != nil {
		return err
	}

	if err := opts.check(m); err != nil {
		return err
	}

	if err := opts.write(m, nil, o.logger); err != nil {
		return err
	}

	conv, err := m.Converter(opts.Layout)
	if err != nil {
		return err
	}

	b := make([]byte, conv.Size())
	conv.Convert(b, search.Identity(m.Colors()))

	o.logger.Debug("bitplane data export", "file", target, "layout", opts.Layout.String(), "size", len(b))

	return writeFile(target, func(w io.Writer) error {
		_, err := w.Write(b)
		return err
	})
}
