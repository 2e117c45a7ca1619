package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rm-hull/blur-overlay/internal/blur"
	"github.com/rm-hull/blur-overlay/internal/raster"
	"github.com/rm-hull/blur-overlay/internal/service"
)

// BlurFiles blurs each PNG through a worker pool and writes the results to
// outDir as <name>.blur.png. Errors for individual files are collected.
func BlurFiles(files []string, outDir string, params service.Params, accelerator string, workers int) error {
	acc := blur.Lookup(accelerator)
	if acc == nil && params.UseAccelerated {
		log.Printf("WARNING: accelerator %q is not registered, stack blur will be used", accelerator)
	}

	svc := service.New(service.WithAccelerator(acc), service.WithLogger(slog.Default()))
	pool, err := service.NewPool(svc, workers)
	if err != nil {
		return err
	}
	pool.Start()
	defer pool.Shutdown()

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	addErr := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	for _, file := range files {
		src, err := readPng(file)
		if err != nil {
			addErr(err)
			continue
		}

		filename := filepath.Join(outDir, strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))+".blur.png")
		wg.Add(1)
		_, err = pool.Submit(context.Background(), src, params, func(out *raster.Raster) {
			defer wg.Done()
			if out == nil {
				addErr(fmt.Errorf("failed to blur %s", file))
				return
			}
			if err := writePng(out, filename); err != nil {
				addErr(err)
				return
			}
			log.Printf("Wrote %s (%dx%d)", filename, out.Width, out.Height)
		})
		if err != nil {
			addErr(fmt.Errorf("failed to submit %s: %w", file, err))
		}
	}

	wg.Wait()
	return errors.Join(errs...)
}

func readPng(file string) (*raster.Raster, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	r, err := raster.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode PNG %s: %w", file, err)
	}
	return r, nil
}

// writePng writes via a temporary file in the same directory and renames it
// into place, so a partially written PNG is never visible.
func writePng(r *raster.Raster, filename string) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(filename), "blur-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	cleanupTemp := true
	defer func() {
		_ = tmpFile.Close()
		if cleanupTemp {
			_ = os.Remove(tmpFile.Name())
		}
	}()

	if err := r.Encode(tmpFile); err != nil {
		return fmt.Errorf("failed to write blurred image to temporary file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file before rename: %w", err)
	}

	if err := os.Rename(tmpFile.Name(), filename); err != nil {
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	cleanupTemp = false
	return nil
}
