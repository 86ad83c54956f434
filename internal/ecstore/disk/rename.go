package disk

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mojofs/mojofs/internal/ecstore/disk/diskerr"
	"github.com/mojofs/mojofs/internal/ecstore/disk/endpoint"
	"github.com/mojofs/mojofs/internal/logger"
)

// renamePath performs the common src/dst directoriness check and
// intermediate-directory creation shared by RenameFile and RenamePart.
func (d *Disk) renamePath(srcVolume, src, dstVolume, dst string) *diskerr.Error {
	if endpoint.IsDirPath(src) != endpoint.IsDirPath(dst) {
		return diskerr.New(diskerr.FileAccessDenied)
	}
	if derr := endpoint.CheckPathLength(src); derr != nil {
		return derr
	}
	if derr := endpoint.CheckPathLength(dst); derr != nil {
		return derr
	}

	srcPath := d.path(srcVolume, strings.TrimSuffix(src, "/"))
	dstPath := d.path(dstVolume, strings.TrimSuffix(dst, "/"))

	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return diskerr.ToDiskError(err)
	}
	if err := os.Rename(srcPath, dstPath); err != nil {
		return diskerr.ToFileError(err)
	}
	return nil
}

// RenameFile is a plain atomic-rename wrapper enforcing src/dst
// directoriness agreement.
func (d *Disk) RenameFile(ctx context.Context, srcVolume, src, dstVolume, dst string) *diskerr.Error {
	if err := d.checkReady(); err != nil {
		return err
	}
	return d.renamePath(srcVolume, src, dstVolume, dst)
}

// RenamePart renames one erasure-coded shard file into place.
func (d *Disk) RenamePart(ctx context.Context, srcVolume, src, dstVolume, dst string) *diskerr.Error {
	return d.RenameFile(ctx, srcVolume, src, dstVolume, dst)
}

// Delete removes target. If recursive, the target is moved to trash
// (falling back to direct removal on DiskFull); otherwise it removes a
// single file or empty directory. Empty parents above the target, up to
// the volume root, are pruned afterward.
func (d *Disk) Delete(ctx context.Context, volume, target string, recursive bool) *diskerr.Error {
	if err := d.checkReady(); err != nil {
		return err
	}
	full := d.path(volume, strings.TrimSuffix(target, "/"))

	if recursive {
		if err := d.trashMove(full); err != nil {
			return err
		}
	} else {
		if err := os.Remove(full); err != nil {
			if diskerr.ToFileError(err).Kind == diskerr.FileNotFound {
				return nil
			}
			return diskerr.ToFileError(err)
		}
	}

	d.pruneEmptyParents(d.path(volume), filepath.Dir(full))
	return nil
}

// trashMove renames full into <meta>/tmp/.trash/<uuid>, falling back to
// direct recursive removal if the trash directory is out of space.
func (d *Disk) trashMove(full string) *diskerr.Error {
	if _, err := os.Stat(full); err != nil {
		if diskerr.ToFileError(err).Kind == diskerr.FileNotFound {
			return nil
		}
		return diskerr.ToFileError(err)
	}

	trashDir := d.metaPath(metaTrashDir)
	if err := os.MkdirAll(trashDir, 0o755); err != nil {
		return diskerr.ToDiskError(err)
	}
	dst := filepath.Join(trashDir, uuid.NewString())

	if err := os.Rename(full, dst); err != nil {
		de := diskerr.ToFileError(err)
		if de.Kind == diskerr.DiskFull {
			if rmErr := os.RemoveAll(full); rmErr != nil {
				return diskerr.ToFileError(rmErr)
			}
			return nil
		}
		return de
	}
	return nil
}

// pruneEmptyParents removes now-empty directories from dir up to (but
// not including) volumeRoot.
func (d *Disk) pruneEmptyParents(volumeRoot, dir string) {
	for dir != volumeRoot && strings.HasPrefix(dir, volumeRoot) {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

// runTrashSweep wakes every trashSweepInterval and empties the trash
// directory, per spec.md §4.E / scenario 6. Background tasks never
// propagate errors to callers; failures are logged and skipped.
func (d *Disk) runTrashSweep(ctx context.Context) {
	defer close(d.trashDone)

	ticker := time.NewTicker(trashSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.sweepTrashOnce(ctx)
		}
	}
}

func (d *Disk) sweepTrashOnce(ctx context.Context) {
	trashDir := d.metaPath(metaTrashDir)
	entries, err := os.ReadDir(trashDir)
	if err != nil {
		_ = logger.LogIf(ctx, "trash sweep: read trash dir", err)
		return
	}

	var wg sync.WaitGroup
	for _, e := range entries {
		if d.sweep.Take(ctx) != nil {
			break
		}
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			defer d.sweep.Give()
			if rmErr := os.RemoveAll(filepath.Join(trashDir, name)); rmErr != nil {
				_ = logger.LogIf(ctx, "trash sweep: remove entry", rmErr)
			}
		}(e.Name())
	}
	wg.Wait()
}
