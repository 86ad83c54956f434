package disk

import (
	"context"
	"os"
	"path/filepath"

	"github.com/mojofs/mojofs/internal/ecstore/disk/diskerr"
	"github.com/mojofs/mojofs/internal/filemeta"
)

const (
	xlMetaFile    = "xl.meta"
	xlMetaBackup  = "xl.meta.bkp"
)

// ReadOptions controls ReadVersion's inline-data behavior.
type ReadOptions struct {
	ReadData bool
}

// readMeta loads the xl.meta buffer at <volume>/<path>/xl.meta, mapping
// a missing file to FileNotFound, or to VolumeNotFound when the volume
// directory itself is missing.
func (d *Disk) readMeta(volume, path string) (*filemeta.FileMeta, *diskerr.Error) {
	buf, err := os.ReadFile(d.path(volume, path, xlMetaFile))
	if err != nil {
		if diskerr.ToFileError(err).Kind == diskerr.FileNotFound {
			if _, verr := os.Stat(d.path(volume)); verr != nil {
				return nil, diskerr.ToVolumeError(verr)
			}
			return nil, diskerr.New(diskerr.FileNotFound)
		}
		return nil, diskerr.ToAccessError(err, diskerr.New(diskerr.VolumeAccessDenied))
	}
	fm, lerr := filemeta.Load(buf)
	if lerr != nil {
		if de, ok := lerr.(*diskerr.Error); ok {
			return nil, de
		}
		return nil, diskerr.New(diskerr.CorruptedFormat)
	}
	return fm, nil
}

func (d *Disk) writeMeta(ctx context.Context, volume, path string, fm *filemeta.FileMeta) *diskerr.Error {
	return d.atomicWriteMeta(ctx, d.path(volume, path, xlMetaFile), fm.MarshalMsg(nil))
}

// ReadVersion loads <volume>/<path>/xl.meta and returns the FileInfo for
// versionID ("" selects the latest).
func (d *Disk) ReadVersion(ctx context.Context, volume, path, versionID string, opts ReadOptions) (filemeta.FileInfo, *diskerr.Error) {
	if err := d.checkReady(); err != nil {
		return filemeta.FileInfo{}, err
	}
	fm, err := d.readMeta(volume, path)
	if err != nil {
		return filemeta.FileInfo{}, err
	}
	fi, ferr := fm.IntoFileInfo(volume, path, versionID, opts.ReadData)
	if ferr != nil {
		return filemeta.FileInfo{}, ferr
	}
	return fi, nil
}

// ReadXL returns the raw xl.meta buffer for <volume>/<path>.
func (d *Disk) ReadXL(ctx context.Context, volume, path string) ([]byte, *diskerr.Error) {
	if err := d.checkReady(); err != nil {
		return nil, err
	}
	buf, err := os.ReadFile(d.path(volume, path, xlMetaFile))
	if err != nil {
		return nil, diskerr.ToAccessError(err, diskerr.New(diskerr.VolumeAccessDenied))
	}
	return buf, nil
}

// WriteMetadata merges fi into the xl.meta at <volume>/<path>,
// creating a fresh one when fi.Fresh is set or none exists yet, then
// commits it through the atomic write discipline.
func (d *Disk) WriteMetadata(ctx context.Context, volume, path string, fi filemeta.FileInfo) *diskerr.Error {
	if err := d.checkReady(); err != nil {
		return err
	}
	fm, err := d.loadOrNew(volume, path, fi.Fresh)
	if err != nil {
		return err
	}
	if aerr := fm.AddVersion(fi); aerr != nil {
		return aerr
	}
	return d.writeMeta(ctx, volume, path, fm)
}

// UpdateMetadata performs a metadata-only update to an existing object
// version.
func (d *Disk) UpdateMetadata(ctx context.Context, volume, path string, fi filemeta.FileInfo) *diskerr.Error {
	if err := d.checkReady(); err != nil {
		return err
	}
	fm, err := d.readMeta(volume, path)
	if err != nil {
		return err
	}
	if uerr := fm.UpdateObjectVersion(fi); uerr != nil {
		return uerr
	}
	return d.writeMeta(ctx, volume, path, fm)
}

func (d *Disk) loadOrNew(volume, path string, fresh bool) (*filemeta.FileMeta, *diskerr.Error) {
	if fresh {
		return filemeta.New(), nil
	}
	fm, err := d.readMeta(volume, path)
	if err != nil {
		if err.Kind == diskerr.FileNotFound {
			return filemeta.New(), nil
		}
		return nil, err
	}
	return fm, nil
}

// RenameResult carries the outcome of a successful RenameData commit.
type RenameResult struct {
	OldDataDir string
	Signature  [4]byte
}

// RenameData is the commit operation for a freshly written object
// version: it merges fi into the destination's xl.meta, writes that
// meta into the source directory, then atomically rockets the data-dir
// and xl.meta into the destination in the order required to keep a
// concurrent reader from ever observing a dangling data-dir reference
// (spec.md §4.E, §5).
func (d *Disk) RenameData(ctx context.Context, srcVolume, srcPath string, fi filemeta.FileInfo, dstVolume, dstPath string) (RenameResult, *diskerr.Error) {
	if err := d.checkReady(); err != nil {
		return RenameResult{}, err
	}

	// (a) read an existing destination xl.meta if any.
	dstMeta, err := d.loadOrNew(dstVolume, dstPath, false)
	if err != nil {
		return RenameResult{}, err
	}

	var oldDataDir string
	if idx, v, ferr := dstMeta.FindVersion(fi.VersionID); ferr == nil && v.Type == filemeta.ObjectType && v.Object.DataDir != fi.DataDir {
		if dstMeta.SharedDataDirCount(v.Object.DataDir, idx) == 0 {
			oldDataDir = v.Object.DataDir
		}
	}

	// (b) merge fi into that meta.
	if aerr := dstMeta.AddVersion(fi); aerr != nil {
		return RenameResult{}, aerr
	}

	// (c) write the new meta into the source directory.
	if werr := d.writeMeta(ctx, srcVolume, srcPath, dstMeta); werr != nil {
		return RenameResult{}, werr
	}

	// (d) atomically rename the source data-dir into place, unless the
	// version is inlined or empty.
	if fi.Data == nil && fi.Size > 0 && fi.DataDir != "" {
		srcDataDir := d.path(srcVolume, srcPath, fi.DataDir)
		dstDataDir := d.path(dstVolume, dstPath, fi.DataDir)
		if err := os.MkdirAll(filepath.Dir(dstDataDir), 0o755); err != nil {
			return RenameResult{}, diskerr.ToDiskError(err)
		}
		if err := os.Rename(srcDataDir, dstDataDir); err != nil {
			return RenameResult{}, diskerr.ToFileError(err)
		}
	}

	// (e) snapshot the prior xl.meta as xl.meta.bkp if the old data-dir
	// was displaced.
	dstMetaPath := d.path(dstVolume, dstPath, xlMetaFile)
	if oldDataDir != "" {
		if oldBuf, readErr := os.ReadFile(dstMetaPath); readErr == nil {
			_ = d.atomicWriteMeta(ctx, d.path(dstVolume, dstPath, xlMetaBackup), oldBuf)
		}
	}

	// (f) atomically rename xl.meta into the destination.
	srcMetaPath := d.path(srcVolume, srcPath, xlMetaFile)
	if err := os.MkdirAll(filepath.Dir(dstMetaPath), 0o755); err != nil {
		return RenameResult{}, diskerr.ToDiskError(err)
	}
	if err := os.Rename(srcMetaPath, dstMetaPath); err != nil {
		return RenameResult{}, diskerr.ToFileError(err)
	}

	// (g) opportunistically remove the now-empty source parent.
	d.pruneEmptyParents(d.path(srcVolume), filepath.Dir(srcMetaPath))

	if oldDataDir != "" {
		_ = d.Delete(ctx, dstVolume, filepath.Join(dstPath, oldDataDir), true)
	}

	var sig [4]byte
	if _, v, ferr := dstMeta.FindVersion(fi.VersionID); ferr == nil {
		sig = v.Header().Signature
	}
	return RenameResult{OldDataDir: oldDataDir, Signature: sig}, nil
}

// DeleteOptions controls DeleteVersion's undo behavior.
type DeleteOptions struct {
	UndoWrite bool
}

// DeleteVersion applies fi's delete to the xl.meta at <volume>/<path>.
// If opts.UndoWrite is set, xl.meta.bkp is swapped back into place
// instead. If the resulting FileMeta has zero versions, the entire
// object directory is removed via trash.
func (d *Disk) DeleteVersion(ctx context.Context, volume, path string, fi filemeta.FileInfo, force bool, opts DeleteOptions) *diskerr.Error {
	if err := d.checkReady(); err != nil {
		return err
	}

	if opts.UndoWrite {
		bkp := d.path(volume, path, xlMetaBackup)
		target := d.path(volume, path, xlMetaFile)
		if err := os.Rename(bkp, target); err != nil {
			return diskerr.ToFileError(err)
		}
		return nil
	}

	fm, err := d.readMeta(volume, path)
	if err != nil {
		if err.Kind == diskerr.FileNotFound && force {
			return nil
		}
		return err
	}

	dataDir, derr := fm.DeleteVersion(fi)
	if derr != nil {
		if force {
			return nil
		}
		return derr
	}

	if fm.Empty() {
		return d.Delete(ctx, volume, path, true)
	}
	if werr := d.writeMeta(ctx, volume, path, fm); werr != nil {
		return werr
	}
	if dataDir != "" {
		_ = d.Delete(ctx, volume, filepath.Join(path, dataDir), true)
	}
	return nil
}

// FileInfoVersions bundles a name with the version deletes to apply to
// it, for the batched DeleteVersions variant.
type FileInfoVersions struct {
	Path     string
	Versions []filemeta.FileInfo
}

// DeleteVersions is the batched per-name variant of DeleteVersion,
// returning a per-entry error vector.
func (d *Disk) DeleteVersions(ctx context.Context, volume string, entries []FileInfoVersions) []*diskerr.Error {
	out := make([]*diskerr.Error, len(entries))
	for i, e := range entries {
		var last *diskerr.Error
		for _, fi := range e.Versions {
			if err := d.DeleteVersion(ctx, volume, e.Path, fi, false, DeleteOptions{}); err != nil {
				last = err
			}
		}
		out[i] = last
	}
	return out
}
