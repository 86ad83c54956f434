package disk

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mojofs/mojofs/internal/ecstore/disk/diskerr"
)

// atomicWriteMeta implements the atomic write discipline of spec.md
// §4.E: write a temp file under <root>/.mojofs.sys/.meta-tmp/<uuid>, flush+fsync,
// then atomically rename into target, creating any missing parent
// directory along the way.
func (d *Disk) atomicWriteMeta(ctx context.Context, target string, data []byte) *diskerr.Error {
	tmpDir := d.metaPath(metaTmpWrites)
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return diskerr.ToDiskError(err)
	}
	tmpPath := filepath.Join(tmpDir, uuid.NewString())

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return diskerr.ToFileError(err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return d.classifyWriteErr(target, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return diskerr.ToFileError(err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return diskerr.ToFileError(err)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		os.Remove(tmpPath)
		return diskerr.ToDiskError(err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return diskerr.ToFileError(errors.Wrapf(err, "commit rename to %s", target))
	}
	return nil
}

// classifyWriteErr implements the ENOSPC fallback documented in
// spec.md §4.E: if the destination already exists as a directory, the
// tree is removed (recoverable); otherwise the error surfaces as
// DiskFull.
func (d *Disk) classifyWriteErr(target string, err error) *diskerr.Error {
	de := diskerr.ToFileError(err)
	if de.Kind != diskerr.DiskFull {
		return de
	}
	if st, statErr := os.Stat(target); statErr == nil && st.IsDir() {
		if rmErr := os.RemoveAll(target); rmErr == nil {
			return de
		}
	}
	return de
}

// ReadAll reads the full contents of <root>/<volume>/<path>.
func (d *Disk) ReadAll(ctx context.Context, volume, path string) ([]byte, *diskerr.Error) {
	if err := d.checkReady(); err != nil {
		return nil, err
	}
	if path == formatFile && volume == MetaVolume {
		return d.readFormatCached(ctx)
	}
	data, err := os.ReadFile(d.path(volume, path))
	if err != nil {
		return nil, diskerr.ToAccessError(err, diskerr.New(diskerr.VolumeAccessDenied))
	}
	return data, nil
}

func (d *Disk) readFormatCached(ctx context.Context) ([]byte, *diskerr.Error) {
	if _, err := d.format.get(ctx); err != nil {
		return nil, err
	}
	return os.ReadFile(d.metaPath(formatFile))
}

// WriteAll atomically replaces <root>/<volume>/<path> with data.
func (d *Disk) WriteAll(ctx context.Context, volume, path string, data []byte) *diskerr.Error {
	if err := d.checkReady(); err != nil {
		return err
	}
	return d.atomicWriteMeta(ctx, d.path(volume, path), data)
}

// ReadMultipleRequest describes a batch of file reads under one prefix
// (spec.md §4.E read_multiple).
type ReadMultipleRequest struct {
	Volume     string
	Prefix     string
	Files      []string
	MaxResults int
	Abort404   bool
}

// ReadMultipleResult is one file's outcome within a ReadMultipleRequest.
type ReadMultipleResult struct {
	File    string
	Exists  bool
	Error   *diskerr.Error
	Data    []byte
	ModTime int64
}

// ReadMultiple reads up to req.MaxResults files under req.Prefix,
// stopping at the first missing file when req.Abort404 is set.
func (d *Disk) ReadMultiple(ctx context.Context, req ReadMultipleRequest) ([]ReadMultipleResult, *diskerr.Error) {
	if err := d.checkReady(); err != nil {
		return nil, err
	}
	max := req.MaxResults
	if max <= 0 || max > len(req.Files) {
		max = len(req.Files)
	}

	out := make([]ReadMultipleResult, 0, max)
	for i := 0; i < max; i++ {
		file := req.Files[i]
		full := d.path(req.Volume, req.Prefix, file)
		st, statErr := os.Stat(full)
		if statErr != nil {
			res := ReadMultipleResult{File: file, Error: diskerr.ToFileError(statErr)}
			out = append(out, res)
			if req.Abort404 && res.Error.Kind == diskerr.FileNotFound {
				break
			}
			continue
		}
		data, readErr := os.ReadFile(full)
		if readErr != nil {
			out = append(out, ReadMultipleResult{File: file, Error: diskerr.ToFileError(readErr)})
			continue
		}
		out = append(out, ReadMultipleResult{
			File:    file,
			Exists:  true,
			Data:    data,
			ModTime: st.ModTime().UnixNano(),
		})
	}
	return out, nil
}
