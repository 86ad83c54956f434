package disk

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/filepathx"

	"github.com/mojofs/mojofs/internal/ecstore/disk/diskerr"
)

const minVolumeNameLen = 3

// reservedVolumeChars matches the teacher's own bucket-name rules:
// characters that would be ambiguous or unsafe as a directory name on at
// least one supported OS.
const reservedVolumeChars = `\:*?"<>|`

// VolumeInfo describes one volume (bucket) directory.
type VolumeInfo struct {
	Name    string
	Created int64
}

func validVolumeName(name string) bool {
	if len(name) < minVolumeNameLen {
		return false
	}
	if name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, reservedVolumeChars) {
		return false
	}
	return true
}

// MakeVolume creates <root>/<volume> iff absent.
func (d *Disk) MakeVolume(ctx context.Context, volume string) *diskerr.Error {
	if err := d.checkReady(); err != nil {
		return err
	}
	if !validVolumeName(volume) {
		return diskerr.New(diskerr.FileAccessDenied)
	}

	path := d.path(volume)
	if _, err := os.Stat(path); err == nil {
		return diskerr.New(diskerr.VolumeExists)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return diskerr.ToVolumeError(err)
	}
	return nil
}

// ListVolumes returns every directory child of root matching the
// volume-name rules, excluding the reserved meta-volume.
func (d *Disk) ListVolumes(ctx context.Context) ([]VolumeInfo, *diskerr.Error) {
	if err := d.checkReady(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(d.Root)
	if err != nil {
		return nil, diskerr.ToDiskError(err)
	}

	out := make([]VolumeInfo, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || e.Name() == MetaVolume {
			continue
		}
		if !validVolumeName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, VolumeInfo{Name: e.Name(), Created: info.ModTime().UnixNano()})
	}
	return out, nil
}

// StatVolume returns name + mtime for volume, or VolumeNotFound.
func (d *Disk) StatVolume(ctx context.Context, volume string) (VolumeInfo, *diskerr.Error) {
	if err := d.checkReady(); err != nil {
		return VolumeInfo{}, err
	}
	st, err := os.Stat(d.path(volume))
	if err != nil {
		return VolumeInfo{}, diskerr.ToVolumeError(err)
	}
	if !st.IsDir() {
		return VolumeInfo{}, diskerr.New(diskerr.VolumeNotFound)
	}
	return VolumeInfo{Name: volume, Created: st.ModTime().UnixNano()}, nil
}

// ListVolumesGlob returns every path under the disk root matching
// pattern, which may use "**" to match across directory boundaries
// (e.g. "*/multipart/**/part.*"). Used by batch prefix operations that
// need to enumerate across volumes rather than within one.
func (d *Disk) ListVolumesGlob(ctx context.Context, pattern string) ([]string, *diskerr.Error) {
	if err := d.checkReady(); err != nil {
		return nil, err
	}
	matches, err := filepathx.Glob(filepath.Join(d.Root, pattern))
	if err != nil {
		return nil, diskerr.ToDiskError(err)
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		rel, relErr := filepath.Rel(d.Root, m)
		if relErr != nil {
			return nil, diskerr.ToDiskError(relErr)
		}
		out[i] = rel
	}
	return out, nil
}

// DeleteVolume recursively removes <root>/<volume>. Idempotent on
// absence.
func (d *Disk) DeleteVolume(ctx context.Context, volume string) *diskerr.Error {
	if err := d.checkReady(); err != nil {
		return err
	}
	path := d.path(volume)
	if _, err := os.Stat(path); err != nil {
		if diskerr.ToVolumeError(err).Kind == diskerr.VolumeNotFound {
			return nil
		}
		return diskerr.ToVolumeError(err)
	}
	if err := os.RemoveAll(path); err != nil {
		return diskerr.ToVolumeError(err)
	}
	return nil
}
