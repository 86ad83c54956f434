// Package disk implements the local filesystem engine: volume and file
// lifecycle on one physical disk, trash-based deletion, atomic rename
// commit, and meta-volume bootstrap (spec.md §4.E), plus the co-located
// disk-info cache (§4.I).
package disk

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mojofs/mojofs/internal/ecstore/disk/diskerr"
	"github.com/mojofs/mojofs/internal/ecstore/disk/endpoint"
	"github.com/mojofs/mojofs/internal/logger"
	"github.com/mojofs/mojofs/internal/workers"
)

// State is a disk's lifecycle stage.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateReady
)

// Names of the reserved meta-volume and its children, relative to the
// disk root (spec.md §6).
const (
	MetaVolume    = ".mojofs.sys"
	metaTmpDir    = "tmp"
	metaTrashDir  = "tmp/.trash"
	metaTmpWrites = ".meta-tmp"
	formatFile    = "format.json"

	trashSweepInterval = 5 * time.Minute
	sweepConcurrency   = 8
)

var bootstrapVolumes = []string{
	MetaVolume,
	filepath.Join(MetaVolume, "buckets"),
	filepath.Join(MetaVolume, "multipart"),
	filepath.Join(MetaVolume, "config"),
	filepath.Join(MetaVolume, metaTmpDir),
	filepath.Join(MetaVolume, metaTrashDir),
	filepath.Join(MetaVolume, metaTmpWrites),
}

// Disk is one local storage root. It exclusively owns Root; concurrent
// Disk instances over the same root are undefined (spec.md §3).
type Disk struct {
	Endpoint endpoint.Endpoint
	Root     string

	mu    sync.RWMutex
	state State

	format   *formatCache
	info     *infoCache
	sweep    *workers.Semaphore
	rootDisk bool

	cancelTrash context.CancelFunc
	trashDone   chan struct{}
}

// Open resolves ep's root path, reads format.json (tolerating its
// absence), verifies coordinates, bootstraps meta-volumes, and starts
// the background trash sweep.
func Open(ctx context.Context, ep endpoint.Endpoint) (*Disk, error) {
	root := ep.FilePath()
	if root == "" {
		return nil, diskerr.New(diskerr.DiskNotFound)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, diskerr.ToDiskError(err)
	}

	d := &Disk{Endpoint: ep, Root: root, state: StateOpen}
	d.format = newFormatCache(d)
	d.info = newInfoCache(d)
	d.sweep = workers.New(sweepConcurrency)

	if rootDisk, rdErr := isRootDisk(root); rdErr == nil {
		d.rootDisk = rootDisk
	} else {
		_ = logger.LogIf(ctx, "root disk detection", rdErr)
	}

	for _, rel := range bootstrapVolumes {
		if err := os.MkdirAll(filepath.Join(root, rel), 0o755); err != nil {
			return nil, diskerr.ToDiskError(err)
		}
	}

	if _, err := d.format.get(ctx); err != nil && err.Kind != diskerr.UnformattedDisk {
		return nil, err
	}

	trashCtx, cancel := context.WithCancel(context.Background())
	d.cancelTrash = cancel
	d.trashDone = make(chan struct{})
	go d.runTrashSweep(trashCtx)

	d.mu.Lock()
	d.state = StateReady
	d.mu.Unlock()

	logger.Info(ctx, "disk opened", zap.String("root", root))
	return d, nil
}

// Close cancels the trash sweep and marks the disk unusable for further
// operations.
func (d *Disk) Close() {
	d.mu.Lock()
	if d.state == StateClosed {
		d.mu.Unlock()
		return
	}
	d.state = StateClosed
	d.mu.Unlock()

	if d.cancelTrash != nil {
		d.cancelTrash()
		<-d.trashDone
	}
}

// ValidateNotRootDisk returns DriveIsRoot when this disk's root shares a
// device with the OS root filesystem (spec.md §7's "misconfigured
// path" scenario). The CLI entrypoint calls this after Open unless
// --allow-root-disk is given, so a drive whose mount silently fell back
// to "/" is refused rather than used.
func (d *Disk) ValidateNotRootDisk() *diskerr.Error {
	if d.rootDisk {
		return diskerr.New(diskerr.DriveIsRoot)
	}
	return nil
}

// checkReady returns DiskNotFound once the disk has been closed.
func (d *Disk) checkReady() *diskerr.Error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.state != StateReady {
		return diskerr.New(diskerr.DiskNotFound)
	}
	return nil
}

// path joins volume and the remaining path elements under Root, without
// performing any existence or validation check.
func (d *Disk) path(volume string, elem ...string) string {
	parts := append([]string{d.Root, volume}, elem...)
	return filepath.Join(parts...)
}

func (d *Disk) metaPath(elem ...string) string {
	parts := append([]string{d.Root, MetaVolume}, elem...)
	return filepath.Join(parts...)
}

func (d *Disk) String() string {
	return fmt.Sprintf("Disk(%s)", d.Root)
}
