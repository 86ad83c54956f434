package disk

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/sys/unix"

	"github.com/mojofs/mojofs/internal/ecstore/disk/diskerr"
)

const (
	infoCacheTTL      = 1 * time.Second
	infoStaleDeadline = 2 * infoCacheTTL
)

// Info summarizes one disk's filesystem statistics (spec.md §4.I).
type Info struct {
	Total    uint64
	Free     uint64
	Used     uint64
	FSType   string
	RootDisk bool
}

// infoCache is the single-flight memoizer behind disk_info (spec.md
// §4.I): get() returns the cached value if fresh; otherwise serializes
// a refresh and, on failure, optionally returns the last good value.
type infoCache struct {
	d    *Disk
	sf   singleflight.Group
	mu   sync.Mutex
	last Info
	has  bool
	at   time.Time
}

func newInfoCache(d *Disk) *infoCache {
	return &infoCache{d: d}
}

// DiskInfoOptions controls fallback behavior of disk-info retrieval.
type DiskInfoOptions struct {
	NoWait         bool
	ReturnLastGood bool
}

// DiskInfo returns cached filesystem statistics, per spec.md §4.I and
// §4.E's disk_info operation.
func (d *Disk) DiskInfo(ctx context.Context, opts DiskInfoOptions) (Info, *diskerr.Error) {
	if err := d.checkReady(); err != nil {
		return Info{}, err
	}
	return d.info.get(ctx, opts)
}

func (ic *infoCache) get(ctx context.Context, opts DiskInfoOptions) (Info, *diskerr.Error) {
	ic.mu.Lock()
	age := time.Since(ic.at)
	if ic.has && age < infoCacheTTL {
		v := ic.last
		ic.mu.Unlock()
		return v, nil
	}
	inFlight := ic.has && age < infoStaleDeadline
	stale := ic.last
	hasStale := ic.has
	ic.mu.Unlock()

	if opts.NoWait && inFlight {
		return stale, nil
	}

	v, err, _ := ic.sf.Do("disk-info", func() (interface{}, error) {
		info, serr := statDisk(ic.d.Root)
		if serr != nil {
			return nil, serr
		}
		info.RootDisk = ic.d.rootDisk
		ic.mu.Lock()
		ic.last = info
		ic.has = true
		ic.at = time.Now()
		ic.mu.Unlock()
		return info, nil
	})
	if err != nil {
		if opts.ReturnLastGood && hasStale {
			return stale, nil
		}
		return Info{}, diskerr.ToDiskError(err)
	}
	return v.(Info), nil
}

func statDisk(root string) (Info, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(root, &st); err != nil {
		return Info{}, err
	}
	total := st.Blocks * uint64(st.Bsize)
	free := st.Bfree * uint64(st.Bsize)
	return Info{
		Total: total,
		Free:  free,
		Used:  total - free,
	}, nil
}
