package disk

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/mojofs/mojofs/internal/ecstore/disk/diskerr"
	"github.com/mojofs/mojofs/internal/metacache"
	"github.com/mojofs/mojofs/internal/workers"
)

const walkFanOut = 8

// WalkOptions controls WalkDir's traversal (spec.md §4.E walk_dir).
type WalkOptions struct {
	BaseDir        string
	Recursive      bool
	FilterPrefix   string
	ForwardTo      string
	Limit          int
	ReportNotFound bool
}

// WalkDir enumerates <volume>/<opts.BaseDir> depth-first (or one level
// when not recursive). Recursive fan-out runs subdirectory scans
// concurrently, bounded by a worker semaphore, collecting results into a
// dedup buffer so concurrent, out-of-order visits still converge on a
// single lexicographically sorted, self-delimiting stream through sink
// (spec.md §4.G).
func (d *Disk) WalkDir(ctx context.Context, volume string, opts WalkOptions, sink *metacache.Writer) *diskerr.Error {
	if err := d.checkReady(); err != nil {
		return err
	}

	base := d.path(volume, opts.BaseDir)
	if _, err := os.Stat(base); err != nil {
		if opts.ReportNotFound && diskerr.ToFileError(err).Kind == diskerr.FileNotFound {
			return diskerr.New(diskerr.FileNotFound)
		}
		if diskerr.ToFileError(err).Kind == diskerr.FileNotFound {
			return nil
		}
		return diskerr.ToFileError(err)
	}

	buf := metacache.NewDedupBuffer()
	sem := workers.New(walkFanOut)
	var wg sync.WaitGroup
	var firstErr *diskerr.Error
	var mu sync.Mutex

	fail := func(err *diskerr.Error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	var walkOne func(dir, relPrefix string)
	walkOne = func(dir, relPrefix string) {
		select {
		case <-ctx.Done():
			fail(diskerr.New(diskerr.Unexpected).WithDetail(ctx.Err().Error()))
			return
		default:
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			fail(diskerr.ToFileError(err))
			return
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

		for _, e := range entries {
			name := e.Name()
			rel := filepath.Join(relPrefix, name)
			if opts.FilterPrefix != "" && relPrefix == "" && !strings.HasPrefix(name, opts.FilterPrefix) {
				continue
			}
			if opts.ForwardTo != "" && rel < opts.ForwardTo {
				continue
			}
			if !e.IsDir() {
				continue
			}

			metaPath := filepath.Join(dir, name, xlMetaFile)
			if meta, rerr := os.ReadFile(metaPath); rerr == nil {
				buf.Add(metacache.Entry{Name: rel, Metadata: meta})
				continue
			}

			if !opts.Recursive {
				buf.Add(metacache.Entry{Name: rel + "/"})
				continue
			}

			if sem.Take(ctx) != nil {
				fail(diskerr.New(diskerr.Unexpected).WithDetail(ctx.Err().Error()))
				return
			}
			wg.Add(1)
			go func(subDir, subRel string) {
				defer wg.Done()
				defer sem.Give()
				walkOne(subDir, subRel)
			}(filepath.Join(dir, name), rel)
		}
	}

	walkOne(base, "")
	wg.Wait()
	if firstErr != nil {
		return firstErr
	}

	emitted := 0
	for _, e := range buf.Sorted() {
		if opts.Limit > 0 && emitted >= opts.Limit {
			break
		}
		if err := sink.Put(e); err != nil {
			return diskerr.New(diskerr.Unexpected).WithDetail(err.Error())
		}
		emitted++
	}
	return nil
}
