package disk

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mojofs/mojofs/internal/ecstore/disk/diskerr"
	"github.com/mojofs/mojofs/internal/ecstore/disk/endpoint"
)

// formatVersion holds format.json's contents (spec.md §6). Field names
// mirror the on-disk JSON keys exactly for round-trip fidelity.
type formatVersion struct {
	Version string   `json:"version"`
	Format  string   `json:"format"`
	ID      string   `json:"id"`
	XL      xlFormat `json:"xl"`
}

type xlFormat struct {
	Version          string     `json:"version"`
	This             string     `json:"this"`
	Sets             [][]string `json:"sets"`
	DistributionAlgo string     `json:"distributionAlgo"`
}

const (
	formatKindXL        = "xl"
	formatKindXLSingle  = "xl-single"
	xlFormatVersion3    = "3"
	distributionAlgoDef = "SIPMOD+PARITY"
)

const formatCacheTTL = time.Second

// formatCache memoizes format.json per spec.md §4.E's "Format-descriptor
// cache": {id, file-stat, data, last_check}, valid for 1s.
type formatCache struct {
	d *Disk

	mu        sync.Mutex
	id        string
	modTime   time.Time
	size      int64
	data      *formatVersion
	lastCheck time.Time
}

func newFormatCache(d *Disk) *formatCache {
	return &formatCache{d: d}
}

// get returns the disk's format id, re-validating against format.json
// when the 1-second freshness window has elapsed.
func (fc *formatCache) get(ctx context.Context) (string, *diskerr.Error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if fc.data != nil && time.Since(fc.lastCheck) < formatCacheTTL {
		st, err := os.Stat(fc.d.metaPath(formatFile))
		if err == nil && st.ModTime().Equal(fc.modTime) && st.Size() == fc.size {
			fc.lastCheck = time.Now()
			return fc.id, nil
		}
	}

	return fc.reload()
}

// reload re-reads format.json from disk, tolerating absence (the disk
// is then "unformatted"), and validates that (set,disk) coordinates
// match the endpoint.
func (fc *formatCache) reload() (string, *diskerr.Error) {
	path := fc.d.metaPath(formatFile)
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", diskerr.ToUnformattedDiskError(err)
	}
	st, statErr := os.Stat(path)
	if statErr != nil {
		return "", diskerr.ToUnformattedDiskError(statErr)
	}

	var fv formatVersion
	if jsonErr := json.Unmarshal(raw, &fv); jsonErr != nil {
		return "", diskerr.New(diskerr.CorruptedFormat)
	}

	if derr := verifyCoordinates(fv, fc.d.Endpoint); derr != nil {
		return "", derr
	}

	fc.data = &fv
	fc.id = fv.ID
	fc.modTime = st.ModTime()
	fc.size = st.Size()
	fc.lastCheck = time.Now()
	return fc.id, nil
}

// verifyCoordinates checks that fv.XL.This appears at
// sets[ep.SetIdx][ep.DiskIdx], per spec.md §3's "inconsistent disk" rule
// (scenario 4). Endpoints with unset coordinates (-1) skip the check —
// used for single-disk or not-yet-geometry-assigned deployments.
func verifyCoordinates(fv formatVersion, ep endpoint.Endpoint) *diskerr.Error {
	if ep.SetIdx < 0 || ep.DiskIdx < 0 {
		return nil
	}
	if ep.SetIdx >= len(fv.XL.Sets) {
		return diskerr.New(diskerr.InconsistentDisk)
	}
	set := fv.XL.Sets[ep.SetIdx]
	if ep.DiskIdx >= len(set) || set[ep.DiskIdx] != fv.XL.This {
		return diskerr.New(diskerr.InconsistentDisk)
	}
	return nil
}

// bootstrapFormat builds a brand-new format descriptor for ep, placing
// a fresh disk id at ep's (set, disk) coordinates (0,0 when unset). It
// does not write anything; WriteFormat persists the result.
func bootstrapFormat(ep endpoint.Endpoint) formatVersion {
	this := uuid.NewString()
	setIdx, diskIdx := ep.SetIdx, ep.DiskIdx
	if setIdx < 0 {
		setIdx = 0
	}
	if diskIdx < 0 {
		diskIdx = 0
	}
	sets := make([][]string, setIdx+1)
	for i := range sets {
		sets[i] = make([]string, diskIdx+1)
	}
	sets[setIdx][diskIdx] = this

	kind := formatKindXL
	if len(sets) == 1 && len(sets[0]) == 1 {
		kind = formatKindXLSingle
	}

	return formatVersion{
		Version: "1",
		Format:  kind,
		ID:      uuid.NewString(),
		XL: xlFormat{
			Version:          xlFormatVersion3,
			This:             this,
			Sets:             sets,
			DistributionAlgo: distributionAlgoDef,
		},
	}
}

// WriteFormat atomically writes fv as this disk's format.json. Used by
// bootstrap tooling; the running disk engine otherwise treats
// format.json as read-only after Open.
func (d *Disk) WriteFormat(ctx context.Context, fv formatVersion) *diskerr.Error {
	raw, err := json.MarshalIndent(fv, "", "  ")
	if err != nil {
		return diskerr.New(diskerr.Unexpected).WithDetail(err.Error())
	}
	return d.atomicWriteMeta(ctx, d.metaPath(formatFile), raw)
}
