// Package quorum implements the count-and-bucket algorithm that merges
// per-disk error vectors into a single representative outcome, grounded
// on original_source/mojofs/ecstore/disk/error_reduce.py.
package quorum

import "github.com/mojofs/mojofs/internal/ecstore/disk/diskerr"

// Predeclared ignored-error sets (spec.md §4.F).
var (
	ObjectOpIgnored = []*diskerr.Error{
		diskerr.New(diskerr.DiskNotFound),
		diskerr.New(diskerr.FaultyDisk),
		diskerr.New(diskerr.FaultyRemoteDisk),
		diskerr.New(diskerr.DiskAccessDenied),
		diskerr.New(diskerr.DiskOngoingReq),
		diskerr.New(diskerr.UnformattedDisk),
	}

	BucketOpIgnored = []*diskerr.Error{
		diskerr.New(diskerr.DiskNotFound),
		diskerr.New(diskerr.FaultyDisk),
		diskerr.New(diskerr.FaultyRemoteDisk),
		diskerr.New(diskerr.DiskAccessDenied),
		diskerr.New(diskerr.UnformattedDisk),
	}

	BaseIgnored = []*diskerr.Error{
		diskerr.New(diskerr.DiskNotFound),
		diskerr.New(diskerr.FaultyDisk),
		diskerr.New(diskerr.FaultyRemoteDisk),
	}
)

// IsIgnoredErr reports whether err appears in ignored.
func IsIgnoredErr(ignored []*diskerr.Error, err *diskerr.Error) bool {
	for _, e := range ignored {
		if diskerr.Equal(e, err) {
			return true
		}
	}
	return false
}

// CountErrs counts how many slots in errs equal err (nil-safe).
func CountErrs(errs []*diskerr.Error, err *diskerr.Error) int {
	n := 0
	for _, e := range errs {
		if diskerr.Equal(e, err) {
			n++
		}
	}
	return n
}

// ReduceErrs implements the core histogram-with-nil-tiebreak algorithm.
// It returns the winning count and the representative error (nil on a
// success majority/tie).
func ReduceErrs(errs []*diskerr.Error, ignored []*diskerr.Error) (int, *diskerr.Error) {
	nilCount := 0
	type bucket struct {
		err   *diskerr.Error
		count int
	}
	var buckets []bucket

	for _, e := range errs {
		if e == nil {
			nilCount++
			continue
		}
		if IsIgnoredErr(ignored, e) {
			continue
		}
		found := false
		for i := range buckets {
			if diskerr.Equal(buckets[i].err, e) {
				buckets[i].count++
				found = true
				break
			}
		}
		if !found {
			buckets = append(buckets, bucket{err: e, count: 1})
		}
	}

	var bestErr *diskerr.Error
	bestCount := 0
	for _, b := range buckets {
		if b.count > bestCount {
			bestCount = b.count
			bestErr = b.err
		}
	}

	if nilCount > bestCount || (nilCount == bestCount && nilCount > 0) {
		return nilCount, nil
	}
	return bestCount, bestErr
}

// ReduceQuorumErrs reduces errs and substitutes quorumErr when the
// winning count does not reach quorum.
func ReduceQuorumErrs(errs []*diskerr.Error, ignored []*diskerr.Error, quorum int, quorumErr *diskerr.Error) *diskerr.Error {
	maxCount, err := ReduceErrs(errs, ignored)
	if maxCount >= quorum {
		return err
	}
	return quorumErr
}

// ReduceWriteQuorumErrs is ReduceQuorumErrs specialized to
// ErasureWriteQuorum.
func ReduceWriteQuorumErrs(errs []*diskerr.Error, ignored []*diskerr.Error, quorum int) *diskerr.Error {
	return ReduceQuorumErrs(errs, ignored, quorum, diskerr.New(diskerr.ErasureWriteQuorum))
}

// ReduceReadQuorumErrs is ReduceQuorumErrs specialized to
// ErasureReadQuorum.
func ReduceReadQuorumErrs(errs []*diskerr.Error, ignored []*diskerr.Error, quorum int) *diskerr.Error {
	return ReduceQuorumErrs(errs, ignored, quorum, diskerr.New(diskerr.ErasureReadQuorum))
}

// IsAllBucketsNotFound reports whether every slot is DiskNotFound or
// VolumeNotFound.
func IsAllBucketsNotFound(errs []*diskerr.Error) bool {
	if len(errs) == 0 {
		return false
	}
	for _, err := range errs {
		if err == nil {
			return false
		}
		if err.Kind != diskerr.DiskNotFound && err.Kind != diskerr.VolumeNotFound {
			return false
		}
	}
	return true
}
