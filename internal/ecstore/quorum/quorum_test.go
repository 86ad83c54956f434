package quorum

import (
	"testing"

	"github.com/mojofs/mojofs/internal/ecstore/disk/diskerr"
)

func ioErr(detail string) *diskerr.Error {
	return &diskerr.Error{Kind: diskerr.Io, Detail: detail}
}

func TestReduceErrsBasic(t *testing.T) {
	e1 := ioErr("a")
	e2 := ioErr("b")
	errs := []*diskerr.Error{e1, e1, e2, nil}
	count, err := ReduceErrs(errs, nil)
	if count != 2 || !diskerr.Equal(err, e1) {
		t.Fatalf("got count=%d err=%v", count, err)
	}
}

func TestReduceErrsIgnored(t *testing.T) {
	e1 := ioErr("a")
	e2 := ioErr("b")
	errs := []*diskerr.Error{e1, e2, e1, e2, nil}
	count, err := ReduceErrs(errs, []*diskerr.Error{e2})
	if count != 2 || !diskerr.Equal(err, e1) {
		t.Fatalf("got count=%d err=%v", count, err)
	}
}

func TestReduceQuorumErrs(t *testing.T) {
	e1 := ioErr("a")
	e2 := ioErr("b")
	errs := []*diskerr.Error{e1, e1, e2, nil}
	quorumErr := diskerr.New(diskerr.FaultyDisk)

	if got := ReduceQuorumErrs(errs, nil, 2, quorumErr); !diskerr.Equal(got, e1) {
		t.Fatalf("quorum=2: got %v want %v", got, e1)
	}
	if got := ReduceQuorumErrs(errs, nil, 3, quorumErr); !diskerr.Equal(got, quorumErr) {
		t.Fatalf("quorum=3: got %v want %v", got, quorumErr)
	}
}

func TestCountErrs(t *testing.T) {
	e1 := ioErr("a")
	e2 := ioErr("b")
	errs := []*diskerr.Error{e1, e2, e1, nil}
	if n := CountErrs(errs, e1); n != 2 {
		t.Fatalf("got %d want 2", n)
	}
	if n := CountErrs(errs, e2); n != 1 {
		t.Fatalf("got %d want 1", n)
	}
}

func TestIsIgnoredErr(t *testing.T) {
	e1 := ioErr("a")
	e2 := ioErr("b")
	ignored := []*diskerr.Error{e1}
	if !IsIgnoredErr(ignored, e1) {
		t.Fatalf("expected e1 ignored")
	}
	if IsIgnoredErr(ignored, e2) {
		t.Fatalf("expected e2 not ignored")
	}
}

func TestReduceErrsNilTiebreak(t *testing.T) {
	e1 := ioErr("a")
	errs := []*diskerr.Error{e1, nil, e1, nil}
	count, err := ReduceErrs(errs, nil)
	if count != 2 || err != nil {
		t.Fatalf("got count=%d err=%v, want count=2 err=nil", count, err)
	}
}

func TestReduceErrsMonotonicUnderPermutation(t *testing.T) {
	errs := []*diskerr.Error{nil, nil, nil, diskerr.New(diskerr.DiskNotFound), diskerr.New(diskerr.FileCorrupt)}
	perm := []*diskerr.Error{diskerr.New(diskerr.FileCorrupt), nil, diskerr.New(diskerr.DiskNotFound), nil, nil}
	_, e1 := ReduceErrs(errs, nil)
	_, e2 := ReduceErrs(perm, nil)
	if e1 != nil || e2 != nil {
		t.Fatalf("expected success quorum regardless of order, got %v / %v", e1, e2)
	}
}

func TestIsAllBucketsNotFound(t *testing.T) {
	errs := []*diskerr.Error{diskerr.New(diskerr.DiskNotFound), diskerr.New(diskerr.VolumeNotFound)}
	if !IsAllBucketsNotFound(errs) {
		t.Fatalf("expected all buckets not found")
	}
	errs = append(errs, diskerr.New(diskerr.FileCorrupt))
	if IsAllBucketsNotFound(errs) {
		t.Fatalf("non-matching kind should break it")
	}
}

func TestScenario3MixedFailures(t *testing.T) {
	errs := []*diskerr.Error{nil, nil, diskerr.New(diskerr.DiskNotFound), nil, diskerr.New(diskerr.FileAccessDenied)}
	ignored := []*diskerr.Error{diskerr.New(diskerr.DiskNotFound)}

	if got := ReduceWriteQuorumErrs(errs, ignored, 3); got != nil {
		t.Fatalf("quorum=3 expected success, got %v", got)
	}
	if got := ReduceWriteQuorumErrs(errs, ignored, 4); got == nil || got.Kind != diskerr.ErasureWriteQuorum {
		t.Fatalf("quorum=4 expected ErasureWriteQuorum, got %v", got)
	}
}
