package filemeta

import (
	"testing"

	"github.com/google/uuid"

	"github.com/mojofs/mojofs/internal/ecstore/disk/diskerr"
)

func newObjectFileInfo(versionID string, modTime int64) FileInfo {
	return FileInfo{
		VersionID: versionID,
		ModTime:   modTime,
		Size:      1024,
		DataDir:   uuid.NewString(),
		Erasure:   ErasureInfo{Algorithm: ReedSolomon, M: 2, N: 4, BlockSize: 1 << 20, Distribution: []uint8{0, 1, 2, 3}},
	}
}

func TestAddVersionRoundTrip(t *testing.T) {
	fm := New()
	fi := newObjectFileInfo(uuid.NewString(), 100)
	if err := fm.AddVersion(fi); err != nil {
		t.Fatalf("AddVersion: %v", err)
	}

	buf := fm.MarshalMsg(nil)
	if !IsXL2V1(buf) {
		t.Fatal("encoded buffer does not look like xl.meta")
	}

	loaded, err := Load(buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Versions) != 1 {
		t.Fatalf("got %d versions, want 1", len(loaded.Versions))
	}
	if loaded.Versions[0].VersionID() != fi.VersionID {
		t.Fatalf("version id mismatch: got %q want %q", loaded.Versions[0].VersionID(), fi.VersionID)
	}
	if loaded.Versions[0].Object.Size != fi.Size {
		t.Fatalf("size mismatch: got %d want %d", loaded.Versions[0].Object.Size, fi.Size)
	}
}

func TestHeaderSignatureMatchesPayload(t *testing.T) {
	fi := newObjectFileInfo(uuid.NewString(), 200)
	v := versionFromFileInfo(fi)
	h1 := v.header()
	h2 := v.header()
	if h1.Signature != h2.Signature {
		t.Fatal("signature is not deterministic for identical version content")
	}

	other := versionFromFileInfo(newObjectFileInfo(uuid.NewString(), 300))
	if v.header().Signature == other.header().Signature {
		t.Fatal("distinct versions produced colliding signatures")
	}
}

func TestSortInvariantNewestFirst(t *testing.T) {
	fm := New()
	ids := []string{uuid.NewString(), uuid.NewString(), uuid.NewString()}
	times := []int64{100, 300, 200}
	for i := range ids {
		if err := fm.AddVersion(newObjectFileInfo2(ids[i], times[i])); err != nil {
			t.Fatalf("AddVersion: %v", err)
		}
	}
	for i := 0; i+1 < len(fm.Versions); i++ {
		if fm.Versions[i].ModTime() < fm.Versions[i+1].ModTime() {
			t.Fatalf("sort invariant violated at index %d: %d < %d", i, fm.Versions[i].ModTime(), fm.Versions[i+1].ModTime())
		}
	}
	if fm.Versions[0].ModTime() != 300 {
		t.Fatalf("latest version should be mod_time 300, got %d", fm.Versions[0].ModTime())
	}
}

func newObjectFileInfo2(versionID string, modTime int64) FileInfo {
	return newObjectFileInfo(versionID, modTime)
}

func TestInlineDataContainment(t *testing.T) {
	fm := New()
	vid := uuid.NewString()
	fi := newObjectFileInfo(vid, 100)
	fi.Data = []byte("small object payload")
	if err := fm.AddVersion(fi); err != nil {
		t.Fatalf("AddVersion: %v", err)
	}

	buf := fm.MarshalMsg(nil)
	loaded, err := Load(buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, ok := loaded.Data[vid]
	if !ok {
		t.Fatal("inline data missing after round trip")
	}
	if string(got) != string(fi.Data) {
		t.Fatalf("inline data mismatch: got %q want %q", got, fi.Data)
	}
}

func TestMaxVersionsExceeded(t *testing.T) {
	fm := New()
	for i := 0; i < 100; i++ {
		if err := fm.AddVersion(newObjectFileInfo(uuid.NewString(), int64(i))); err != nil {
			t.Fatalf("AddVersion #%d: %v", i, err)
		}
	}
	err := fm.AddVersion(newObjectFileInfo(uuid.NewString(), 101))
	if err == nil || err.Kind != diskerr.MaxVersionsExceeded {
		t.Fatalf("expected MaxVersionsExceeded on version #101, got %v", err)
	}
}

func TestFileVersionNotFoundOnAbsentDelete(t *testing.T) {
	fm := New()
	if err := fm.AddVersion(newObjectFileInfo(uuid.NewString(), 100)); err != nil {
		t.Fatalf("AddVersion: %v", err)
	}
	fi := FileInfo{VersionID: uuid.NewString(), Deleted: true}
	_, err := fm.DeleteVersion(fi)
	if err == nil || err.Kind != diskerr.FileVersionNotFound {
		t.Fatalf("expected FileVersionNotFound, got %v", err)
	}
}

func TestDeleteVersionReturnsDataDirWhenUnshared(t *testing.T) {
	fm := New()
	vid := uuid.NewString()
	fi := newObjectFileInfo(vid, 100)
	if err := fm.AddVersion(fi); err != nil {
		t.Fatalf("AddVersion: %v", err)
	}
	dataDir, err := fm.DeleteVersion(FileInfo{VersionID: vid})
	if err != nil {
		t.Fatalf("DeleteVersion: %v", err)
	}
	if dataDir != fi.DataDir {
		t.Fatalf("expected data_dir %q to be released, got %q", fi.DataDir, dataDir)
	}
	if !fm.Empty() {
		t.Fatal("FileMeta should be empty after deleting its only version")
	}
}

func TestDeleteVersionWithheldWhenDataDirShared(t *testing.T) {
	fm := New()
	shared := uuid.NewString()
	a := newObjectFileInfo(uuid.NewString(), 100)
	a.DataDir = shared
	b := newObjectFileInfo(uuid.NewString(), 200)
	b.DataDir = shared
	if err := fm.AddVersion(a); err != nil {
		t.Fatalf("AddVersion a: %v", err)
	}
	if err := fm.AddVersion(b); err != nil {
		t.Fatalf("AddVersion b: %v", err)
	}
	dataDir, err := fm.DeleteVersion(FileInfo{VersionID: a.VersionID})
	if err != nil {
		t.Fatalf("DeleteVersion: %v", err)
	}
	if dataDir != "" {
		t.Fatalf("data_dir %q still referenced by another version, must not be released", dataDir)
	}
}

func TestDeleteVersionTombstone(t *testing.T) {
	fm := New()
	vid := uuid.NewString()
	if err := fm.AddVersion(newObjectFileInfo(vid, 100)); err != nil {
		t.Fatalf("AddVersion: %v", err)
	}
	_, err := fm.DeleteVersion(FileInfo{VersionID: vid, Deleted: true, ModTime: 150})
	if err != nil {
		t.Fatalf("DeleteVersion: %v", err)
	}
	if len(fm.Versions) != 1 {
		t.Fatalf("expected tombstone to replace in place, got %d versions", len(fm.Versions))
	}
	if fm.Versions[0].Type != DeleteType {
		t.Fatalf("expected delete marker, got type %d", fm.Versions[0].Type)
	}
}

func TestUpdateObjectVersionForbidsDeleteMarkerUpgrade(t *testing.T) {
	fm := New()
	vid := uuid.NewString()
	if err := fm.AddVersion(newObjectFileInfo(vid, 100)); err != nil {
		t.Fatalf("AddVersion: %v", err)
	}
	if _, err := fm.DeleteVersion(FileInfo{VersionID: vid, Deleted: true, ModTime: 150}); err != nil {
		t.Fatalf("DeleteVersion: %v", err)
	}
	err := fm.UpdateObjectVersion(newObjectFileInfo(vid, 200))
	if err == nil || err.Kind != diskerr.MethodNotAllowed {
		t.Fatalf("expected MethodNotAllowed, got %v", err)
	}
}

func TestIntoFileInfoSuccessorModTime(t *testing.T) {
	fm := New()
	older := uuid.NewString()
	newer := uuid.NewString()
	if err := fm.AddVersion(newObjectFileInfo(older, 100)); err != nil {
		t.Fatalf("AddVersion older: %v", err)
	}
	if err := fm.AddVersion(newObjectFileInfo(newer, 200)); err != nil {
		t.Fatalf("AddVersion newer: %v", err)
	}
	fi, err := fm.IntoFileInfo("bucket", "object", newer, false)
	if err != nil {
		t.Fatalf("IntoFileInfo: %v", err)
	}
	if !fi.IsLatest {
		t.Fatal("newest version should be latest")
	}
	if fi.SuccessorModTime != 100 {
		t.Fatalf("expected successor mod_time 100, got %d", fi.SuccessorModTime)
	}
}

func TestMergeVersionListsScenario5(t *testing.T) {
	v2 := VersionHeader{VersionID: "v2", ModTime: 200, Type: ObjectType, ErasureN: 4, ErasureM: 2}
	v1 := VersionHeader{VersionID: "v1", ModTime: 100, Type: ObjectType, ErasureN: 4, ErasureM: 2}

	lists := [][]VersionHeader{
		{v2, v1},
		{v2, v1},
		{v1},
	}

	got := MergeVersionLists(lists, 2, false, 0)
	if len(got) != 2 {
		t.Fatalf("expected 2 merged versions, got %d: %+v", len(got), got)
	}
	if got[0].VersionID != "v2" || got[1].VersionID != "v1" {
		t.Fatalf("expected [v2, v1], got [%s, %s]", got[0].VersionID, got[1].VersionID)
	}
}

func TestMergeVersionListsWithholdsBelowQuorum(t *testing.T) {
	v2 := VersionHeader{VersionID: "v2", ModTime: 200, Type: ObjectType}
	v1 := VersionHeader{VersionID: "v1", ModTime: 100, Type: ObjectType}

	lists := [][]VersionHeader{
		{v2, v1},
		{v1},
		{v1},
	}

	got := MergeVersionLists(lists, 2, false, 0)
	for _, h := range got {
		if h.VersionID == "v2" {
			t.Fatal("v2 only had 1/3 agreement, below quorum 2, must not be emitted")
		}
	}
}

func TestMergeVersionListsRespectsCap(t *testing.T) {
	v3 := VersionHeader{VersionID: "v3", ModTime: 300, Type: ObjectType}
	v2 := VersionHeader{VersionID: "v2", ModTime: 200, Type: ObjectType}
	v1 := VersionHeader{VersionID: "v1", ModTime: 100, Type: ObjectType}

	lists := [][]VersionHeader{
		{v3, v2, v1},
		{v3, v2, v1},
	}

	got := MergeVersionLists(lists, 2, false, 1)
	if len(got) != 1 || got[0].VersionID != "v3" {
		t.Fatalf("expected cap to stop at [v3], got %+v", got)
	}
}

func TestListVersionsOrderedNewestFirst(t *testing.T) {
	fm := New()
	if err := fm.AddVersion(newObjectFileInfo(uuid.NewString(), 100)); err != nil {
		t.Fatalf("AddVersion: %v", err)
	}
	if err := fm.AddVersion(newObjectFileInfo(uuid.NewString(), 300)); err != nil {
		t.Fatalf("AddVersion: %v", err)
	}
	if err := fm.AddVersion(newObjectFileInfo(uuid.NewString(), 200)); err != nil {
		t.Fatalf("AddVersion: %v", err)
	}
	fis := fm.ListVersions("bucket", "object")
	if len(fis) != 3 {
		t.Fatalf("expected 3 file infos, got %d", len(fis))
	}
	if fis[0].ModTime != 300 || fis[1].ModTime != 200 || fis[2].ModTime != 100 {
		t.Fatalf("unexpected order: %d, %d, %d", fis[0].ModTime, fis[1].ModTime, fis[2].ModTime)
	}
}
