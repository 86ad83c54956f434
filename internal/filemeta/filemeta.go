package filemeta

import (
	"context"
	"sort"

	"github.com/tinylib/msgp/msgp"
	"go.uber.org/zap"

	"github.com/mojofs/mojofs/internal/ecstore/disk/diskerr"
	"github.com/mojofs/mojofs/internal/logger"
)

const maxVersions = 100

// FileMeta is the in-memory decoded form of one xl.meta buffer: the
// ordered version list plus the optional inline-data map.
type FileMeta struct {
	Versions []Version
	Data     InlineData
	MetaVer  uint8
}

// New returns an empty FileMeta, as used when fresh=true.
func New() *FileMeta {
	return &FileMeta{Data: InlineData{}}
}

// IsXL2V1 is a non-throwing predicate: does buf look like a valid
// xl.meta header.
func IsXL2V1(buf []byte) bool {
	if len(buf) < 8 {
		return false
	}
	if buf[0] != xlHeader[0] || buf[1] != xlHeader[1] || buf[2] != xlHeader[2] || buf[3] != xlHeader[3] {
		return false
	}
	major := uint16(buf[4]) | uint16(buf[5])<<8
	minor := uint16(buf[6]) | uint16(buf[7])<<8
	if major > xlVersionMajor {
		return false
	}
	return acceptedMinor(minor)
}

// Load parses buf into a FileMeta. The CRC is checked but a mismatch is
// logged and non-fatal per spec.md §4.D.1.
func Load(buf []byte) (*FileMeta, error) {
	if !IsXL2V1(buf) {
		return nil, diskerr.New(diskerr.CorruptedFormat)
	}
	rest := buf[8:]

	blobLen, rest2, err := msgp.ReadBytesHeader(rest)
	if err != nil {
		return nil, diskerr.New(diskerr.CorruptedFormat)
	}
	if uint32(len(rest2)) < blobLen {
		return nil, diskerr.New(diskerr.CorruptedFormat)
	}
	metaBlob := rest2[:blobLen]
	after := rest2[blobLen:]

	fm, err := decodeMetaBlob(metaBlob)
	if err != nil {
		return nil, err
	}

	if len(after) >= 4 {
		wantCRC := crc32Of(metaBlob)
		gotCRC, after2, err := msgp.ReadUint32Bytes(after)
		if err == nil {
			after = after2
			// A mismatch is logged and otherwise ignored; bitrot is the
			// real integrity guard, per spec.md §4.D.1.
			if gotCRC != wantCRC {
				logger.Warn(context.Background(), "xl.meta CRC mismatch",
					zap.Uint32("want", wantCRC), zap.Uint32("got", gotCRC))
			}
		}
	}

	if len(after) > 0 {
		data, err := decodeInlineData(after)
		if err == nil {
			fm.Data = data
		}
	}

	return fm, nil
}

func decodeMetaBlob(blob []byte) (*FileMeta, error) {
	hdrVer, buf, err := msgp.ReadUintBytes(blob)
	if err != nil {
		return nil, diskerr.New(diskerr.CorruptedFormat)
	}
	metaVer, buf, err := msgp.ReadUintBytes(buf)
	if err != nil {
		return nil, diskerr.New(diskerr.CorruptedFormat)
	}
	_ = hdrVer

	nVersions, buf, err := msgp.ReadIntBytes(buf)
	if err != nil {
		return nil, diskerr.New(diskerr.CorruptedFormat)
	}

	fm := &FileMeta{MetaVer: uint8(metaVer), Data: InlineData{}}
	for i := 0; i < nVersions; i++ {
		var hdrBlob, payloadBlob []byte
		hdrBlob, buf, err = msgp.ReadBytesZC(buf)
		if err != nil {
			return nil, diskerr.New(diskerr.CorruptedFormat)
		}
		payloadBlob, buf, err = msgp.ReadBytesZC(buf)
		if err != nil {
			return nil, diskerr.New(diskerr.CorruptedFormat)
		}
		_, _, err = unmarshalVersionHeader(hdrBlob)
		if err != nil {
			return nil, diskerr.New(diskerr.CorruptedFormat)
		}
		v, _, err := unmarshalVersionPayload(payloadBlob)
		if err != nil {
			return nil, diskerr.New(diskerr.CorruptedFormat)
		}
		fm.Versions = append(fm.Versions, v)
	}
	return fm, nil
}

// IsLatestDeleteMarker reports whether the first (latest) version in buf
// is a delete marker. It decodes buf in full through Load, payloads
// included; it does not stop after the first version header.
func IsLatestDeleteMarker(buf []byte) bool {
	if !IsXL2V1(buf) {
		return false
	}
	fm, err := Load(buf)
	if err != nil || len(fm.Versions) == 0 {
		return false
	}
	return fm.Versions[0].Type == DeleteType
}

// sortLess implements the canonical ordering of spec.md §3 invariant 1:
// newest-first by (mod_time desc, version_type asc, version_id desc,
// flags desc).
func sortLess(a, b Version) bool {
	if a.ModTime() != b.ModTime() {
		return a.ModTime() > b.ModTime()
	}
	if a.Type != b.Type {
		return a.Type < b.Type
	}
	if a.VersionID() != b.VersionID() {
		return a.VersionID() > b.VersionID()
	}
	return a.Flags > b.Flags
}

func (fm *FileMeta) sortVersions() {
	sort.SliceStable(fm.Versions, func(i, j int) bool {
		return sortLess(fm.Versions[i], fm.Versions[j])
	})
}

// FindVersion performs a linear scan for versionID, returning its index
// and the decoded version.
func (fm *FileMeta) FindVersion(versionID string) (int, *Version, *diskerr.Error) {
	for i := range fm.Versions {
		if fm.Versions[i].VersionID() == versionID {
			return i, &fm.Versions[i], nil
		}
	}
	return -1, nil, diskerr.New(diskerr.FileVersionNotFound)
}

// versionFromFileInfo builds a Version record from a FileInfo for
// insertion via AddVersion.
func versionFromFileInfo(fi FileInfo) Version {
	if fi.Deleted {
		return Version{
			Type: DeleteType,
			Delete: &DeleteMarkerVersion{
				VersionID: fi.VersionID,
				ModTime:   fi.ModTime,
				MetaSys:   fi.MetaSys,
			},
		}
	}
	var flags xlFlags
	if fi.DataDir != "" {
		flags |= FlagUsesDataDir
	}
	if fi.Data != nil {
		flags |= FlagInlineData
	}
	return Version{
		Type:  ObjectType,
		Flags: flags,
		Object: &ObjectVersion{
			VersionID:    fi.VersionID,
			DataDir:      fi.DataDir,
			ModTime:      fi.ModTime,
			Size:         fi.Size,
			Erasure:      fi.Erasure,
			ChecksumAlgo: fi.ChecksumAlgo,
			Parts:        fi.Parts,
			MetaSys:      fi.MetaSys,
			MetaUser:     fi.MetaUser,
		},
	}
}

// AddVersion inserts or replaces fi's version in fm, preserving the sort
// invariant, and attaches inline data when present.
func (fm *FileMeta) AddVersion(fi FileInfo) *diskerr.Error {
	nv := versionFromFileInfo(fi)

	replaced := false
	for i := range fm.Versions {
		if fm.Versions[i].VersionID() == fi.VersionID {
			fm.Versions[i] = nv
			replaced = true
			break
		}
	}

	if !replaced {
		if len(fm.Versions) >= maxVersions {
			return diskerr.New(diskerr.MaxVersionsExceeded)
		}
		fm.Versions = append(fm.Versions, nv)
	}
	fm.sortVersions()

	if fi.Data != nil {
		if fm.Data == nil {
			fm.Data = InlineData{}
		}
		fm.Data[fi.VersionID] = fi.Data
	}
	return nil
}

// DeleteVersion removes fi's matching version from fm. If it was an
// object version that exclusively owned a data_dir, that data_dir UUID
// is returned so the caller can trash the shard directory. If fi.Deleted
// is set, the version is converted to a delete marker instead of being
// removed outright.
func (fm *FileMeta) DeleteVersion(fi FileInfo) (dataDir string, err *diskerr.Error) {
	idx, v, ferr := fm.FindVersion(fi.VersionID)
	if ferr != nil {
		return "", ferr
	}

	if fi.Deleted {
		fm.Versions[idx] = Version{
			Type: DeleteType,
			Delete: &DeleteMarkerVersion{
				VersionID: fi.VersionID,
				ModTime:   fi.ModTime,
			},
		}
		fm.sortVersions()
		return "", nil
	}

	if v.Type == ObjectType && v.Object.DataDir != "" {
		dataDir = v.Object.DataDir
		if fm.SharedDataDirCount(dataDir, idx) > 0 {
			dataDir = ""
		}
	}

	delete(fm.Data, fi.VersionID)
	fm.Versions = append(fm.Versions[:idx], fm.Versions[idx+1:]...)
	return dataDir, nil
}

// SharedDataDirCount reports how many versions other than excludeIdx
// reference dataDir.
func (fm *FileMeta) SharedDataDirCount(dataDir string, excludeIdx int) int {
	n := 0
	for i, v := range fm.Versions {
		if i == excludeIdx {
			continue
		}
		if v.Type == ObjectType && v.Object.DataDir == dataDir {
			n++
		}
	}
	return n
}

// UpdateObjectVersion performs a metadata-only update to an existing
// object version. Upgrading a delete marker is forbidden.
func (fm *FileMeta) UpdateObjectVersion(fi FileInfo) *diskerr.Error {
	idx, v, err := fm.FindVersion(fi.VersionID)
	if err != nil {
		return err
	}
	if v.Type == DeleteType {
		return diskerr.New(diskerr.MethodNotAllowed)
	}
	nv := versionFromFileInfo(fi)
	fm.Versions[idx] = nv
	fm.sortVersions()
	return nil
}

// MarshalMsg appends the wire encoding of fm to dst.
func (fm *FileMeta) MarshalMsg(dst []byte) []byte {
	dst = append(dst, xlHeader[:]...)
	dst = appendU16LE(dst, xlVersionMajor)
	dst = appendU16LE(dst, xlVersionMinor)

	var blob []byte
	blob = msgp.AppendUint(blob, 1) // header_ver
	blob = msgp.AppendUint(blob, uint(fm.MetaVer))
	blob = msgp.AppendInt(blob, len(fm.Versions))
	for _, v := range fm.Versions {
		hdrBlob := marshalVersionHeader(nil, v.header())
		payloadBlob := marshalVersionPayload(nil, v)
		blob = msgp.AppendBytes(blob, hdrBlob)
		blob = msgp.AppendBytes(blob, payloadBlob)
	}

	dst = msgp.AppendBytesHeader(dst, uint32(len(blob)))
	dst = append(dst, blob...)
	dst = msgp.AppendUint32(dst, crc32Of(blob))

	if len(fm.Data) > 0 {
		dst = append(dst, encodeInlineData(fm.Data)...)
	}
	return dst
}

func appendU16LE(dst []byte, v uint16) []byte {
	return append(dst, byte(v), byte(v>>8))
}

// IntoFileInfo produces the user-facing FileInfo for versionID.
// versionID == "" selects the latest (first) version.
func (fm *FileMeta) IntoFileInfo(volume, path, versionID string, readData bool) (FileInfo, *diskerr.Error) {
	if len(fm.Versions) == 0 {
		return FileInfo{}, diskerr.New(diskerr.FileNotFound)
	}

	idx := 0
	if versionID != "" {
		var err *diskerr.Error
		idx, _, err = fm.FindVersion(versionID)
		if err != nil {
			return FileInfo{}, err
		}
	}

	v := fm.Versions[idx]
	if v.Type == DeleteType {
		fi := FileInfo{
			Volume:    volume,
			Name:      path,
			VersionID: v.VersionID(),
			ModTime:   v.ModTime(),
			Deleted:   true,
			IsLatest:  idx == 0,
		}
		fm.fillSuccessor(&fi, idx)
		return fi, nil
	}
	if v.Type != ObjectType {
		return FileInfo{}, diskerr.New(diskerr.MethodNotAllowed)
	}

	o := v.Object
	fi := FileInfo{
		Volume:       volume,
		Name:         path,
		VersionID:    o.VersionID,
		ModTime:      o.ModTime,
		Size:         o.Size,
		DataDir:      o.DataDir,
		Erasure:      o.Erasure,
		ChecksumAlgo: o.ChecksumAlgo,
		Parts:        o.Parts,
		MetaSys:      o.MetaSys,
		MetaUser:     o.MetaUser,
		IsLatest:     idx == 0,
		NumVersions:  len(fm.Versions),
	}
	if readData {
		fi.Data = fm.Data[o.VersionID]
	}
	fm.fillSuccessor(&fi, idx)
	return fi, nil
}

func (fm *FileMeta) fillSuccessor(fi *FileInfo, idx int) {
	fi.NumVersions = len(fm.Versions)
	if idx+1 < len(fm.Versions) {
		fi.SuccessorModTime = fm.Versions[idx+1].ModTime()
	}
}

// ListVersions returns the FileInfo view of every version, latest first.
func (fm *FileMeta) ListVersions(volume, path string) []FileInfo {
	out := make([]FileInfo, 0, len(fm.Versions))
	for i := range fm.Versions {
		fi, err := fm.IntoFileInfo(volume, path, fm.Versions[i].VersionID(), false)
		if err == nil {
			out = append(out, fi)
		}
	}
	return out
}

// Empty reports whether fm has no versions left (spec.md §3 invariant
// 6: an empty FileMeta is represented as a non-existent xl.meta).
func (fm *FileMeta) Empty() bool {
	return len(fm.Versions) == 0
}
