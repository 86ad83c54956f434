// Package filemeta implements the xl.meta binary container: a
// header-checked, CRC-protected record of every version of one object
// plus an optional inline-data blob, grounded on the teacher's
// cmd/xl-storage-format-v2.go and on
// original_source/mojofs/filemeta/filemeta.py, whose semantics this
// package targets bit for bit.
package filemeta

// VersionType tags the kind of record stored for one version id.
type VersionType uint8

const (
	InvalidVersionType VersionType = 0
	ObjectType         VersionType = 1
	DeleteType         VersionType = 2
	LegacyType         VersionType = 3
)

// ErasureAlgo identifies the erasure-coding scheme used for an object
// version's shards. ReedSolomon is the only algorithm the core needs to
// name; the coding math itself is an external collaborator.
type ErasureAlgo uint8

const ReedSolomon ErasureAlgo = 1

// ChecksumAlgo identifies the bitrot hash algorithm recorded for an
// object version's parts.
type ChecksumAlgo uint8

const (
	ChecksumHighwayHash ChecksumAlgo = 1
	ChecksumSHA256      ChecksumAlgo = 2
	ChecksumBlake2b     ChecksumAlgo = 3
	ChecksumMD5         ChecksumAlgo = 4
	ChecksumNone        ChecksumAlgo = 5
)

// PartInfo describes one erasure-coded shard set within an object
// version.
type PartInfo struct {
	Number     int
	ETag       string
	Size       int64
	ActualSize int64
}

// ErasureInfo carries the Reed-Solomon parameters for one object
// version.
type ErasureInfo struct {
	Algorithm    ErasureAlgo
	M            int
	N            int
	BlockSize    int64
	Index        int
	Distribution []uint8
}

// xlFlags are the bit flags recorded in a VersionHeader.
type xlFlags uint8

const (
	FlagFreeVersion xlFlags = 1 << iota
	FlagUsesDataDir
	FlagInlineData
)

// ObjectVersion is the Object version variant (spec.md §3).
type ObjectVersion struct {
	VersionID    string
	DataDir      string
	ModTime      int64
	Size         int64
	Erasure      ErasureInfo
	ChecksumAlgo ChecksumAlgo
	Parts        []PartInfo
	MetaSys      map[string][]byte
	MetaUser     map[string]string
}

// DeleteMarkerVersion is the DeleteMarker version variant.
type DeleteMarkerVersion struct {
	VersionID string
	ModTime   int64
	MetaSys   map[string][]byte
}

// LegacyVersion is the opaque Legacy version variant (spec.md §9:
// out of scope beyond carrying version id and mod time).
type LegacyVersion struct {
	VersionID string
	ModTime   int64
}

// Version is one tagged record inside a FileMeta. Exactly one of
// Object, Delete, Legacy is populated, matching Type.
type Version struct {
	Type   VersionType
	Flags  xlFlags
	Object *ObjectVersion
	Delete *DeleteMarkerVersion
	Legacy *LegacyVersion
}

// ModTime returns the version's modification time regardless of
// variant.
func (v Version) ModTime() int64 {
	switch v.Type {
	case ObjectType:
		return v.Object.ModTime
	case DeleteType:
		return v.Delete.ModTime
	case LegacyType:
		return v.Legacy.ModTime
	default:
		return 0
	}
}

// VersionID returns the version's id regardless of variant.
func (v Version) VersionID() string {
	switch v.Type {
	case ObjectType:
		return v.Object.VersionID
	case DeleteType:
		return v.Delete.VersionID
	case LegacyType:
		return v.Legacy.VersionID
	default:
		return ""
	}
}

// Valid reports whether v carries a recognized, non-empty variant.
func (v Version) Valid() bool {
	switch v.Type {
	case ObjectType:
		return v.Object != nil
	case DeleteType:
		return v.Delete != nil
	case LegacyType:
		return v.Legacy != nil
	default:
		return false
	}
}

// VersionHeader duplicates the small set of fields needed for fast
// scans without decoding the full version payload (spec.md §3).
type VersionHeader struct {
	VersionID string
	ModTime   int64
	Signature [4]byte
	Type      VersionType
	Flags     xlFlags
	ErasureN  int
	ErasureM  int
}

// Header extracts the VersionHeader view of v, for callers that need
// the fast-scan fields (signature, erasure n/m) without a full payload
// decode.
func (v Version) Header() VersionHeader {
	return v.header()
}

// header extracts the VersionHeader view of v.
func (v Version) header() VersionHeader {
	h := VersionHeader{
		VersionID: v.VersionID(),
		ModTime:   v.ModTime(),
		Type:      v.Type,
		Flags:     v.Flags,
	}
	h.Signature = signatureOf(v)
	if v.Type == ObjectType && v.Object != nil {
		h.ErasureN = v.Object.Erasure.N
		h.ErasureM = v.Object.Erasure.M
	}
	return h
}

// FileInfo is the user-facing view of one version, as produced by
// IntoFileInfo and consumed by the local disk engine.
type FileInfo struct {
	Volume   string
	Name     string
	VersionID string
	IsLatest bool
	Deleted  bool // tombstone request: convert to delete marker instead of removing
	Fresh    bool // construct a brand new FileMeta rather than merging

	ModTime          int64
	Size             int64
	DataDir          string
	Erasure          ErasureInfo
	ChecksumAlgo     ChecksumAlgo
	Parts            []PartInfo
	MetaSys          map[string][]byte
	MetaUser         map[string]string
	Data             []byte // inline data payload, nil if shard-backed

	SuccessorModTime int64
	NumVersions      int
}
