// Package diskerr defines the closed set of disk-layer error kinds shared
// by every component of the local storage engine, and the conversion
// functions that classify raw OS errors into those kinds by operation
// context.
package diskerr

import "fmt"

// Kind enumerates the disk-layer error taxonomy. Values are stable on the
// wire and MUST NOT be renumbered.
type Kind uint32

const (
	MaxVersionsExceeded Kind = 0x01
	Unexpected          Kind = 0x02
	CorruptedFormat     Kind = 0x03
	CorruptedBackend    Kind = 0x04
	UnformattedDisk     Kind = 0x05
	InconsistentDisk    Kind = 0x06
	UnsupportedDisk     Kind = 0x07
	DiskFull            Kind = 0x08
	DiskNotDir          Kind = 0x09
	DiskNotFound        Kind = 0x0A
	DiskOngoingReq      Kind = 0x0B
	DriveIsRoot         Kind = 0x0C
	FaultyRemoteDisk    Kind = 0x0D
	FaultyDisk          Kind = 0x0E
	DiskAccessDenied    Kind = 0x0F
	FileNotFound        Kind = 0x10
	FileVersionNotFound Kind = 0x11
	TooManyOpenFiles    Kind = 0x12
	FileNameTooLong     Kind = 0x13
	VolumeExists        Kind = 0x14
	IsNotRegular        Kind = 0x15
	PathNotFound        Kind = 0x16
	VolumeNotFound      Kind = 0x17
	VolumeNotEmpty      Kind = 0x18
	VolumeAccessDenied  Kind = 0x19
	FileAccessDenied    Kind = 0x1A
	FileCorrupt         Kind = 0x1B
	BitrotHashAlgoInvalid Kind = 0x1C
	CrossDeviceLink     Kind = 0x1D
	LessData            Kind = 0x1E
	MoreData            Kind = 0x1F
	OutdatedXLMeta      Kind = 0x20
	PartMissingOrCorrupt Kind = 0x21
	NoHealRequired       Kind = 0x22
	MethodNotAllowed     Kind = 0x23
	Io                   Kind = 0x24
	ErasureWriteQuorum   Kind = 0x25
	ErasureReadQuorum    Kind = 0x26
	ShortWrite           Kind = 0x27
)

var messages = map[Kind]string{
	MaxVersionsExceeded:   "maximum versions exceeded, please delete few versions to proceed",
	Unexpected:            "unexpected error",
	CorruptedFormat:       "corrupted format",
	CorruptedBackend:      "corrupted backend",
	UnformattedDisk:       "unformatted disk error",
	InconsistentDisk:      "inconsistent drive found",
	UnsupportedDisk:       "drive does not support O_DIRECT",
	DiskFull:              "drive path full",
	DiskNotDir:            "disk not a dir",
	DiskNotFound:          "disk not found",
	DiskOngoingReq:        "drive still did not complete the request",
	DriveIsRoot:           "drive is part of root drive, will not be used",
	FaultyRemoteDisk:      "remote drive is faulty",
	FaultyDisk:            "drive is faulty",
	DiskAccessDenied:      "drive access denied",
	FileNotFound:          "file not found",
	FileVersionNotFound:   "file version not found",
	TooManyOpenFiles:      "too many open files, please increase 'ulimit -n'",
	FileNameTooLong:       "file name too long",
	VolumeExists:          "volume already exists",
	IsNotRegular:          "not of regular file type",
	PathNotFound:          "path not found",
	VolumeNotFound:        "volume not found",
	VolumeNotEmpty:        "volume is not empty",
	VolumeAccessDenied:    "volume access denied",
	FileAccessDenied:      "disk access denied",
	FileCorrupt:           "file is corrupted",
	ShortWrite:            "short write",
	BitrotHashAlgoInvalid: "bit-rot hash algorithm is invalid",
	CrossDeviceLink:       "rename across devices not allowed, please fix your backend configuration",
	LessData:              "less data available than what was requested",
	MoreData:              "more data was sent than what was advertised",
	OutdatedXLMeta:        "outdated XL meta",
	PartMissingOrCorrupt:  "part missing or corrupt",
	NoHealRequired:        "no healing is required",
	MethodNotAllowed:      "method not allowed",
	ErasureWriteQuorum:    "erasure write quorum",
	ErasureReadQuorum:     "erasure read quorum",
	Io:                    "io error",
}

func (k Kind) String() string {
	if m, ok := messages[k]; ok {
		return m
	}
	return "unknown error"
}

// Error is the disk-layer error type: a closed Kind plus an optional
// detail, following original_source/mojofs/ecstore/disk/error.py's
// DiskError one-for-one.
type Error struct {
	Kind   Kind
	Detail string
}

// New builds an Error for kind with no detail.
func New(kind Kind) *Error {
	return &Error{Kind: kind}
}

// Wrap builds an Io-kind Error carrying cause's message as detail,
// mirroring DiskError.other().
func Wrap(cause error) *Error {
	if cause == nil {
		return nil
	}
	if de, ok := cause.(*Error); ok {
		return de
	}
	return &Error{Kind: Io, Detail: cause.Error()}
}

// WithDetail returns a copy of e carrying detail.
func (e *Error) WithDetail(detail string) *Error {
	return &Error{Kind: e.Kind, Detail: detail}
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	return e.Kind.String()
}

// Is implements errors.Is support keyed on Kind. Io-kind errors only
// match when their Detail strings agree, matching the Python __eq__
// special case.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Kind == Io && other.Kind == Io {
		return e.Detail == other.Detail
	}
	return e.Kind == other.Kind
}

// Equal reports whether two (possibly nil) Errors are considered the
// same outcome, used by the quorum reducer's histogram.
func Equal(a, b *Error) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Is(b)
}

// ToU32 returns the wire-stable numeric code for e.
func (e *Error) ToU32() uint32 {
	return uint32(e.Kind)
}

// FromU32 reconstructs an Error from a wire-stable numeric code, or nil
// if the code is unrecognized.
func FromU32(code uint32) *Error {
	k := Kind(code)
	if _, ok := messages[k]; ok {
		return &Error{Kind: k}
	}
	return nil
}

// IsAllNotFound reports whether every slot in errs is a non-nil
// FileNotFound or FileVersionNotFound.
func IsAllNotFound(errs []*Error) bool {
	if len(errs) == 0 {
		return false
	}
	for _, err := range errs {
		if err == nil {
			return false
		}
		if err.Kind != FileNotFound && err.Kind != FileVersionNotFound {
			return false
		}
	}
	return true
}

// IsErrObjectNotFound reports whether err denotes object-level absence.
func IsErrObjectNotFound(err *Error) bool {
	return err != nil && (err.Kind == FileNotFound || err.Kind == VolumeNotFound)
}

// IsErrVersionNotFound reports whether err denotes a missing version id.
func IsErrVersionNotFound(err *Error) bool {
	return err != nil && err.Kind == FileVersionNotFound
}
