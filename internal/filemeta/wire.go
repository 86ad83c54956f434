package filemeta

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// xlHeader is the fixed 4-byte magic at the start of every xl.meta
// buffer.
var xlHeader = [4]byte{'X', 'L', '2', ' '}

const (
	xlVersionMajor = uint16(1)
	xlVersionMinor = uint16(3)
)

// acceptedMinor reports whether minor is a minor version this reader
// understands for xlVersionMajor, per spec.md §4.D.1's forward
// compatibility rule (accepts Mn in {0,1,2,3} for Mj=1).
func acceptedMinor(minor uint16) bool {
	return minor <= xlVersionMinor
}

// signatureOf computes the 4-byte header signature for v: a digest of
// {version_id, mod_time, size} for object versions, {version_id,
// mod_time} for delete markers and legacy entries. The Open Question in
// spec.md §9 pins this to xxhash with seed 0.
func signatureOf(v Version) [4]byte {
	digest := xxhash.New()
	digest.Write([]byte(v.VersionID()))

	var modTimeBuf [8]byte
	binary.LittleEndian.PutUint64(modTimeBuf[:], uint64(v.ModTime()))
	digest.Write(modTimeBuf[:])

	if v.Type == ObjectType && v.Object != nil {
		var sizeBuf [8]byte
		binary.LittleEndian.PutUint64(sizeBuf[:], uint64(v.Object.Size))
		digest.Write(sizeBuf[:])
	}

	sum := digest.Sum64()
	var sig [4]byte
	binary.LittleEndian.PutUint32(sig[:], uint32(sum))
	return sig
}

// crc32Of computes the metadata-blob checksum. The on-disk format calls
// this "CRC32" but per the Open Question in spec.md §9 it is computed
// with xxhash (seed 0), truncated to 32 bits, matching observed
// behavior rather than a true CRC-32/IEEE checksum.
func crc32Of(blob []byte) uint32 {
	return uint32(xxhash.Sum64(blob))
}
