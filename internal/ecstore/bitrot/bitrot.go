// Package bitrot implements the framed reader/writer that interleaves a
// keyed hash with each shard for end-to-end corruption detection,
// grounded on original_source/mojofs/ecstore/erasure_coding/bitrot.py.
package bitrot

import (
	"crypto/md5"
	"crypto/sha256"
	"fmt"
	"hash"
	"io"

	"github.com/minio/highwayhash"
	"golang.org/x/crypto/blake2b"
)

// Algorithm identifies a bitrot hash algorithm.
type Algorithm int

const (
	SHA256 Algorithm = iota + 1
	HighwayHash256
	HighwayHash256S
	Blake2b256
	MD5
	None
)

// magicHighwayHash256Key is the fixed 32-byte key used for the
// HighwayHash256 family. It MUST NOT change: changing it breaks
// on-disk compatibility with every shard already written.
var magicHighwayHash256Key = []byte("minio-bitrot-highwayhash-key-256")

// Size returns the hash output width W in bytes for algo. None yields 0
// and disables framing entirely.
func (algo Algorithm) Size() int {
	switch algo {
	case SHA256:
		return sha256.Size
	case HighwayHash256, HighwayHash256S:
		return 32
	case Blake2b256:
		return 32
	case MD5:
		return md5.Size
	default:
		return 0
	}
}

func (algo Algorithm) String() string {
	switch algo {
	case SHA256:
		return "sha256"
	case HighwayHash256:
		return "highwayhash256"
	case HighwayHash256S:
		return "highwayhash256S"
	case Blake2b256:
		return "blake2b"
	case MD5:
		return "md5"
	default:
		return "none"
	}
}

// newHash constructs a fresh hash.Hash for algo. None returns nil.
func newHash(algo Algorithm) (hash.Hash, error) {
	switch algo {
	case SHA256:
		return sha256.New(), nil
	case HighwayHash256, HighwayHash256S:
		return highwayhash.New(magicHighwayHash256Key)
	case Blake2b256:
		return blake2b.New256(nil)
	case MD5:
		return md5.New(), nil
	case None:
		return nil, nil
	default:
		return nil, fmt.Errorf("bitrot: unknown hash algorithm %d", algo)
	}
}

// ShardFileSize returns the on-disk size of a bitrot-framed stream
// holding size plaintext bytes, shard-block size shard, under algo, per
// spec.md §4.C's formula.
func ShardFileSize(size int64, shard int64, algo Algorithm) int64 {
	if algo == None || algo.Size() == 0 {
		return size
	}
	if size == 0 {
		return 0
	}
	w := int64(algo.Size())
	numBlocks := size / shard
	lastBlock := size % shard
	total := numBlocks * (w + shard)
	if lastBlock > 0 {
		total += w + lastBlock
	}
	return total
}

// Writer is a stateful bitrot shard writer: each Write call emits
// H(block) || block for one block of at most shardSize bytes. A block
// shorter than shardSize finishes the writer; any further Write fails.
type Writer struct {
	w         io.Writer
	algo      Algorithm
	shardSize int64
	finished  bool
}

// NewWriter wraps w as a bitrot Writer using algo with the given
// shard-block size.
func NewWriter(w io.Writer, algo Algorithm, shardSize int64) *Writer {
	return &Writer{w: w, algo: algo, shardSize: shardSize}
}

// Write emits one framed block. len(buf) must be in (0, shardSize].
func (bw *Writer) Write(buf []byte) (int, error) {
	if bw.finished {
		return 0, fmt.Errorf("bitrot: writer already finished")
	}
	if len(buf) == 0 || int64(len(buf)) > bw.shardSize {
		return 0, fmt.Errorf("bitrot: invalid block size %d (shard size %d)", len(buf), bw.shardSize)
	}
	if int64(len(buf)) < bw.shardSize {
		bw.finished = true
	}

	if bw.algo == None {
		return bw.w.Write(buf)
	}

	h, err := newHash(bw.algo)
	if err != nil {
		return 0, err
	}
	h.Write(buf)
	sum := h.Sum(nil)

	if _, err := bw.w.Write(sum); err != nil {
		return 0, err
	}
	n, err := bw.w.Write(buf)
	return n, err
}

// Reader reads one framed block per Read call into out, verifying the
// block's keyed hash. A short read from r at the input tail is only
// valid for the last block; the caller is responsible for knowing which
// call is last (it drives reads by the plaintext size it expects).
type Reader struct {
	r    io.Reader
	algo Algorithm
}

// NewReader wraps r as a bitrot Reader using algo.
func NewReader(r io.Reader, algo Algorithm) *Reader {
	return &Reader{r: r, algo: algo}
}

// Read fills out with one verified block. It returns the number of
// plaintext bytes read, or an error if the hash does not match.
func (br *Reader) Read(out []byte) (int, error) {
	if br.algo == None {
		return io.ReadFull(br.r, out)
	}

	w := br.algo.Size()
	header := make([]byte, w)
	if _, err := io.ReadFull(br.r, header); err != nil {
		return 0, err
	}

	n, err := io.ReadFull(br.r, out)
	if err != nil && err != io.ErrUnexpectedEOF {
		return n, err
	}

	h, hErr := newHash(br.algo)
	if hErr != nil {
		return 0, hErr
	}
	h.Write(out[:n])
	sum := h.Sum(nil)

	if !hmacEqual(sum, header) {
		return 0, fmt.Errorf("bitrot: hash mismatch")
	}
	return n, nil
}

func hmacEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var v byte
	for i := range a {
		v |= a[i] ^ b[i]
	}
	return v == 0
}

// Verify walks a bitrot-framed stream r end-to-end, failing at the
// first block whose hash does not match. partSize is the expected
// plaintext size; shardSize is the per-block plaintext width.
func Verify(r io.Reader, partSize int64, shardSize int64, algo Algorithm) error {
	br := NewReader(r, algo)
	remaining := partSize
	buf := make([]byte, shardSize)
	for remaining > 0 {
		n := shardSize
		if remaining < n {
			n = remaining
		}
		if _, err := br.Read(buf[:n]); err != nil {
			return err
		}
		remaining -= n
	}
	return nil
}
