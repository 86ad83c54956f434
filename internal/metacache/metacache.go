// Package metacache implements the versioned, self-delimiting binary
// stream of directory-scan entries produced by the local disk engine's
// walk_dir and consumed by the quorum reducer or an RPC boundary
// (spec.md §4.G).
package metacache

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
)

// StreamVersion is the current opening byte of a metacache stream.
const StreamVersion byte = 2

var errUnsupportedVersion = errors.New("metacache: unsupported stream version")

// Entry is one directory-scan record: a name plus its raw metadata
// bytes (an xl.meta buffer, typically).
type Entry struct {
	Name     string
	Metadata []byte
}

// Writer emits a sequence of Entry records sorted lexicographically by
// Name, terminated by a final bool_more=false marker.
type Writer struct {
	w      *bufio.Writer
	wrote  bool
	last   string
	closed bool
}

// NewWriter wraps w, writing the stream-version byte immediately.
func NewWriter(w io.Writer) (*Writer, error) {
	bw := bufio.NewWriter(w)
	if err := bw.WriteByte(StreamVersion); err != nil {
		return nil, err
	}
	return &Writer{w: bw}, nil
}

// Put appends one entry. Callers MUST supply entries in lexicographic
// order by Name.
func (mw *Writer) Put(e Entry) error {
	if mw.closed {
		return errors.New("metacache: write after close")
	}
	if mw.wrote && e.Name < mw.last {
		return errors.New("metacache: entries must be written in lexicographic order")
	}
	mw.wrote = true
	mw.last = e.Name

	if err := mw.w.WriteByte(1); err != nil {
		return err
	}
	if err := writeString(mw.w, e.Name); err != nil {
		return err
	}
	if err := writeBytes(mw.w, e.Metadata); err != nil {
		return err
	}
	return nil
}

// Close writes the terminating bool_more=false marker and flushes.
func (mw *Writer) Close() error {
	if mw.closed {
		return nil
	}
	mw.closed = true
	if err := mw.w.WriteByte(0); err != nil {
		return err
	}
	return mw.w.Flush()
}

// Reader decodes a metacache stream one Entry at a time.
type Reader struct {
	r       *bufio.Reader
	version byte
	done    bool
}

// NewReader wraps r, reading and validating the stream-version byte.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)
	v, err := br.ReadByte()
	if err != nil {
		return nil, err
	}
	if v != StreamVersion {
		return nil, errUnsupportedVersion
	}
	return &Reader{r: br, version: v}, nil
}

// Next returns the next Entry, or io.EOF once the terminating marker has
// been consumed.
func (mr *Reader) Next() (Entry, error) {
	if mr.done {
		return Entry{}, io.EOF
	}
	more, err := mr.r.ReadByte()
	if err != nil {
		return Entry{}, err
	}
	if more == 0 {
		mr.done = true
		return Entry{}, io.EOF
	}

	name, err := readString(mr.r)
	if err != nil {
		return Entry{}, err
	}
	meta, err := readBytes(mr.r)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Name: name, Metadata: meta}, nil
}

func writeString(w io.Writer, s string) error {
	return writeBytes(w, []byte(s))
}

func writeBytes(w io.Writer, b []byte) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(b)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readString(r io.Reader) (string, error) {
	b, err := readBytes(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func readBytes(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
