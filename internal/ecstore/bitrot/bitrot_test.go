package bitrot

import (
	"bytes"
	"testing"
)

func writeAll(t *testing.T, w *Writer, plaintext []byte, shard int64) {
	t.Helper()
	for off := 0; off < len(plaintext); off += int(shard) {
		end := off + int(shard)
		if end > len(plaintext) {
			end = len(plaintext)
		}
		if _, err := w.Write(plaintext[off:end]); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
}

func TestBitrotRoundTrip(t *testing.T) {
	for _, algo := range []Algorithm{SHA256, HighwayHash256, HighwayHash256S, Blake2b256, MD5, None} {
		algo := algo
		t.Run(algo.String(), func(t *testing.T) {
			plaintext := []byte("hello bitrot world, this is shard data spanning blocks")
			shard := int64(8)

			var buf bytes.Buffer
			w := NewWriter(&buf, algo, shard)
			writeAll(t, w, plaintext, shard)

			r := NewReader(&buf, algo)
			got := make([]byte, 0, len(plaintext))
			out := make([]byte, shard)
			remaining := len(plaintext)
			for remaining > 0 {
				n := int(shard)
				if remaining < n {
					n = remaining
				}
				read, err := r.Read(out[:n])
				if err != nil {
					t.Fatalf("read: %v", err)
				}
				got = append(got, out[:read]...)
				remaining -= n
			}
			if !bytes.Equal(got, plaintext) {
				t.Fatalf("round trip mismatch: got %q want %q", got, plaintext)
			}
		})
	}
}

func TestBitrotWriterFinishesOnShortBlock(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, SHA256, 8)
	if _, err := w.Write([]byte("short")); err != nil {
		t.Fatalf("first short write: %v", err)
	}
	if _, err := w.Write([]byte("x")); err == nil {
		t.Fatalf("expected error writing after finish")
	}
}

func TestBitrotTamperDetection(t *testing.T) {
	plaintext := make([]byte, 22)
	for i := range plaintext {
		plaintext[i] = byte('a' + i%26)
	}
	shard := int64(8)

	var buf bytes.Buffer
	w := NewWriter(&buf, SHA256, shard)
	writeAll(t, w, plaintext, shard)

	data := buf.Bytes()
	// flip a byte inside the second block's payload region.
	blockSize := int(shard) + SHA256.Size()
	flipAt := blockSize + SHA256.Size() + 2
	data[flipAt] ^= 0xFF

	r := NewReader(bytes.NewReader(data), SHA256)
	out := make([]byte, shard)

	if _, err := r.Read(out); err != nil {
		t.Fatalf("first block should verify cleanly: %v", err)
	}
	if _, err := r.Read(out); err == nil {
		t.Fatalf("expected hash mismatch on tampered second block")
	}
}

func TestVerifyEndToEnd(t *testing.T) {
	plaintext := bytes.Repeat([]byte{0x42}, 40)
	shard := int64(16)

	var buf bytes.Buffer
	w := NewWriter(&buf, SHA256, shard)
	writeAll(t, w, plaintext, shard)

	if err := Verify(bytes.NewReader(buf.Bytes()), int64(len(plaintext)), shard, SHA256); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestVerifyDetectsTamper(t *testing.T) {
	plaintext := bytes.Repeat([]byte{0x7}, 40)
	shard := int64(16)

	var buf bytes.Buffer
	w := NewWriter(&buf, SHA256, shard)
	writeAll(t, w, plaintext, shard)

	data := buf.Bytes()
	data[len(data)-1] ^= 0xFF

	if err := Verify(bytes.NewReader(data), int64(len(plaintext)), shard, SHA256); err == nil {
		t.Fatalf("expected verify to detect tamper")
	}
}

func TestNoneAlgorithmDisablesFraming(t *testing.T) {
	plaintext := []byte("passthrough")
	var buf bytes.Buffer
	w := NewWriter(&buf, None, 4)
	writeAll(t, w, plaintext, 4)

	if !bytes.Equal(buf.Bytes(), plaintext) {
		t.Fatalf("None algorithm must not frame the stream")
	}
}

func TestShardFileSize(t *testing.T) {
	// 3 full 8-byte blocks of SHA256-framed data plus header each.
	got := ShardFileSize(24, 8, SHA256)
	want := int64(3 * (8 + SHA256.Size()))
	if got != want {
		t.Fatalf("got %d want %d", got, want)
	}

	// A tail block smaller than the shard size.
	got = ShardFileSize(22, 8, SHA256)
	want = int64(2*(8+SHA256.Size())) + int64(6+SHA256.Size())
	if got != want {
		t.Fatalf("got %d want %d", got, want)
	}

	if got := ShardFileSize(100, 8, None); got != 100 {
		t.Fatalf("None algorithm should not frame size, got %d", got)
	}
}

func TestEmptyPlaintext(t *testing.T) {
	if got := ShardFileSize(0, 8, SHA256); got != 0 {
		t.Fatalf("expected 0 for empty plaintext, got %d", got)
	}
}
