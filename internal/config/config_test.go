package config

import "testing"

func TestDefaultParityTable(t *testing.T) {
	cases := map[int]int{1: 0, 2: 1, 3: 1, 4: 2, 5: 2, 6: 3, 7: 3, 8: 4, 16: 4}
	for drives, want := range cases {
		if got := defaultParity(drives); got != want {
			t.Errorf("defaultParity(%d) = %d, want %d", drives, got, want)
		}
	}
}

func TestResolveDefaults(t *testing.T) {
	sc, err := Resolve(8)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if sc.StandardParity != 4 {
		t.Fatalf("expected standard parity 4, got %d", sc.StandardParity)
	}
	if sc.RRSParity != 1 {
		t.Fatalf("expected rrs parity 1, got %d", sc.RRSParity)
	}
	if sc.Optimize != OptimizeAvailability {
		t.Fatalf("expected default optimize=availability, got %v", sc.Optimize)
	}
	if sc.InlineBlock != defaultInlineBlock {
		t.Fatalf("expected default inline block %d, got %d", defaultInlineBlock, sc.InlineBlock)
	}
}

func TestResolveEnvOverrides(t *testing.T) {
	t.Setenv("MOJOFS_STORAGE_CLASS_STANDARD", "EC:3")
	t.Setenv("MOJOFS_STORAGE_CLASS_RRS", "EC:2")
	t.Setenv("MOJOFS_STORAGE_CLASS_OPTIMIZE", "capacity")
	t.Setenv("MOJOFS_STORAGE_CLASS_INLINE_BLOCK", "4KiB")

	sc, err := Resolve(8)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if sc.StandardParity != 3 {
		t.Fatalf("expected standard parity 3, got %d", sc.StandardParity)
	}
	if sc.RRSParity != 2 {
		t.Fatalf("expected rrs parity 2, got %d", sc.RRSParity)
	}
	if sc.Optimize != OptimizeCapacity {
		t.Fatalf("expected optimize=capacity, got %v", sc.Optimize)
	}
	if sc.InlineBlock != 4096 {
		t.Fatalf("expected inline block 4096, got %d", sc.InlineBlock)
	}
}

func TestResolveRejectsMalformedParity(t *testing.T) {
	t.Setenv("MOJOFS_STORAGE_CLASS_STANDARD", "garbage")
	if _, err := Resolve(4); err == nil {
		t.Fatalf("expected an error for a malformed EC parity value")
	}
}

func TestResolveRejectsUnknownOptimize(t *testing.T) {
	t.Setenv("MOJOFS_STORAGE_CLASS_OPTIMIZE", "fast")
	if _, err := Resolve(4); err == nil {
		t.Fatalf("expected an error for an unrecognized optimize value")
	}
}
