// Package config resolves the disk-layer's environment-driven
// configuration surface (spec.md §6): storage-class parity defaults, the
// availability/capacity optimization knob, and the inline-data block-size
// threshold. Collaborators above the core own everything else (TLS,
// notification targets, compression) per spec.md §1.
package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/mojofs/mojofs/internal/logger"
)

// Optimize selects the storage-class tradeoff between availability and
// capacity.
type Optimize int

const (
	OptimizeAvailability Optimize = iota
	OptimizeCapacity
)

func (o Optimize) String() string {
	if o == OptimizeCapacity {
		return "capacity"
	}
	return "availability"
}

const defaultInlineBlock int64 = 128 * humanize.KiByte

// StorageClass holds the resolved `EC:<parity>` settings for one set.
type StorageClass struct {
	StandardParity int
	RRSParity      int
	Optimize       Optimize
	InlineBlock    int64
}

// defaultParity implements spec.md §6's "Default parity table by
// set-drive-count": 1->0, 2..3->1, 4..5->2, 6..7->3, >=8->4.
func defaultParity(driveCount int) int {
	switch {
	case driveCount <= 1:
		return 0
	case driveCount <= 3:
		return 1
	case driveCount <= 5:
		return 2
	case driveCount <= 7:
		return 3
	default:
		return 4
	}
}

// Resolve reads the recognized environment variables and falls back to
// the drive-count-derived defaults documented in spec.md §6.
//
//   MOJOFS_STORAGE_CLASS_STANDARD   "EC:<parity>"
//   MOJOFS_STORAGE_CLASS_RRS        "EC:<parity>"
//   MOJOFS_STORAGE_CLASS_OPTIMIZE   "availability" | "capacity"
//   MOJOFS_STORAGE_CLASS_INLINE_BLOCK  byte size, humanize-parseable
func Resolve(driveCount int) (StorageClass, error) {
	sc := StorageClass{
		StandardParity: defaultParity(driveCount),
		RRSParity:      rrsDefault(driveCount),
		Optimize:       OptimizeAvailability,
		InlineBlock:    defaultInlineBlock,
	}

	if v, ok := os.LookupEnv("MOJOFS_STORAGE_CLASS_STANDARD"); ok {
		p, err := parseECParity(v)
		if err != nil {
			return sc, fmt.Errorf("storage_class.standard: %w", err)
		}
		sc.StandardParity = p
	}
	if v, ok := os.LookupEnv("MOJOFS_STORAGE_CLASS_RRS"); ok {
		p, err := parseECParity(v)
		if err != nil {
			return sc, fmt.Errorf("storage_class.rrs: %w", err)
		}
		sc.RRSParity = p
	}
	if v, ok := os.LookupEnv("MOJOFS_STORAGE_CLASS_OPTIMIZE"); ok {
		switch strings.ToLower(v) {
		case "capacity":
			sc.Optimize = OptimizeCapacity
		case "availability":
			sc.Optimize = OptimizeAvailability
		default:
			return sc, fmt.Errorf("storage_class.optimize: unrecognized value %q", v)
		}
	}
	if v, ok := os.LookupEnv("MOJOFS_STORAGE_CLASS_INLINE_BLOCK"); ok {
		n, err := humanize.ParseBytes(v)
		if err != nil {
			return sc, fmt.Errorf("storage_class.inline_block: %w", err)
		}
		sc.InlineBlock = int64(n)
		if sc.InlineBlock > defaultInlineBlock {
			logger.Warn(context.Background(), "storage_class.inline_block exceeds the recommended default",
				zap.String("configured", humanize.IBytes(uint64(sc.InlineBlock))),
				zap.String("default", humanize.IBytes(uint64(defaultInlineBlock))),
			)
		}
	}

	return sc, nil
}

func rrsDefault(driveCount int) int {
	if driveCount <= 1 {
		return 0
	}
	return 1
}

func parseECParity(v string) (int, error) {
	const prefix = "EC:"
	if !strings.HasPrefix(v, prefix) {
		return 0, fmt.Errorf("expected %q prefix, got %q", prefix, v)
	}
	n, err := strconv.Atoi(strings.TrimPrefix(v, prefix))
	if err != nil {
		return 0, fmt.Errorf("invalid parity count: %w", err)
	}
	if n < 0 {
		return 0, fmt.Errorf("parity count must be non-negative, got %d", n)
	}
	return n, nil
}
