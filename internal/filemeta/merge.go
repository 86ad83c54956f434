package filemeta

// matchesStrict reports full header equality.
func matchesStrict(a, b VersionHeader) bool {
	return a.VersionID == b.VersionID && a.ModTime == b.ModTime && a.Type == b.Type &&
		a.Signature == b.Signature && a.Flags == b.Flags &&
		a.ErasureN == b.ErasureN && a.ErasureM == b.ErasureM
}

// matchesNotStrict reports agreement on version_id, version_type, and
// erasure (n,m) when both headers carry erasure parameters.
func matchesNotStrict(a, b VersionHeader) bool {
	if a.VersionID != b.VersionID || a.Type != b.Type {
		return false
	}
	aHasEC := a.ErasureN > 0 && a.ErasureM > 0
	bHasEC := b.ErasureN > 0 && b.ErasureM > 0
	if a.Type == ObjectType && aHasEC && bHasEC {
		return a.ErasureN == b.ErasureN && a.ErasureM == b.ErasureM
	}
	return true
}

func headerLess(a, b VersionHeader) bool {
	if a.ModTime != b.ModTime {
		return a.ModTime > b.ModTime
	}
	if a.Type != b.Type {
		return a.Type < b.Type
	}
	if a.VersionID != b.VersionID {
		return a.VersionID > b.VersionID
	}
	return a.Flags > b.Flags
}

// MergeVersionLists reconciles N per-disk version-header lists into a
// single winning list, per spec.md §4.D.3. quorum is the minimum number
// of agreeing lists required to emit a version; strict toggles header
// equality vs matches-not-strict; cap, if > 0, bounds the number of
// emitted versions.
func MergeVersionLists(lists [][]VersionHeader, quorum int, strict bool, cap int) []VersionHeader {
	cursors := make([]int, len(lists))
	var out []VersionHeader

	for {
		var activeIdx []int
		for i, l := range lists {
			if cursors[i] < len(l) {
				activeIdx = append(activeIdx, i)
			}
		}
		if len(activeIdx) < quorum {
			break
		}

		// Pick the sorts-before minimum among the current tops.
		winner := lists[activeIdx[0]][cursors[activeIdx[0]]]
		for _, i := range activeIdx[1:] {
			top := lists[i][cursors[i]]
			if headerLess(top, winner) {
				winner = top
			}
		}

		agreement := 0
		for _, i := range activeIdx {
			top := lists[i][cursors[i]]
			match := false
			if strict {
				match = matchesStrict(top, winner)
			} else {
				match = matchesNotStrict(top, winner)
			}
			if match {
				agreement++
			}
		}

		if agreement >= quorum {
			out = append(out, winner)
			if cap > 0 && len(out) >= cap {
				break
			}
		}

		// Advance past every list entry now known to be superseded:
		// entries older than the winner, entries sharing its version
		// id, and entries matching it outright.
		for _, i := range activeIdx {
			top := lists[i][cursors[i]]
			if top.ModTime < winner.ModTime || top.VersionID == winner.VersionID ||
				matchesNotStrict(top, winner) {
				cursors[i]++
			}
		}
	}

	return out
}
