// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package locus

import "github.com/biogo/store/interval"

// locusInterval adapts a reference-mapped Locus to biogo/store's
// interval.IntTree, letting CullOverlapping reuse the same
// contained-feature interval query the teacher's cull tool runs over
// GFF features.
type locusInterval struct {
	uid uintptr
	idx int
	loc Locus
}

func (i locusInterval) Overlap(b interval.IntRange) bool {
	return b.Start <= i.loc.RefStart && i.loc.RefEnd <= b.End
}
func (i locusInterval) ID() uintptr { return i.uid }
func (i locusInterval) Range() interval.IntRange {
	return interval.IntRange{Start: i.loc.RefStart, End: i.loc.RefEnd}
}

// CullOverlapping drops reference-mapped loci that fall completely
// within another locus on the same scaffold with more contributing
// samples. Denovo loci (RefChrom == "") are passed through untouched.
func CullOverlapping(loci []Locus) []Locus {
	byChrom := make(map[string][]int)
	for i, loc := range loci {
		if loc.RefChrom == "" {
			continue
		}
		byChrom[loc.RefChrom] = append(byChrom[loc.RefChrom], i)
	}

	culled := make(map[int]bool)
	for _, idxs := range byChrom {
		var tree interval.IntTree
		for _, i := range idxs {
			iv := locusInterval{uid: uintptr(i), idx: i, loc: loci[i]}
			if err := tree.Insert(iv, true); err != nil {
				continue
			}
		}
		tree.AdjustRanges()
		for _, i := range idxs {
			loc := loci[i]
			iv := locusInterval{idx: i, loc: loc}
			for _, h := range tree.Get(iv) {
				other := h.(locusInterval)
				if other.idx == i {
					continue
				}
				if len(other.loc.Samples) > len(loc.Samples) {
					culled[i] = true
					break
				}
			}
		}
	}

	var out []Locus
	for i, loc := range loci {
		if !culled[i] {
			out = append(out, loc)
		}
	}
	return out
}
