// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package locus

import "testing"

func TestCullOverlappingDropsContained(t *testing.T) {
	loci := []Locus{
		{RefChrom: "scaf1", RefStart: 100, RefEnd: 200, Samples: []string{"s1", "s2", "s3"}},
		{RefChrom: "scaf1", RefStart: 120, RefEnd: 150, Samples: []string{"s1"}},
	}
	out := CullOverlapping(loci)
	if len(out) != 1 {
		t.Fatalf("CullOverlapping: got %d loci, want 1 (smaller contained locus dropped)", len(out))
	}
	if out[0].RefStart != 100 {
		t.Errorf("surviving locus RefStart = %d, want 100", out[0].RefStart)
	}
}

func TestCullOverlappingKeepsNonOverlapping(t *testing.T) {
	loci := []Locus{
		{RefChrom: "scaf1", RefStart: 100, RefEnd: 200, Samples: []string{"s1"}},
		{RefChrom: "scaf1", RefStart: 300, RefEnd: 400, Samples: []string{"s1"}},
	}
	out := CullOverlapping(loci)
	if len(out) != 2 {
		t.Errorf("CullOverlapping: got %d loci, want 2 (disjoint intervals)", len(out))
	}
}

func TestCullOverlappingPassesDenovoThrough(t *testing.T) {
	loci := []Locus{
		{Samples: []string{"s1"}},
		{Samples: []string{"s1", "s2"}},
	}
	out := CullOverlapping(loci)
	if len(out) != 2 {
		t.Errorf("CullOverlapping: got %d loci, want 2 (denovo loci untouched)", len(out))
	}
}
