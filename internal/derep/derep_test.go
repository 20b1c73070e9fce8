// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package derep

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ngs-tools/radpipe/internal/cluster"
)

func TestParseUserout(t *testing.T) {
	in := "read2\tseed1\t+\t0\nread3\tseed1\tr\t2\n"
	hits, err := ParseUserout(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ParseUserout: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].Query != "read2" || hits[0].Seed != "seed1" || hits[0].Strand != '+' || hits[0].Indels != 0 {
		t.Errorf("hits[0] = %+v", hits[0])
	}
	if hits[1].Strand != '-' || hits[1].Indels != 2 {
		t.Errorf("hits[1] = %+v, want strand '-' and 2 indels", hits[1])
	}
}

func TestParseUseroutShortRow(t *testing.T) {
	_, err := ParseUserout(strings.NewReader("read2\tseed1\n"))
	if err == nil {
		t.Errorf("ParseUserout: want error for too few fields")
	}
}

func TestStrandAndCoverage(t *testing.T) {
	for _, tc := range []struct {
		datatype   string
		override   float64
		wantStrand string
		wantCov    float64
	}{
		{"rad", 0, "plus", 0.9},
		{"gbs", 0, "both", 0.5},
		{"pairgbs", 0, "both", 0.5},
		{"pairddrad", 0, "plus", 0.9},
		{"rad", 0.75, "plus", 0.75},
	} {
		strand, cov := StrandAndCoverage(tc.datatype, tc.override)
		if strand != tc.wantStrand || cov != tc.wantCov {
			t.Errorf("StrandAndCoverage(%q,%v) = (%q,%v), want (%q,%v)",
				tc.datatype, tc.override, strand, cov, tc.wantStrand, tc.wantCov)
		}
	}
}

func TestBuildClusters(t *testing.T) {
	hits := []Hit{
		{Query: "r2", Seed: "r1", Strand: '+', Indels: 0},
		{Query: "r3", Seed: "r1", Strand: '-', Indels: 5},
		{Query: "r4", Seed: "r5", Strand: '+', Indels: 1},
	}
	dereps := map[string]string{
		"r1": "ACGT",
		"r2": "ACGA",
		"r3": "TACG",
		"r5": "GGGG",
		"r4": "GGGA",
	}
	sizes := map[string]int{"r1": 3, "r2": 2, "r3": 1, "r5": 2, "r4": 1}

	var buf bytes.Buffer
	n, err := BuildClusters(&buf, hits, dereps, sizes, 2)
	if err != nil {
		t.Fatalf("BuildClusters: %v", err)
	}
	if n != 2 {
		t.Fatalf("BuildClusters returned %d clusters, want 2", n)
	}

	it := cluster.Iter(&buf)
	var got []cluster.Cluster
	for it.Next() {
		got = append(got, it.Cluster())
	}
	if err := it.Err(); err != nil {
		t.Fatalf("Iter: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("parsed %d clusters, want 2", len(got))
	}

	// r1's cluster drops r3 (5 indels > maxIndels=2) and keeps r2.
	if len(got[0].Headers) != 2 {
		t.Fatalf("r1 cluster has %d records, want 2 (seed + r2)", len(got[0].Headers))
	}
	if !strings.HasPrefix(got[0].Headers[0], ">r1;") {
		t.Errorf("r1 cluster seed header = %q", got[0].Headers[0])
	}
	if !strings.HasPrefix(got[0].Headers[1], ">r2;") {
		t.Errorf("r1 cluster second header = %q, want r2", got[0].Headers[1])
	}

	if len(got[1].Headers) != 2 {
		t.Fatalf("r5 cluster has %d records, want 2 (seed + r4)", len(got[1].Headers))
	}
}

func TestBuildClustersRevCompOnMinusStrand(t *testing.T) {
	hits := []Hit{{Query: "r2", Seed: "r1", Strand: '-', Indels: 0}}
	dereps := map[string]string{"r1": "ACGT", "r2": "ACGT"}
	sizes := map[string]int{"r1": 1, "r2": 1}

	var buf bytes.Buffer
	if _, err := BuildClusters(&buf, hits, dereps, sizes, 5); err != nil {
		t.Fatalf("BuildClusters: %v", err)
	}
	it := cluster.Iter(&buf)
	if !it.Next() {
		t.Fatalf("Iter: no cluster produced")
	}
	c := it.Cluster()
	if c.Sequences[1] != "ACGT" {
		t.Errorf("revcomp'd sequence = %q, want ACGT (self-reverse-complement)", c.Sequences[1])
	}
	if !strings.Contains(c.Headers[1], ";-") {
		t.Errorf("minus-strand header = %q, want orientation marker '-'", c.Headers[1])
	}
}
