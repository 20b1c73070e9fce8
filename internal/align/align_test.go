// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package align

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ngs-tools/radpipe/internal/cluster"
)

func writeClusterFile(t *testing.T, path string, n int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer f.Close()
	for i := 0; i < n; i++ {
		c := cluster.Cluster{
			Headers:   []string{">seed;size=1;+"},
			Sequences: []string{"ACGT"},
		}
		if err := cluster.Write(f, c); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
}

func TestSplitDistributesAllClusters(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clusters.txt")
	writeClusterFile(t, path, 10)

	descs, err := Split(path, 3, dir)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	total := 0
	for _, d := range descs {
		total += d.NClusters
	}
	if total != 10 {
		t.Errorf("Split distributed %d clusters, want 10", total)
	}
}

func TestSplitRejectsZeroChunks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clusters.txt")
	writeClusterFile(t, path, 1)
	if _, err := Split(path, 0, dir); err == nil {
		t.Errorf("Split(n=0): want error")
	}
}

func TestInternalIndelFilter(t *testing.T) {
	c := cluster.Cluster{
		Headers:   []string{">s;size=1;+"},
		Sequences: []string{"AC--GT"},
	}
	if InternalIndelFilter(c, 2, false) {
		t.Errorf("InternalIndelFilter(max=2): want false, 2 internal gaps within bound")
	}
	if !InternalIndelFilter(c, 1, false) {
		t.Errorf("InternalIndelFilter(max=1): want true, 2 internal gaps exceeds bound")
	}
}

func TestInternalIndelFilterIgnoresEdgeGaps(t *testing.T) {
	c := cluster.Cluster{
		Headers:   []string{">s;size=1;+"},
		Sequences: []string{"--ACGT--"},
	}
	if InternalIndelFilter(c, 0, false) {
		t.Errorf("InternalIndelFilter: leading/trailing gaps should not count as internal indels")
	}
}

func TestInternalIndelFilterPaired(t *testing.T) {
	c := cluster.Cluster{
		Headers:   []string{">s;size=1;+"},
		Sequences: []string{"AC-GTnACGT"},
	}
	if InternalIndelFilter(c, 1, true) {
		t.Errorf("InternalIndelFilter(paired, max=1): want false, worst half has exactly 1 gap")
	}
	if !InternalIndelFilter(c, 0, true) {
		t.Errorf("InternalIndelFilter(paired, max=0): want true, first half has 1 internal gap")
	}
}

func TestGBSEdgeTrim(t *testing.T) {
	c := cluster.Cluster{
		Headers:   []string{">seed;size=1;+", ">hit;size=1;-"},
		Sequences: []string{"-ACGT-", "-ACGT-"},
	}
	out := GBSEdgeTrim(c)
	if len(out.Sequences) != 2 {
		t.Fatalf("GBSEdgeTrim: got %d sequences, want 2", len(out.Sequences))
	}
	for _, s := range out.Sequences {
		if s == "NNN" {
			t.Errorf("GBSEdgeTrim collapsed a sequence unexpectedly: window should be non-empty")
		}
	}
}

func TestDecloneMergesSameTag(t *testing.T) {
	c := cluster.Cluster{
		Headers:   []string{">r1;tag=AAAA;size=3;+", ">r2;tag=AAAA;size=2;+", ">r3;tag=CCCC;size=1;+"},
		Sequences: []string{"ACGT", "AC-T", "ACGT"},
	}
	tagOf := func(h string) string {
		_, _, tag, _, _ := cluster.ParseHeader(h)
		return tag
	}
	out, recovered, dropped := Declone(c, tagOf)
	if len(out.Headers) != 2 {
		t.Fatalf("Declone: got %d groups, want 2 (one per distinct tag)", len(out.Headers))
	}
	if recovered != 1 || dropped != 1 {
		t.Errorf("Declone: recovered=%d dropped=%d, want 1,1", recovered, dropped)
	}
	if !strings.Contains(out.Headers[0], "size=5") {
		t.Errorf("Declone: merged header = %q, want size=5 (3+2)", out.Headers[0])
	}
}

func TestDecloneKeepsLargestSizeEvenWithMoreGaps(t *testing.T) {
	// r1 is the larger-size read despite carrying an internal gap; r2
	// is smaller but gap-free. The survivor must be r1's sequence.
	c := cluster.Cluster{
		Headers:   []string{">r1;tag=AAAA;size=5;+", ">r2;tag=AAAA;size=2;+"},
		Sequences: []string{"AC-T", "ACGT"},
	}
	tagOf := func(h string) string {
		_, _, tag, _, _ := cluster.ParseHeader(h)
		return tag
	}
	out, _, _ := Declone(c, tagOf)
	if len(out.Sequences) != 1 || out.Sequences[0] != "AC-T" {
		t.Errorf("Declone: sequence = %v, want the size=5 read's sequence AC-T", out.Sequences)
	}
	if !strings.Contains(out.Headers[0], "size=7") {
		t.Errorf("Declone: merged header = %q, want size=7 (5+2)", out.Headers[0])
	}
}
