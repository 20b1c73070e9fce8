// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package depth

import (
	"strings"
	"testing"

	"github.com/biogo/store/step"

	"github.com/ngs-tools/radpipe/internal/cluster"
)

func testClusters() string {
	var b strings.Builder
	// depth 6, len 4
	b.WriteString(">seed1;size=6;+\nACGT\n//\n//\n")
	// depth 2, len 4, below minMaj
	b.WriteString(">seed2;size=2;+\nACGT\n//\n//\n")
	return b.String()
}

func TestSummarize(t *testing.T) {
	s, err := Summarize(strings.NewReader(testClusters()), 5, 6)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if s.NClusters != 2 {
		t.Errorf("NClusters = %d, want 2", s.NClusters)
	}
	if s.NHiDepth != 1 {
		t.Errorf("NHiDepth = %d, want 1", s.NHiDepth)
	}
	if s.DepthHistogram[6] != 1 || s.DepthHistogram[2] != 1 {
		t.Errorf("DepthHistogram = %v, want counts at buckets 2 and 6", s.DepthHistogram)
	}
	if s.MaxFrag <= 0 || s.MaxFrag > 150 {
		t.Errorf("MaxFrag = %d, want in (0,150]", s.MaxFrag)
	}
}

func TestSummarizeInsufficientData(t *testing.T) {
	_, err := Summarize(strings.NewReader(testClusters()), 100, 100)
	if err == nil {
		t.Fatalf("Summarize: want error when no cluster reaches minMaj, got nil")
	}
}

func TestPositionDepth(t *testing.T) {
	it := cluster.Iter(strings.NewReader(testClusters()))
	var clusters []cluster.Cluster
	for it.Next() {
		clusters = append(clusters, it.Cluster())
	}
	if err := it.Err(); err != nil {
		t.Fatalf("Iter: %v", err)
	}

	v, err := PositionDepth(clusters)
	if err != nil {
		t.Fatalf("PositionDepth: %v", err)
	}
	var got step.Equaler
	err = v.ApplyRange(0, 1, func(e step.Equaler) step.Equaler {
		got = e
		return e
	})
	if err != nil {
		t.Fatalf("ApplyRange(0,1): %v", err)
	}
	if got.(depthCount) != depthCount(8) {
		t.Errorf("depth at position 0 = %v, want 8 (6+2)", got)
	}
}
