// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cluster

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseHeader(t *testing.T) {
	for _, tc := range []struct {
		h        string
		name     string
		size     int
		tag      string
		orient   byte
		wantErr  bool
	}{
		{h: ">read1;size=5;+", name: "read1", size: 5, orient: '+'},
		{h: ">read2;tag=ACGT;size=3;-", name: "read2", size: 3, tag: "ACGT", orient: '-'},
		{h: ">read3;size=1", name: "read3", size: 1, orient: '+'},
		{h: ">bad;nosize", wantErr: true},
	} {
		name, size, tag, orient, err := ParseHeader(tc.h)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseHeader(%q): want error, got none", tc.h)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseHeader(%q): %v", tc.h, err)
		}
		if name != tc.name || size != tc.size || tag != tc.tag || orient != tc.orient {
			t.Errorf("ParseHeader(%q) = (%q,%d,%q,%q), want (%q,%d,%q,%q)",
				tc.h, name, size, tag, orient, tc.name, tc.size, tc.tag, tc.orient)
		}
	}
}

func TestIteratorRoundTrip(t *testing.T) {
	clusters := []Cluster{
		{Headers: []string{">seed1;size=3;+", ">hit1;size=1;-"}, Sequences: []string{"ACGT", "TTTT"}},
		{Headers: []string{">seed2;size=2;+"}, Sequences: []string{"GGGG"}},
	}

	var buf bytes.Buffer
	for _, c := range clusters {
		if err := Write(&buf, c); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	it := Iter(&buf)
	var got []Cluster
	for it.Next() {
		got = append(got, it.Cluster())
	}
	if err := it.Err(); err != nil {
		t.Fatalf("Iter: %v", err)
	}
	if len(got) != len(clusters) {
		t.Fatalf("got %d clusters, want %d", len(got), len(clusters))
	}
	for i, c := range got {
		if strings.Join(c.Headers, ",") != strings.Join(clusters[i].Headers, ",") {
			t.Errorf("cluster %d headers = %v, want %v", i, c.Headers, clusters[i].Headers)
		}
		if strings.Join(c.Sequences, ",") != strings.Join(clusters[i].Sequences, ",") {
			t.Errorf("cluster %d sequences = %v, want %v", i, c.Sequences, clusters[i].Sequences)
		}
	}
}

func TestIteratorTruncated(t *testing.T) {
	r := strings.NewReader(">seed1;size=1;+\nACGT\n")
	it := Iter(r)
	if it.Next() {
		t.Fatalf("Next returned true for truncated input")
	}
	if it.Err() == nil {
		t.Errorf("want error for truncated cluster, got nil")
	}
}

func TestClusterSize(t *testing.T) {
	c := Cluster{Headers: []string{">seed1;size=7;+"}, Sequences: []string{"ACGT"}}
	if got := c.Size(); got != 7 {
		t.Errorf("Size() = %d, want 7", got)
	}
}
