// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package depth computes per-sample cluster depth and length
// statistics used to decide high-depth cutoffs and the maximum
// fragment length fed to the joint error/heterozygosity estimator.
package depth

import (
	"io"

	"github.com/biogo/store/step"
	"gonum.org/v1/gonum/stat"

	"github.com/ngs-tools/radpipe/internal/cluster"
	"github.com/ngs-tools/radpipe/internal/errs"
)

// depthCount is a step.Equaler wrapping an accumulated read depth, so
// a step.Vector can run-length encode per-position coverage the same
// way the teacher's comparison tool run-length encodes feature class
// membership.
type depthCount int

func (d depthCount) Equal(e step.Equaler) bool {
	o, ok := e.(depthCount)
	return ok && o == d
}

// histBuckets caps the depth histogram at 25 depth classes plus an
// overflow bucket, matching the bounded-width report the driver
// prints per sample.
const histBuckets = 26

// Summary holds one sample's depth/length statistics.
type Summary struct {
	NClusters   int
	NHiDepth    int
	DepthHistogram [histBuckets]int
	MaxFrag     int
	MeanLen     float64
	StdLen      float64

	lens []float64
}

// Summarize streams clusters once, tallying the depth histogram and
// the length statistics of clusters passing minMaj (the majority-rule
// minimum depth) used for the max-fragment-length calculation. minStat
// is the stricter statistical-basecall threshold used to flag
// high-depth clusters.
func Summarize(r io.Reader, minMaj, minStat int) (Summary, error) {
	var s Summary
	it := cluster.Iter(r)
	for it.Next() {
		c := it.Cluster()
		s.NClusters++
		depth := totalSize(c)

		b := depth
		if b >= histBuckets {
			b = histBuckets - 1
		}
		s.DepthHistogram[b]++

		if depth >= minStat {
			s.NHiDepth++
		}
		if depth >= minMaj {
			s.lens = append(s.lens, float64(len(c.Sequences[0])))
		}
	}
	if err := it.Err(); err != nil {
		return s, err
	}
	if len(s.lens) == 0 {
		return s, &errs.InsufficientData{Reason: "no clusters reached the majority-rule depth threshold"}
	}

	s.MeanLen, s.StdLen = stat.MeanStdDev(s.lens, nil)
	if len(s.lens) < 2 {
		s.StdLen = 0
	}
	s.MaxFrag = int(4 + s.MeanLen + 2*s.StdLen)
	if s.MaxFrag > 150 {
		s.MaxFrag = 150
	}
	return s, nil
}

func totalSize(c cluster.Cluster) int {
	total := 0
	for _, h := range c.Headers {
		_, n, _, _, err := cluster.ParseHeader(h)
		if err != nil {
			n = 1
		}
		total += n
	}
	return total
}

// PositionDepth builds a run-length-encoded per-position coverage
// track over a sample's clusters, one cumulative depth count per
// aligned column, built lazily since most callers only need the
// histogram.
func PositionDepth(clusters []cluster.Cluster) (*step.Vector, error) {
	maxLen := 0
	for _, c := range clusters {
		if len(c.Sequences) > 0 && len(c.Sequences[0]) > maxLen {
			maxLen = len(c.Sequences[0])
		}
	}
	v, err := step.New(0, maxLen, depthCount(0))
	if err != nil {
		return nil, err
	}
	for _, c := range clusters {
		if len(c.Sequences) == 0 {
			continue
		}
		d := totalSize(c)
		err := v.ApplyRange(0, len(c.Sequences[0]), func(e step.Equaler) step.Equaler {
			return e.(depthCount) + depthCount(d)
		})
		if err != nil {
			return nil, err
		}
	}
	return v, nil
}
