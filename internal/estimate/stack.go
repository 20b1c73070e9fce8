// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package estimate computes a per-sample joint maximum-likelihood
// estimate of heterozygosity (H) and sequencing error rate (E) from
// the base-count stacks of within-sample clusters.
package estimate

import (
	"io"
	"math"

	"github.com/ngs-tools/radpipe/internal/cluster"
	"github.com/ngs-tools/radpipe/internal/errs"
)

const (
	maxClusters    = 10000
	maxFragDefault = 150
	maxReplicate   = 500
)

// Pattern is one unique (A,C,G,T) base-count 4-tuple observed at a
// column, together with the number of columns sharing that exact
// tuple. Bucketing by pattern rather than iterating every column lets
// the likelihood evaluate each distinct count combination once.
type Pattern struct {
	Counts       [4]int
	Multiplicity int
}

// StackParams bounds the columns contributing to the estimate.
type StackParams struct {
	MaxFrag                int // 0 selects maxFragDefault
	RestrictionOverhangLen int
	MinDepth                int // 0 admits every cluster regardless of depth
}

// Stack builds the unique base-count patterns and background base
// frequencies from up to maxClusters clusters streamed from r. Clusters
// below MinDepth are skipped entirely, matching the "depth >= stat
// threshold" admission rule. Each admitted cluster's reads are
// replicated by their size= count (capped at maxReplicate total per
// cluster) and stacked column-wise; a column holding any pair
// separator, or consisting entirely of gap/N after folding gaps to N,
// is dropped. Restriction-overhang bases at the start of every read,
// and any bases past MaxFrag, are trimmed before stacking, matching
// the original stack-building pipeline.
func Stack(r io.Reader, p StackParams) (patterns []Pattern, bfreqs [4]float64, err error) {
	maxFrag := p.MaxFrag
	if maxFrag == 0 {
		maxFrag = maxFragDefault
	}

	counts := make(map[[4]int]int)
	var totals [4]float64

	it := cluster.Iter(r)
	n := 0
	for it.Next() && n < maxClusters {
		c := it.Cluster()
		if p.MinDepth > 0 && clusterDepth(c) < p.MinDepth {
			continue
		}
		n++

		var reads []string
		totalRep := 0
		for i, seq := range c.Sequences {
			_, size, _, _, perr := cluster.ParseHeader(c.Headers[i])
			if perr != nil {
				size = 1
			}
			trimmed := seq
			if p.RestrictionOverhangLen > 0 && len(trimmed) > p.RestrictionOverhangLen {
				trimmed = trimmed[p.RestrictionOverhangLen:]
			}
			if len(trimmed) > maxFrag {
				trimmed = trimmed[:maxFrag]
			}
			for rep := 0; rep < size && totalRep < maxReplicate; rep++ {
				reads = append(reads, trimmed)
				totalRep++
			}
			if totalRep >= maxReplicate {
				break
			}
		}
		if len(reads) == 0 {
			continue
		}

		maxLen := 0
		for _, s := range reads {
			if len(s) > maxLen {
				maxLen = len(s)
			}
		}

		for col := 0; col < maxLen; col++ {
			var cnt [4]int
			anyBase := false
			hasPairSep := false
			for _, s := range reads {
				var b byte = 'N'
				if col < len(s) {
					b = s[col]
				}
				if b == 'n' {
					hasPairSep = true
					continue
				}
				if b == '-' {
					b = 'N'
				}
				idx := baseIndex(b)
				if idx >= 0 {
					cnt[idx]++
					anyBase = true
				}
			}
			if hasPairSep || !anyBase {
				continue
			}
			for i := 0; i < 4; i++ {
				totals[i] += float64(cnt[i])
			}
			counts[cnt]++
		}
	}
	if err := it.Err(); err != nil {
		return nil, bfreqs, err
	}

	sum := totals[0] + totals[1] + totals[2] + totals[3]
	if sum == 0 {
		return nil, bfreqs, &errs.BadStack{Reason: "empty stack"}
	}
	for i := range bfreqs {
		bfreqs[i] = totals[i] / sum
		if math.IsNaN(bfreqs[i]) {
			return nil, bfreqs, &errs.BadStack{Reason: "non-finite base frequency"}
		}
	}

	patterns = make([]Pattern, 0, len(counts))
	for tuple, mult := range counts {
		patterns = append(patterns, Pattern{Counts: tuple, Multiplicity: mult})
	}
	return patterns, bfreqs, nil
}

func clusterDepth(c cluster.Cluster) int {
	total := 0
	for _, h := range c.Headers {
		_, size, _, _, err := cluster.ParseHeader(h)
		if err != nil {
			size = 1
		}
		total += size
	}
	return total
}

func baseIndex(b byte) int {
	switch b {
	case 'A', 'a':
		return 0
	case 'C', 'c':
		return 1
	case 'G', 'g':
		return 2
	case 'T', 't':
		return 3
	}
	return -1
}
