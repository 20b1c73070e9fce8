// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package align

import (
	"strconv"
	"strings"

	"github.com/ngs-tools/radpipe/internal/cluster"
	"github.com/ngs-tools/radpipe/internal/dna"
)

// InternalIndelFilter reports whether aligned has more than max
// indels interior to any one read (excluding leading/trailing gap
// padding introduced by the alignment itself). For paired data each
// half, split on the pair separator, is checked independently.
func InternalIndelFilter(aligned cluster.Cluster, max int, paired bool) bool {
	for _, seq := range aligned.Sequences {
		halves := []string{seq}
		if paired {
			halves = strings.SplitN(seq, string(dna.PairSep), 2)
		}
		for _, h := range halves {
			trimmed := strings.Trim(h, "-")
			if strings.Count(trimmed, "-") > max {
				return true
			}
		}
	}
	return false
}

// GBSEdgeTrim trims the variable 5' overhang GBS/ddRAD libraries
// introduce on the reverse-complemented reads of a cluster: the
// leftmost non-gap column of the seed and the rightmost non-gap
// column among reverse-oriented reads bound the retained window.
// Every read is cut to that window; when the window is empty, or does
// not fit a read, that read is replaced by the sentinel "NNN".
func GBSEdgeTrim(aligned cluster.Cluster) cluster.Cluster {
	if len(aligned.Sequences) == 0 {
		return aligned
	}
	seed := aligned.Sequences[0]
	leftmost := firstNonGap(seed)

	rightmost := len(seed)
	minTrailingGaps := -1
	for i, h := range aligned.Headers {
		if !strings.Contains(h, ";-") {
			continue
		}
		tg := trailingGaps(aligned.Sequences[i])
		if minTrailingGaps < 0 || tg < minTrailingGaps {
			minTrailingGaps = tg
		}
	}
	if minTrailingGaps > 0 {
		rightmost = len(seed) - minTrailingGaps
	}

	out := cluster.Cluster{Headers: aligned.Headers}
	for _, seq := range aligned.Sequences {
		if rightmost > leftmost && rightmost <= len(seq) {
			out.Sequences = append(out.Sequences, seq[leftmost:rightmost])
		} else {
			out.Sequences = append(out.Sequences, "NNN")
		}
	}
	return out
}

func firstNonGap(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] != '-' {
			return i
		}
	}
	return len(s)
}

func trailingGaps(s string) int {
	n := 0
	for i := len(s) - 1; i >= 0 && s[i] == '-'; i-- {
		n++
	}
	return n
}

// Declone collapses PCR duplicates within a cluster by summing the
// size= counts of reads sharing the same i5 tag (extracted from each
// header by tagOf) into a single representative read, keeping the
// highest-size representative's sequence. recovered is the number of
// reads folded into a survivor; dropped is always recovered (kept as
// a separate return for caller bookkeeping parity with the upstream
// reporting convention).
func Declone(aligned cluster.Cluster, tagOf func(header string) string) (out cluster.Cluster, recovered, dropped int) {
	type group struct {
		header   string
		seq      string
		size     int
		bestSize int
	}
	groups := make(map[string]*group)
	var order []string
	for i, h := range aligned.Headers {
		tag := tagOf(h)
		_, size, _, _, _ := cluster.ParseHeader(h)
		g, ok := groups[tag]
		if !ok {
			g = &group{header: h, seq: aligned.Sequences[i], size: size, bestSize: size}
			groups[tag] = g
			order = append(order, tag)
			continue
		}
		g.size += size
		recovered++
		if size > g.bestSize {
			g.bestSize = size
			g.seq = aligned.Sequences[i]
			g.header = h
		}
	}
	for _, tag := range order {
		g := groups[tag]
		out.Headers = append(out.Headers, rewriteSize(g.header, g.size))
		out.Sequences = append(out.Sequences, g.seq)
	}
	dropped = recovered
	return out, recovered, dropped
}

func rewriteSize(header string, size int) string {
	name, _, tag, orient, err := cluster.ParseHeader(header)
	if err != nil {
		return header
	}
	if tag != "" {
		return formatHeader(name, tag, size, orient)
	}
	return formatHeaderNoTag(name, size, orient)
}

func formatHeader(name, tag string, size int, orient byte) string {
	return ">" + name + ";tag=" + tag + ";size=" + strconv.Itoa(size) + ";" + string(orient)
}

func formatHeaderNoTag(name string, size int, orient byte) string {
	return ">" + name + ";size=" + strconv.Itoa(size) + ";" + string(orient)
}
