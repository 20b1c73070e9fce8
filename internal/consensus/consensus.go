// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package consensus

import (
	"strconv"
	"strings"

	"github.com/ngs-tools/radpipe/internal/cluster"
	"github.com/ngs-tools/radpipe/internal/dna"
)

// Locus holds the outcome of calling a consensus sequence from one
// aligned cluster.
type Locus struct {
	Name       string
	Depth      int
	Consensus  []byte
	Triallele  bool
	NAlleles   int
	Hidx       []int

	// RefPos is (scaffold_id, start, end) for reference-mapped
	// assemblies: scaffold_id is the 1-indexed id assigned by
	// ChromIDs, start/end are 0-indexed and inclusive. Zero valued
	// for denovo loci.
	RefPos [3]int64
}

// CallSite computes the consensus byte for one aligned column given
// the sample's depth thresholds and estimated (H, E), following
// new_base_caller step by step:
//
//  1. N/gap rows are masked out; if too few non-masked rows remain,
//     the site is called N.
//  2. If every remaining row agrees, that base is called directly.
//  3. Otherwise the three most common bases are ranked; if the third
//     makes up at least 15% of the combined top-three depth,
//     triallele is set.
//  4. The top two counts are rescaled to sum at most 500 reads,
//     preserving their ratio, before being run through the binomial
//     genotype model.
//  5. Below the statistical-call threshold the majority-rule call
//     (equal split -> heterozygote code, otherwise the plurality base)
//     is used instead of the binomial posterior.
//  6. Above the threshold, a posterior below 0.95 is called N;
//     otherwise the binomial model's genotype call is used.
func CallSite(col []byte, minMaj, minStat int, estHet, estErr float64) (call byte, triallele bool) {
	var counts [256]int
	nonMasked := 0
	for _, b := range col {
		if b == dna.N || b == dna.Gap {
			continue
		}
		counts[b]++
		nonMasked++
	}
	if nonMasked < minMaj {
		return dna.N, false
	}

	first := byte(0)
	allSame := true
	for _, b := range col {
		if b == dna.N || b == dna.Gap {
			continue
		}
		if first == 0 {
			first = b
			continue
		}
		if b != first {
			allSame = false
			break
		}
	}
	if allSame {
		return first, false
	}

	pbase, nump := argmaxCount(counts)
	counts[pbase] = 0
	qbase, numq := argmaxCount(counts)
	counts[qbase] = 0
	_, numr := argmaxCount(counts)

	if nump+numq+numr > 0 && float64(numr)/float64(nump+numq+numr) >= 0.15 {
		triallele = true
	}

	bidepth := nump + numq
	if bidepth < minMaj {
		return dna.N, triallele
	}
	if bidepth > 500 {
		nump = int(500 * (float64(nump) / float64(bidepth)))
		numq = int(500 * (float64(numq) / float64(bidepth)))
		bidepth = nump + numq
	}

	if bidepth < minStat {
		if nump == numq {
			if code, ok := dna.HetCode(pbase, qbase); ok {
				return code, triallele
			}
		}
		return pbase, triallele
	}

	isHet, prob := GetBinom(nump, numq, estErr, estHet)
	if prob < 0.95 {
		return dna.N, triallele
	}
	if isHet {
		if code, ok := dna.HetCode(pbase, qbase); ok {
			return code, triallele
		}
	}
	return pbase, triallele
}

func argmaxCount(counts [256]int) (base byte, n int) {
	best := -1
	var bestBase byte
	for b, c := range counts {
		if c > best {
			best = c
			bestBase = byte(b)
		}
	}
	if best < 0 {
		best = 0
	}
	return bestBase, best
}

// BuildConsensus calls a full consensus sequence from an aligned
// cluster, applying CallSite column by column and tracking whether any
// column set the triallele flag for the whole locus. For
// reference-mapped assemblies, chromID resolves the scaffold name
// carried by the seed's "ref=chrom:start" header tag (see
// cluster.ParseRefTag) to the numeric id RefPos and the ".loci" chrom
// label share; pass nil for denovo assemblies.
func BuildConsensus(c cluster.Cluster, minMaj, minStat int, estHet, estErr float64, chromID map[string]int) Locus {
	loc := Locus{Name: firstName(c), Depth: depthOf(c)}
	if len(c.Sequences) == 0 {
		return loc
	}
	if len(c.Headers) > 0 {
		if chrom, start, ok := cluster.ParseRefTag(c.Headers[0]); ok {
			loc.RefPos = [3]int64{int64(chromID[chrom]), start, start}
		}
	}
	width := len(c.Sequences[0])
	cons := make([]byte, width)
	for col := 0; col < width; col++ {
		colBytes := make([]byte, len(c.Sequences))
		for i, seq := range c.Sequences {
			if col < len(seq) {
				colBytes[i] = seq[col]
			} else {
				colBytes[i] = dna.N
			}
		}
		call, tri := CallSite(colBytes, minMaj, minStat, estHet, estErr)
		cons[col] = call
		if tri {
			loc.Triallele = true
		}
		if dna.IsHetero(call) {
			loc.Hidx = append(loc.Hidx, col)
		}
	}
	loc.Consensus = cons
	if loc.RefPos[0] != 0 {
		loc.RefPos[2] = loc.RefPos[1] + int64(width) - 1
	}
	return loc
}

// ParseConsensRefTag extracts the "name;ref=chrom:start-end" tag a
// reference-mapped consensus FASTA header carries, the counterpart to
// the "ref=chrom:start" tag ParseRefTag reads on cluster headers. ok
// is false if no ref= field is present or it is malformed.
func ParseConsensRefTag(header string) (name, chrom string, start, end int64, ok bool) {
	s := strings.TrimPrefix(header, ">")
	s = strings.TrimRight(s, "\n")
	fields := strings.SplitN(s, ";", 2)
	name = fields[0]
	if len(fields) < 2 {
		return name, "", 0, 0, false
	}
	f := fields[1]
	if !strings.HasPrefix(f, "ref=") {
		return name, "", 0, 0, false
	}
	v := strings.TrimPrefix(f, "ref=")
	ci := strings.LastIndex(v, ":")
	di := strings.LastIndex(v, "-")
	if ci < 0 || di < ci {
		return name, "", 0, 0, false
	}
	start, serr := strconv.ParseInt(v[ci+1:di], 10, 64)
	end, eerr := strconv.ParseInt(v[di+1:], 10, 64)
	if serr != nil || eerr != nil {
		return name, "", 0, 0, false
	}
	return name, v[:ci], start, end, true
}

func firstName(c cluster.Cluster) string {
	if len(c.Headers) == 0 {
		return ""
	}
	name, _, _, _, _ := cluster.ParseHeader(c.Headers[0])
	return name
}

func depthOf(c cluster.Cluster) int {
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
