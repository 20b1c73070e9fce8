// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package locus assembles across-sample loci from per-sample
// consensus clusters and applies the cross-sample filters that decide
// which loci are retained for output.
package locus

import (
	"github.com/ngs-tools/radpipe/internal/dna"
)

// Locus is one across-sample aligned block: one row per sample that
// has a consensus sequence at this locus.
type Locus struct {
	Samples   []string
	Seqs      [][]byte
	RefChrom  string
	RefStart  int
	RefEnd    int
	SNPs      []int
	PIS       []int
}

// Params configures the cross-sample filters.
type Params struct {
	MinSamplesLocus int
	PopMinCov       map[string]int        // population name -> min samples
	PopMembers      map[string][]string   // population name -> sample names
	MaxIndelsLocus  int
	MaxSNPsLocus    int
	MaxSharedHets   float64
}

// FilterFunc is a single cross-sample filter: it reports whether the
// locus should be rejected, and if so, the reason key used for the
// per-chunk rejection tally. Filter order is expressed as data (a
// slice built by Filters), not as a chain of if-statements, so the
// order in which filters run can be read off the slice itself.
type FilterFunc func(Locus, Params) (reject bool, reason string)

// Filters returns the ordered filter chain applied to every locus,
// matching the order spec.md lists: dup-sample, min-sample coverage
// (overall and per-population), max-indels, max-SNPs (with PIS
// tally), max-shared-heterozygosity.
func Filters() []FilterFunc {
	return []FilterFunc{
		filterDupSamples,
		filterMinSamples,
		filterPopulationCoverage,
		filterMaxIndels,
		filterMaxSNPs,
		filterSharedHets,
	}
}

// Apply runs the filter chain in order, stopping at the first
// rejection.
func Apply(loc Locus, p Params) (reject bool, reason string) {
	for _, f := range Filters() {
		if reject, reason = f(loc, p); reject {
			return reject, reason
		}
	}
	return false, ""
}

func filterDupSamples(loc Locus, _ Params) (bool, string) {
	seen := make(map[string]bool, len(loc.Samples))
	for _, s := range loc.Samples {
		if seen[s] {
			return true, "dups"
		}
		seen[s] = true
	}
	return false, ""
}

func filterMinSamples(loc Locus, p Params) (bool, string) {
	if len(loc.Samples) < p.MinSamplesLocus {
		return true, "minsamp"
	}
	return false, ""
}

func filterPopulationCoverage(loc Locus, p Params) (bool, string) {
	if len(p.PopMembers) == 0 {
		return false, ""
	}
	present := make(map[string]bool, len(loc.Samples))
	for _, s := range loc.Samples {
		present[s] = true
	}
	for pop, members := range p.PopMembers {
		n := 0
		for _, m := range members {
			if present[m] {
				n++
			}
		}
		if n < p.PopMinCov[pop] {
			return true, "minsamp_pop"
		}
	}
	return false, ""
}

func filterMaxIndels(loc Locus, p Params) (bool, string) {
	for _, seq := range loc.Seqs {
		n := 0
		for _, b := range seq {
			if b == dna.Gap {
				n++
			}
		}
		if n > p.MaxIndelsLocus {
			return true, "maxindels"
		}
	}
	return false, ""
}

func filterMaxSNPs(loc Locus, p Params) (bool, string) {
	snps, pis := CallSNPs(loc)
	loc.SNPs = snps
	loc.PIS = pis
	if len(snps) > p.MaxSNPsLocus {
		return true, "maxsnps"
	}
	return false, ""
}

func filterSharedHets(loc Locus, p Params) (bool, string) {
	if p.MaxSharedHets <= 0 || len(loc.Seqs) == 0 {
		return false, ""
	}
	width := len(loc.Seqs[0])
	for col := 0; col < width; col++ {
		hets := 0
		for _, seq := range loc.Seqs {
			if col < len(seq) && dna.IsHetero(seq[col]) {
				hets++
			}
		}
		if float64(hets)/float64(len(loc.Seqs)) > p.MaxSharedHets {
			return true, "maxshared"
		}
	}
	return false, ""
}

// CallSNPs scans a locus's aligned columns for variable sites (SNPs)
// and, among those, the subset that are parsimony-informative (PIS):
// at least two distinct alleles each observed in at least two samples.
func CallSNPs(loc Locus) (snps, pis []int) {
	if len(loc.Seqs) == 0 {
		return nil, nil
	}
	width := len(loc.Seqs[0])
	for col := 0; col < width; col++ {
		alleleCount := make(map[byte]int)
		for _, seq := range loc.Seqs {
			if col >= len(seq) {
				continue
			}
			b := seq[col]
			if b == dna.N || b == dna.Gap {
				continue
			}
			if x, y, ok := dna.HetPair(b); ok {
				alleleCount[x]++
				alleleCount[y]++
				continue
			}
			alleleCount[b]++
		}
		if len(alleleCount) < 2 {
			continue
		}
		snps = append(snps, col)
		atLeastTwo := 0
		for _, n := range alleleCount {
			if n >= 2 {
				atLeastTwo++
			}
		}
		if atLeastTwo >= 2 {
			pis = append(pis, col)
		}
	}
	return snps, pis
}
