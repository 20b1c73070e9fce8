// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package output

import (
	"encoding/csv"
	"encoding/gob"
	"fmt"
	"io"
	"strconv"

	"github.com/ngs-tools/radpipe/internal/dna"
	"github.com/ngs-tools/radpipe/internal/locus"
)

// PhyMapRow records where one locus's columns land in the concatenated
// seqs matrix, the stand-in for the original's phymap dataset.
type PhyMapRow struct {
	LocusID   int
	Start     int
	End       int
	Chrom     string
	ChromStart int
}

// SeqsTable is the HDF5-equivalent "seqs" output: one row per sample,
// one column per retained, concatenated locus base.
type SeqsTable struct {
	Samples []string
	Matrix  [][]byte
	PhyMap  []PhyMapRow
}

// BuildSeqsTable concatenates every locus's aligned columns, sample by
// sample, tracking each locus's column span in PhyMap.
func BuildSeqsTable(samples []string, loci []locus.Locus) SeqsTable {
	t := SeqsTable{Samples: samples, Matrix: make([][]byte, len(samples))}
	sampleIdx := make(map[string]int, len(samples))
	for i, s := range samples {
		sampleIdx[s] = i
	}
	col := 0
	for li, loc := range loci {
		width := 0
		if len(loc.Seqs) > 0 {
			width = len(loc.Seqs[0])
		}
		present := make(map[int][]byte, len(loc.Samples))
		for i, s := range loc.Samples {
			present[sampleIdx[s]] = loc.Seqs[i]
		}
		for si := range samples {
			seq, ok := present[si]
			if !ok {
				seq = blank(width)
			}
			t.Matrix[si] = append(t.Matrix[si], seq...)
		}
		t.PhyMap = append(t.PhyMap, PhyMapRow{LocusID: li, Start: col, End: col + width, Chrom: loc.RefChrom, ChromStart: loc.RefStart})
		col += width
	}
	return t
}

func blank(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'N'
	}
	return b
}

// SnpsMapRow locates one retained SNP column within the seqs matrix
// and within its source locus.
type SnpsMapRow struct {
	LocusID   int
	LocusPos  int
	GlobalPos int
	IsPIS     bool
}

// SnpsTable is the HDF5-equivalent "snps" output: a {0,1,2,9}-coded
// genotype matrix (homozygous ref, heterozygous, homozygous alt,
// missing) over the retained SNP columns only.
type SnpsTable struct {
	Samples   []string
	Genotypes [][]uint8
	SnpsMap   []SnpsMapRow
}

// BuildSnpsTable extracts the genotype matrix at each locus's SNP
// columns (as recorded by locus.CallSNPs), coding each sample's call
// at that column as 0 (matches the most common allele), 2 (the other
// allele), 1 (heterozygous), or 9 (missing/N).
func BuildSnpsTable(samples []string, loci []locus.Locus) SnpsTable {
	t := SnpsTable{Samples: samples, Genotypes: make([][]uint8, len(samples))}
	sampleIdx := make(map[string]int, len(samples))
	for i, s := range samples {
		sampleIdx[s] = i
	}
	globalPos := 0
	for li, loc := range loci {
		present := make(map[int][]byte, len(loc.Samples))
		for i, s := range loc.Samples {
			present[sampleIdx[s]] = loc.Seqs[i]
		}
		pisSet := make(map[int]bool, len(loc.PIS))
		for _, p := range loc.PIS {
			pisSet[p] = true
		}
		for _, col := range loc.SNPs {
			ref := majorityAllele(loc, col)
			for si := range samples {
				seq, ok := present[si]
				call := uint8(9)
				if ok && col < len(seq) {
					call = genotypeCode(seq[col], ref)
				}
				t.Genotypes[si] = append(t.Genotypes[si], call)
			}
			t.SnpsMap = append(t.SnpsMap, SnpsMapRow{LocusID: li, LocusPos: col, GlobalPos: globalPos, IsPIS: pisSet[col]})
			globalPos++
		}
	}
	return t
}

func majorityAllele(loc locus.Locus, col int) byte {
	counts := make(map[byte]int)
	for _, seq := range loc.Seqs {
		if col < len(seq) {
			counts[seq[col]]++
		}
	}
	var best byte
	bestN := -1
	for b, n := range counts {
		if n > bestN {
			best, bestN = b, n
		}
	}
	return best
}

func genotypeCode(b, ref byte) uint8 {
	switch {
	case b == 'N' || b == '-':
		return 9
	case b == ref:
		return 0
	case dna.IsHetero(b):
		return 1
	default:
		return 2
	}
}

// WriteGob writes v (a SeqsTable or SnpsTable) to w as gob, the
// typed-binary stand-in for the original HDF5 dataset: no HDF5 binding
// exists among the retrieved Go examples or the wider ecosystem used
// by this pack, so a gob-encoded struct is the idiomatic Go substitute
// for a fixed-shape typed table.
func WriteGob(w io.Writer, v interface{}) error {
	return gob.NewEncoder(w).Encode(v)
}

// WriteSeqsCSV writes the human-readable export of a SeqsTable.
func WriteSeqsCSV(w io.Writer, t SeqsTable) error {
	cw := csv.NewWriter(w)
	for i, s := range t.Samples {
		if err := cw.Write([]string{s, string(t.Matrix[i])}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSnpsCSV writes the human-readable export of a SnpsTable.
func WriteSnpsCSV(w io.Writer, t SnpsTable) error {
	cw := csv.NewWriter(w)
	header := []string{"sample"}
	for _, m := range t.SnpsMap {
		header = append(header, fmt.Sprintf("locus%d:%d", m.LocusID, m.LocusPos))
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for i, s := range t.Samples {
		row := []string{s}
		for _, g := range t.Genotypes[i] {
			row = append(row, strconv.Itoa(int(g)))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
