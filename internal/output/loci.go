// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package output writes the final assembly artifacts: the ".loci"
// text file, and the "seqs"/"snps" tables that stand in for the
// original's HDF5 datasets.
package output

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/ngs-tools/radpipe/internal/locus"
)

// WriteLoci concatenates each chunk's loci in chunk-index order into
// the final ".loci" text file, assigning the contiguous [0,N) global
// locus index and appending the per-locus SNP string and (for
// reference assemblies) the scaffold position tag.
func WriteLoci(w io.Writer, chunks [][]locus.Locus, isRef bool, chromID map[string]int) (nLoci int, err error) {
	bw := bufio.NewWriter(w)
	idx := 0
	for _, chunk := range chunks {
		for _, loc := range chunk {
			for i, s := range loc.Samples {
				fmt.Fprintf(bw, "%s%s\n", padName(s), loc.Seqs[i])
			}
			snpLine := snpString(loc)
			if isRef && loc.RefChrom != "" {
				fmt.Fprintf(bw, "%s|%d|%d:%d-%d|\n", snpLine, idx, chromID[loc.RefChrom], loc.RefStart, loc.RefEnd)
			} else {
				fmt.Fprintf(bw, "%s|%d|\n", snpLine, idx)
			}
			idx++
		}
	}
	if err := bw.Flush(); err != nil {
		return idx, err
	}
	return idx, nil
}

func padName(s string) string {
	return strings.TrimRight(fmt.Sprintf("%-24s", s), " ") + " "
}

func snpString(loc locus.Locus) string {
	if len(loc.Seqs) == 0 {
		return "//"
	}
	width := len(loc.Seqs[0])
	marks := make([]byte, width)
	for i := range marks {
		marks[i] = '-'
	}
	pisSet := make(map[int]bool, len(loc.PIS))
	for _, p := range loc.PIS {
		pisSet[p] = true
	}
	for _, s := range loc.SNPs {
		if pisSet[s] {
			marks[s] = '*'
		} else {
			marks[s] = '+'
		}
	}
	return "//" + string(marks)
}
