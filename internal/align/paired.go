// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package align

import (
	"strings"

	"github.com/ngs-tools/radpipe/internal/cluster"
	"github.com/ngs-tools/radpipe/internal/dna"
)

// AlignPaired aligns a paired-end cluster by splitting each read on
// the pair separator, aligning the two halves independently through
// shell, and rejoining the results by matching each read's name
// across the two alignments, seed first and remaining reads ordered
// by descending size as in the unpaired case.
func AlignPaired(shell *Shell, c cluster.Cluster) (cluster.Cluster, error) {
	fasta1, fasta2 := splitPairs(c)

	aligned1, err := shell.Align(fasta1)
	if err != nil {
		return cluster.Cluster{}, err
	}
	aligned2, err := shell.Align(fasta2)
	if err != nil {
		return cluster.Cluster{}, err
	}

	half1 := parseFasta(aligned1)
	half2 := parseFasta(aligned2)

	out := cluster.Cluster{}
	for _, h := range c.Headers {
		name, _, _, _, _ := cluster.ParseHeader(h)
		s1, ok1 := half1[name]
		s2, ok2 := half2[name]
		if !ok1 {
			s1 = ""
		}
		if !ok2 {
			s2 = ""
		}
		out.Headers = append(out.Headers, h)
		out.Sequences = append(out.Sequences, s1+string(dna.PairSep)+s2)
	}
	return out, nil
}

// splitPairs returns two FASTA blocks, one per read half, built from
// the text before and after the pair separator in each sequence.
func splitPairs(c cluster.Cluster) (fasta1, fasta2 string) {
	var b1, b2 strings.Builder
	for i, seq := range c.Sequences {
		name, _, _, _, _ := cluster.ParseHeader(c.Headers[i])
		parts := strings.SplitN(seq, string(dna.PairSep), 2)
		r1, r2 := parts[0], ""
		if len(parts) == 2 {
			r2 = parts[1]
		}
		b1.WriteString(">" + name + "\n" + r1 + "\n")
		b2.WriteString(">" + name + "\n" + r2 + "\n")
	}
	return b1.String(), b2.String()
}

func parseFasta(s string) map[string]string {
	out := make(map[string]string)
	var name string
	var seq strings.Builder
	flush := func() {
		if name != "" {
			out[name] = seq.String()
			seq.Reset()
		}
	}
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(line, ">") {
			flush()
			name = strings.TrimPrefix(line, ">")
			continue
		}
		seq.WriteString(line)
	}
	flush()
	return out
}
