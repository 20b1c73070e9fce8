// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package derep drives dereplication and within-sample clustering:
// running the external derep/cluster tools, parsing their hit table,
// and assembling the sorted hit stream into cluster records.
package derep

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"

	"github.com/ngs-tools/radpipe/internal/cluster"
	"github.com/ngs-tools/radpipe/internal/dna"
	"github.com/ngs-tools/radpipe/internal/errs"
	"github.com/ngs-tools/radpipe/internal/external"
)

// Hit is one row of the clusterer's userout hit table: a query read
// matched to a seed.
type Hit struct {
	Query  string
	Seed   string
	Strand byte // '+' or '-'
	Indels int
}

// ParseUserout reads a 4-column TSV of (query, seed, strand, indels),
// the shape produced by requesting userfields
// "query+target+qstrand+gaps": the fourth column is the alignment's
// gap-column count.
func ParseUserout(r io.Reader) ([]Hit, error) {
	var hits []Hit
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		f := bytes.Split(line, []byte("\t"))
		if len(f) < 4 {
			return hits, &errs.FormatError{Source: "userout", Reason: fmt.Sprintf("expected >=4 fields, got %d: %q", len(f), line)}
		}
		strand := byte('+')
		if len(f[2]) > 0 && (f[2][0] == '-' || f[2][0] == 'r') {
			strand = '-'
		}
		indels, err := strconv.Atoi(strings.TrimSpace(string(f[3])))
		if err != nil {
			indels = 0
		}
		hits = append(hits, Hit{
			Query:  string(f[0]),
			Seed:   string(f[1]),
			Strand: strand,
			Indels: indels,
		})
	}
	return hits, sc.Err()
}

// StrandAndCoverage returns the strand search mode and minimum query
// coverage the clusterer should use for a given datatype, following
// the fixed table: GBS-family data searches both strands with relaxed
// coverage since restriction overhangs can appear on either end,
// everything else searches the plus strand only with strict coverage.
func StrandAndCoverage(datatype string, overrideCov float64) (strand string, cov float64) {
	switch datatype {
	case "gbs", "pairgbs", "2brad":
		strand, cov = "both", 0.5
	default:
		strand, cov = "plus", 0.9
	}
	if overrideCov > 0 {
		cov = overrideCov
	}
	return strand, cov
}

// Options configures a derep-and-cluster run.
type Options struct {
	Identity   float64
	Datatype   string
	MaxIndels  int
	CovOverride float64
	WorkDir    string
}

// Stats summarizes a sample's dereplication and clustering pass.
type Stats struct {
	ReadsIn       int
	UniqueSeqs    int
	ClustersTotal int
}

// Run dereplicates sampleReads and clusters the unique sequences,
// writing the resulting cluster file to outPath and returning summary
// statistics. ctx governs the lifetimes of its external subprocesses
// (dereplication, clustering and sort).
func Run(ctx context.Context, sampleReads, outPath string, opts Options) (Stats, error) {
	var stats Stats

	derepOut := opts.WorkDir + "/derep.fasta"
	d := external.Derep{Input: sampleReads, Output: derepOut, SizeOut: true, Strand: "plus"}
	if err := runBuilder(ctx, "vsearch-derep", d); err != nil {
		return stats, err
	}

	strand, cov := StrandAndCoverage(opts.Datatype, opts.CovOverride)
	userout := opts.WorkDir + "/userout.tsv"
	c := external.Cluster{
		Input:      derepOut,
		Identity:   opts.Identity,
		Strand:     strand,
		QueryCov:   cov,
		UserOut:    userout,
		UserFields: "query+target+qstrand+gaps",
		NotMatched: opts.WorkDir + "/unmatched.fasta",
	}
	if err := runBuilder(ctx, "vsearch-cluster", c); err != nil {
		return stats, err
	}

	sortedPath := opts.WorkDir + "/userout.sorted.tsv"
	if err := externalSort(ctx, userout, sortedPath, 2); err != nil {
		return stats, err
	}

	dereps, sizes, err := loadDereps(derepOut)
	if err != nil {
		return stats, err
	}
	stats.UniqueSeqs = len(dereps)

	sf, err := os.Open(sortedPath)
	if err != nil {
		return stats, err
	}
	defer sf.Close()
	hits, err := ParseUserout(sf)
	if err != nil {
		return stats, err
	}

	out, err := os.Create(outPath)
	if err != nil {
		return stats, err
	}
	defer out.Close()

	n, err := BuildClusters(out, hits, dereps, sizes, opts.MaxIndels)
	if err != nil {
		return stats, err
	}
	stats.ClustersTotal = n

	unmatched, unmatchedSizes, err := loadDereps(opts.WorkDir + "/unmatched.fasta")
	if err == nil {
		for name, seq := range unmatched {
			c := cluster.Cluster{Headers: []string{headerFor(name, unmatchedSizes[name], '+')}, Sequences: []string{seq}}
			if werr := cluster.Write(out, c); werr != nil {
				return stats, werr
			}
			stats.ClustersTotal++
		}
	}
	return stats, nil
}

// builder is satisfied by every command type in the external package.
type builder interface {
	BuildCommand() (*exec.Cmd, error)
}

// runBuilder builds and runs an external command, classifying any
// launch or non-zero exit as an errs.ExternalToolError.
func runBuilder(ctx context.Context, name string, b builder) error {
	cmd, err := b.BuildCommand()
	if err != nil {
		return &errs.ExternalToolError{Tool: name, Err: err}
	}
	cmd = exec.CommandContext(ctx, cmd.Path, cmd.Args[1:]...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return &errs.ExternalToolError{Tool: name, Err: fmt.Errorf("%w: %s", err, out)}
	}
	return nil
}

// BuildClusters walks the seed-sorted hit table, grouping hits by seed
// into cluster records. Hits are sorted within a seed group by
// descending implied size, and the seed-group rows are written to w
// in cluster file format as soon as the seed changes. The whole hit
// table is held in memory as hits; only the output is written one
// seed group at a time.
func BuildClusters(w io.Writer, hits []Hit, dereps map[string]string, sizes map[string]int, maxIndels int) (int, error) {
	n := 0
	i := 0
	for i < len(hits) {
		seed := hits[i].Seed
		j := i
		var group []Hit
		for j < len(hits) && hits[j].Seed == seed {
			if hits[j].Indels <= maxIndels {
				group = append(group, hits[j])
			}
			j++
		}
		i = j

		seedSeq, ok := dereps[seed]
		if !ok {
			continue
		}
		c := cluster.Cluster{
			Headers:   []string{headerFor(seed, sizes[seed], '+')},
			Sequences: []string{seedSeq},
		}
		sort.SliceStable(group, func(a, b int) bool {
			return sizes[group[a].Query] > sizes[group[b].Query]
		})
		for _, h := range group {
			seq, ok := dereps[h.Query]
			if !ok {
				continue
			}
			orient := byte('+')
			if h.Strand == '-' {
				seq = string(dna.RevComp([]byte(seq)))
				orient = '-'
			}
			c.Headers = append(c.Headers, headerFor(h.Query, sizes[h.Query], orient))
			c.Sequences = append(c.Sequences, seq)
		}
		if err := cluster.Write(w, c); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func headerFor(name string, size int, orient byte) string {
	if size <= 0 {
		size = 1
	}
	return fmt.Sprintf(">%s;size=%d;%c", name, size, orient)
}

// externalSort drives the external stable sort over column col of the
// userout hit table, so the seed-grouped streaming pass in
// BuildClusters can assume hits for one seed are contiguous.
func externalSort(ctx context.Context, in, out string, col int) error {
	s := external.SortByColumn{Column: col, Stable: true}
	cmd, err := s.BuildCommand()
	if err != nil {
		return &errs.ExternalToolError{Tool: "sort", Err: err}
	}
	inFile, err := os.Open(in)
	if err != nil {
		return err
	}
	defer inFile.Close()
	outFile, err := os.Create(out)
	if err != nil {
		return err
	}
	defer outFile.Close()

	cmd = exec.CommandContext(ctx, cmd.Path, cmd.Args[1:]...)
	cmd.Stdin = inFile
	cmd.Stdout = outFile
	if cerr := cmd.Run(); cerr != nil {
		return &errs.ExternalToolError{Tool: "sort", Err: cerr}
	}
	return nil
}

// loadDereps reads a dereplicated FASTA file produced with --sizeout,
// returning sequences keyed by read name along with their size=N
// counts (the number of raw reads the unique sequence represents).
// Reading goes through biogo's FASTA scanner
// (seqio.NewScanner(fasta.NewReader(...))) rather than a hand-rolled
// line splitter.
func loadDereps(path string) (seqs map[string]string, sizes map[string]int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	seqs = make(map[string]string)
	sizes = make(map[string]int)

	sc := seqio.NewScanner(fasta.NewReader(f, linear.NewSeq("", nil, alphabet.DNAredundant)))
	for sc.Next() {
		s := sc.Seq().(*linear.Seq)
		h := s.ID
		name := h
		if i := strings.IndexByte(h, ';'); i >= 0 {
			name = h[:i]
		}
		sizes[name] = 1
		if i := strings.Index(h, "size="); i >= 0 {
			rest := h[i+len("size="):]
			if j := strings.IndexByte(rest, ';'); j >= 0 {
				rest = rest[:j]
			}
			if n, perr := strconv.Atoi(rest); perr == nil {
				sizes[name] = n
			}
		}
		buf := make([]byte, len(s.Seq))
		for i, l := range s.Seq {
			buf[i] = byte(l)
		}
		seqs[name] = string(buf)
	}
	if err := sc.Error(); err != nil {
		return nil, nil, err
	}
	return seqs, sizes, nil
}
