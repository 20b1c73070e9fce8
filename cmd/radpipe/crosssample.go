// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/ngs-tools/radpipe/internal/align"
	"github.com/ngs-tools/radpipe/internal/consensus"
	"github.com/ngs-tools/radpipe/internal/errs"
	"github.com/ngs-tools/radpipe/internal/external"
	"github.com/ngs-tools/radpipe/internal/locus"
	"github.com/ngs-tools/radpipe/internal/output"
	"github.com/ngs-tools/radpipe/internal/project"
)

// runAcrossSamples implements stage 7, driven once across every sample
// that has reached stage 6: it clusters consensus sequences across
// samples the same way within-sample clustering groups reads into a
// consensus, aligns and filters the resulting cross-sample loci, and
// writes the final ".loci" file and seqs/snps tables.
func runAcrossSamples(ctx context.Context, pr *project.Project) error {
	samples := consensusSamples(pr)
	if len(samples) == 0 {
		return &errs.InsufficientData{Reason: "no samples have reached consensus calling"}
	}

	workDir := pr.Params.ProjectDir + "/crosssample_tmp"
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return err
	}
	defer os.RemoveAll(workDir)

	catPath := workDir + "/catconsens.fasta"
	tagged, err := concatConsensus(samples, pr, catPath)
	if err != nil {
		return err
	}

	userout := workDir + "/catclust.tsv"
	c := external.Cluster{
		Input:      catPath,
		Identity:   pr.Params.ClustThreshold,
		Strand:     "both",
		QueryCov:   0.5,
		UserOut:    userout,
		UserFields: "query+target+qstrand+ids",
	}
	if err := runExternal(ctx, "vsearch-cluster-acrosssample", c); err != nil {
		return err
	}

	groups, err := groupBySeed(userout)
	if err != nil {
		return err
	}

	shell, err := align.Start()
	if err != nil {
		return err
	}
	defer shell.Close()

	params := locus.Params{
		MinSamplesLocus: pr.Params.MinSamplesLocus,
		MaxIndelsLocus:  pr.Params.MaxIndelsLocus,
		MaxSNPsLocus:    pr.Params.MaxSNPsLocus,
		MaxSharedHets:   pr.Params.MaxSharedHets,
		PopMinCov:       make(map[string]int),
		PopMembers:      make(map[string][]string),
	}
	for name, pop := range pr.Populations {
		params.PopMinCov[name] = pop.MinCov
		params.PopMembers[name] = pop.Samples
	}

	var loci []locus.Locus
	for _, members := range groups {
		loc, err := buildLocus(shell, members, tagged)
		if err != nil {
			return err
		}
		if reject, _ := locus.Apply(loc, params); reject {
			continue
		}
		snps, pis := locus.CallSNPs(loc)
		loc.SNPs, loc.PIS = snps, pis
		loci = append(loci, loc)
	}

	loci = locus.CullOverlapping(loci)
	sort.Slice(loci, func(i, j int) bool { return loci[i].Samples[0] < loci[j].Samples[0] })

	var chromID map[string]int
	if pr.Params.IsReference() {
		idx, err := consensus.LoadReferenceIndex(pr.Params.Reference)
		if err != nil {
			return err
		}
		chromID = consensus.ChromIDs(idx)
	}

	lociPath := pr.Params.ProjectDir + "/" + pr.Params.AssemblyName + ".loci"
	lf, err := os.Create(lociPath)
	if err != nil {
		return err
	}
	defer lf.Close()
	nLoci, err := output.WriteLoci(lf, [][]locus.Locus{loci}, pr.Params.IsReference(), chromID)
	if err != nil {
		return err
	}

	seqsTable := output.BuildSeqsTable(samples, loci)
	snpsTable := output.BuildSnpsTable(samples, loci)
	if err := output.Reconcile(nLoci, seqsTable, snpsTable); err != nil {
		return err
	}

	if err := writeTable(pr.Params.ProjectDir+"/"+pr.Params.AssemblyName+".seqs.gob", func(f *os.File) error {
		return output.WriteGob(f, seqsTable)
	}); err != nil {
		return err
	}
	if err := writeTable(pr.Params.ProjectDir+"/"+pr.Params.AssemblyName+".snps.gob", func(f *os.File) error {
		return output.WriteGob(f, snpsTable)
	}); err != nil {
		return err
	}
	if err := writeTable(pr.Params.ProjectDir+"/"+pr.Params.AssemblyName+".seqs.csv", func(f *os.File) error {
		return output.WriteSeqsCSV(f, seqsTable)
	}); err != nil {
		return err
	}
	if err := writeTable(pr.Params.ProjectDir+"/"+pr.Params.AssemblyName+".snps.csv", func(f *os.File) error {
		return output.WriteSnpsCSV(f, snpsTable)
	}); err != nil {
		return err
	}

	if pr.OutFiles == nil {
		pr.OutFiles = make(map[string]string)
	}
	pr.OutFiles["loci"] = lociPath
	for name, s := range pr.Samples {
		if contains(samples, name) {
			s.State = 7
		}
	}
	return nil
}

func consensusSamples(pr *project.Project) []string {
	var names []string
	for name, s := range pr.Samples {
		if s.State >= 6 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

// concatConsensus writes every sample's consensus sequences into a
// single FASTA tagged "sample_readname" so the across-sample cluster
// step can recover a read's source sample from its name, and returns
// the per-tag (sample, sequence) lookup used later to assemble loci.
func concatConsensus(samples []string, pr *project.Project, outPath string) (map[string]taggedSeq, error) {
	tagged := make(map[string]taggedSeq)
	out, err := os.Create(outPath)
	if err != nil {
		return nil, err
	}
	defer out.Close()

	for _, name := range samples {
		sample := pr.Sample(name)
		path := sample.Files["consens"]
		if path == "" {
			continue
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		sc := bufio.NewScanner(f)
		var tag, seq, header string
		flush := func() {
			if tag != "" {
				ts := taggedSeq{sample: name, seq: seq}
				if _, chrom, start, end, ok := consensus.ParseConsensRefTag(header); ok {
					ts.refChrom, ts.refStart, ts.refEnd = chrom, start, end
				}
				tagged[tag] = ts
				fmt.Fprintf(out, ">%s\n%s\n", tag, seq)
			}
		}
		for sc.Scan() {
			line := sc.Text()
			if strings.HasPrefix(line, ">") {
				flush()
				header = line
				tag = name + "_" + strings.TrimPrefix(strings.SplitN(line, ";", 2)[0], ">")
				seq = ""
				continue
			}
			seq += line
		}
		flush()
		f.Close()
		if err := sc.Err(); err != nil {
			return nil, err
		}
	}
	return tagged, nil
}

type taggedSeq struct {
	sample   string
	seq      string
	refChrom string
	refStart int64
	refEnd   int64
}

// runExternal runs an external builder command, classifying failure as
// an errs.ExternalToolError, matching derep's own runBuilder helper.
func runExternal(ctx context.Context, name string, b interface{ BuildCommand() (*exec.Cmd, error) }) error {
	cmd, err := b.BuildCommand()
	if err != nil {
		return &errs.ExternalToolError{Tool: name, Err: err}
	}
	if out, err := cmd.CombinedOutput(); err != nil {
		return &errs.ExternalToolError{Tool: name, Err: fmt.Errorf("%w: %s", err, out)}
	}
	return nil
}

// groupBySeed reads a userout hit table and groups query tags by seed
// tag, adding the seed itself to its own group.
func groupBySeed(path string) (map[string][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	groups := make(map[string][]string)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Split(sc.Text(), "\t")
		if len(fields) < 2 {
			continue
		}
		query, seed := fields[0], fields[1]
		if _, ok := groups[seed]; !ok {
			groups[seed] = []string{seed}
		}
		groups[seed] = append(groups[seed], query)
	}
	return groups, sc.Err()
}

// buildLocus aligns the member sequences of one across-sample cluster
// and assembles a locus.Locus from the result, one row per member tag.
func buildLocus(shell *align.Shell, members []string, tagged map[string]taggedSeq) (locus.Locus, error) {
	var fasta strings.Builder
	seen := make(map[string]bool)
	for _, m := range members {
		if seen[m] {
			continue
		}
		seen[m] = true
		ts, ok := tagged[m]
		if !ok {
			continue
		}
		fasta.WriteString(">" + m + "\\n" + ts.seq + "\\n")
	}
	out, err := shell.Align(fasta.String())
	if err != nil {
		return locus.Locus{}, err
	}
	aligned := parseAlignedFasta(out)

	loc := locus.Locus{}
	bySample := make(map[string][]byte)
	for i, h := range aligned.Headers {
		tag := strings.TrimPrefix(h, ">")
		ts, ok := tagged[tag]
		if !ok {
			continue
		}
		bySample[ts.sample] = []byte(aligned.Sequences[i])
		if ts.refChrom != "" && loc.RefChrom == "" {
			loc.RefChrom, loc.RefStart, loc.RefEnd = ts.refChrom, int(ts.refStart), int(ts.refEnd)
		}
	}
	var names []string
	for s := range bySample {
		names = append(names, s)
	}
	sort.Strings(names)
	for _, s := range names {
		loc.Samples = append(loc.Samples, s)
		loc.Seqs = append(loc.Seqs, bySample[s])
	}
	return loc, nil
}

func writeTable(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return write(f)
}
