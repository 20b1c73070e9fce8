// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ngs-tools/radpipe/internal/align"
	"github.com/ngs-tools/radpipe/internal/cluster"
	"github.com/ngs-tools/radpipe/internal/consensus"
	"github.com/ngs-tools/radpipe/internal/depth"
	"github.com/ngs-tools/radpipe/internal/derep"
	"github.com/ngs-tools/radpipe/internal/estimate"
	"github.com/ngs-tools/radpipe/internal/project"
	"github.com/ngs-tools/radpipe/internal/work"
)

// chunkStats is the per-chunk alignment tally persisted to the chunk
// store for later inspection by radpipe-audit.
type chunkStats struct {
	Index     int
	NAligned  int
	NFiltered int
}

// runDerepClusterAlign implements stage 3: dereplicate and cluster a
// sample's reads, then align and filter each resulting cluster chunk.
func runDerepClusterAlign(ctx context.Context, pr *project.Project, sample *project.Sample) error {
	readsPath, ok := sample.Files["edits"]
	if !ok {
		return fmt.Errorf("sample %s: missing edits file path", sample.Name)
	}
	workDir := pr.Params.ProjectDir + "/" + sample.Name + "_tmp"
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return err
	}
	defer os.RemoveAll(workDir)

	clustersPath := pr.Params.ProjectDir + "/" + sample.Name + ".clusters"
	stats, err := derep.Run(ctx, readsPath, clustersPath, derep.Options{
		Identity:  pr.Params.ClustThreshold,
		Datatype:  pr.Params.Datatype,
		MaxIndels: pr.Params.MaxInternalIndels,
		WorkDir:   workDir,
	})
	if err != nil {
		return err
	}
	sample.StatsClustersTotal = stats.ClustersTotal

	chunks, err := align.Split(clustersPath, pr.Params.NumChunks, workDir)
	if err != nil {
		return err
	}

	// Each chunk owns its own aligner shell and output file so chunks
	// align concurrently; chunk files are concatenated in index order
	// afterward, and per-chunk tallies are kept in a chunk store for
	// later inspection rather than discarded.
	pool := work.New(ctx, pr.Params.Cores)
	for i, chunk := range chunks {
		chunk := chunk
		pool.Submit(i, func(ctx context.Context) (interface{}, error) {
			return alignChunk(chunk, pr)
		})
	}
	results := pool.Drain()

	store, err := work.CreateChunkStore(workDir + "/chunkstats.db")
	if err != nil {
		return err
	}

	alignedPath := pr.Params.ProjectDir + "/" + sample.Name + ".clusters.aligned"
	out, err := os.Create(alignedPath)
	if err != nil {
		store.Close()
		return err
	}
	defer out.Close()

	for _, res := range results {
		if res.Err != nil {
			store.Close()
			return res.Err
		}
		cs := res.Value.(chunkStats)
		if err := store.Put(cs.Index, cs); err != nil {
			store.Close()
			return err
		}
		chunkFile, err := os.Open(chunks[cs.Index].Path + ".aligned")
		if err != nil {
			store.Close()
			return err
		}
		if _, err := io.Copy(out, chunkFile); err != nil {
			chunkFile.Close()
			store.Close()
			return err
		}
		chunkFile.Close()
	}
	if err := store.Close(); err != nil {
		return err
	}

	statsPath := pr.Params.ProjectDir + "/" + sample.Name + ".chunkstats.db"
	if err := os.Rename(workDir+"/chunkstats.db", statsPath); err != nil {
		return err
	}
	sample.Files["chunkstats"] = statsPath
	sample.Files["clusters"] = alignedPath
	return nil
}

// alignChunk aligns and filters every cluster of one chunk, writing
// the accepted clusters to a sibling "<chunk>.aligned" file, and
// returns the chunk's tally for the caller's chunk store.
func alignChunk(chunk align.ChunkDescriptor, pr *project.Project) (chunkStats, error) {
	cs := chunkStats{Index: chunk.Index}

	shell, err := align.Start()
	if err != nil {
		return cs, err
	}
	defer shell.Close()

	r, err := cluster.Open(chunk.Path)
	if err != nil {
		return cs, err
	}
	defer r.Close()

	out, err := os.Create(chunk.Path + ".aligned")
	if err != nil {
		return cs, err
	}
	defer out.Close()

	it := cluster.Iter(r)
	for it.Next() {
		c := it.Cluster()
		var aligned cluster.Cluster
		if pr.Params.IsPaired() {
			aligned, err = align.AlignPaired(shell, c)
		} else {
			aligned, err = alignUnpaired(shell, c)
		}
		if err != nil {
			return cs, err
		}
		if align.InternalIndelFilter(aligned, pr.Params.MaxInternalIndels, pr.Params.IsPaired()) {
			cs.NFiltered++
			continue
		}
		if pr.Params.Datatype == "gbs" || pr.Params.Datatype == "pairgbs" {
			aligned = align.GBSEdgeTrim(aligned)
		}
		if err := cluster.Write(out, aligned); err != nil {
			return cs, err
		}
		cs.NAligned++
	}
	if err := it.Err(); err != nil {
		return cs, err
	}
	return cs, nil
}

func alignUnpaired(shell *align.Shell, c cluster.Cluster) (cluster.Cluster, error) {
	var fasta string
	for i, seq := range c.Sequences {
		fasta += c.Headers[i] + "\\n" + seq + "\\n"
	}
	out, err := shell.Align(fasta)
	if err != nil {
		return cluster.Cluster{}, err
	}
	return parseAlignedFasta(out), nil
}

func parseAlignedFasta(s string) cluster.Cluster {
	var c cluster.Cluster
	var name string
	var seq []byte
	flush := func() {
		if name != "" {
			c.Headers = append(c.Headers, name)
			c.Sequences = append(c.Sequences, string(seq))
			seq = nil
		}
	}
	line := []byte(s)
	start := 0
	for i := 0; i <= len(line); i++ {
		if i == len(line) || line[i] == '\n' {
			l := string(line[start:i])
			start = i + 1
			if len(l) > 0 && l[0] == '>' {
				flush()
				name = l
			} else {
				seq = append(seq, l...)
			}
		}
	}
	flush()
	return c
}

// runDepthStats implements stage 4's per-sample statistics pass.
func runDepthStats(pr *project.Project, sample *project.Sample) error {
	path := sample.Files["clusters"]
	r, err := cluster.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()
	s, err := depth.Summarize(r, pr.Params.MindepthMajrule, pr.Params.MinReadsPerLocus)
	if err != nil {
		return err
	}
	sample.StatsClustersHiDepth = s.NHiDepth
	sample.StatsMeanDepthTotal = s.MeanLen
	sample.StatsMaxFrag = s.MaxFrag
	return nil
}

// runEstimate implements stage 5's joint heterozygosity/error-rate fit.
func runEstimate(pr *project.Project, sample *project.Sample) error {
	path := sample.Files["clusters"]
	r, err := cluster.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()
	patterns, bfreqs, err := estimate.Stack(r, estimate.StackParams{
		MaxFrag:                sample.StatsMaxFrag,
		RestrictionOverhangLen: len(pr.Params.RestrictionOverhang[0]),
		MinDepth:               pr.Params.MinReadsPerLocus,
	})
	if err != nil {
		return err
	}
	h, e, err := estimate.Fit(patterns, bfreqs, pr.Params.MaxAllelesConsens == 1)
	if err != nil {
		return err
	}
	sample.StatsHeterozygosity = h
	sample.StatsErrorRate = e
	return nil
}

// runConsensus implements stage 6's per-cluster consensus calling.
func runConsensus(pr *project.Project, sample *project.Sample) error {
	path := sample.Files["clusters"]
	r, err := cluster.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	var all []cluster.Cluster
	it := cluster.Iter(r)
	for it.Next() {
		all = append(all, it.Cluster())
	}
	if err := it.Err(); err != nil {
		return err
	}

	var chromID map[string]int
	var chromName map[int]string
	if pr.Params.IsReference() {
		idx, err := consensus.LoadReferenceIndex(pr.Params.Reference)
		if err != nil {
			return err
		}
		chromID = consensus.ChromIDs(idx)
		chromName = make(map[int]string, len(chromID))
		for name, id := range chromID {
			chromName[id] = name
		}
	}

	res := consensus.Process(all, consensus.Params{
		MinDepthMajrule:   pr.Params.MindepthMajrule,
		MaxDepth:          pr.Params.MaxClusterDepth,
		MinDepthStat:      pr.Params.MinReadsPerLocus,
		MaxLowQualBases:   pr.Params.MaxLowQualBases,
		MaxAllelesConsens: pr.Params.MaxAllelesConsens,
		EstHet:            sample.StatsHeterozygosity,
		EstErr:            sample.StatsErrorRate,
		Paired:            pr.Params.IsPaired(),
		Reference:         pr.Params.IsReference(),
		ChromID:           chromID,
	})
	sample.StatsConsensusTotal = len(res.Loci)

	consensusPath := pr.Params.ProjectDir + "/" + sample.Name + ".consens"
	f, err := os.Create(consensusPath)
	if err != nil {
		return err
	}
	defer f.Close()
	for _, loc := range res.Loci {
		if loc.RefPos[0] != 0 {
			if _, err := fmt.Fprintf(f, ">%s;ref=%s:%d-%d\n%s\n", loc.Name, chromName[int(loc.RefPos[0])], loc.RefPos[1], loc.RefPos[2], loc.Consensus); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(f, ">%s\n%s\n", loc.Name, loc.Consensus); err != nil {
			return err
		}
	}
	sample.Files["consens"] = consensusPath
	return nil
}
