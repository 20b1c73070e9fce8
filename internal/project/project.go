// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package project persists the canonical assembly document: one JSON
// file per project, written after every stage and read back on
// resume, owned exclusively by the driver and never by a worker.
package project

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ngs-tools/radpipe/internal/params"
)

// Sample tracks one sample's progress through the pipeline's seven
// stages and the statistics accumulated along the way.
type Sample struct {
	Name  string `json:"name"`
	State int    `json:"state"` // 0 (new) .. 7 (filtered)
	Files map[string]string `json:"files,omitempty"`

	StatsRawReads       int     `json:"stats_reads_raw,omitempty"`
	StatsPassedFilter   int     `json:"stats_reads_passed_filter,omitempty"`
	StatsClustersTotal  int     `json:"stats_clusters_total,omitempty"`
	StatsClustersHiDepth int    `json:"stats_clusters_hidepth,omitempty"`
	StatsMeanDepthTotal float64 `json:"stats_mean_depth_total,omitempty"`
	StatsMaxFrag        int     `json:"stats_max_frag,omitempty"`
	StatsHeterozygosity float64 `json:"stats_heterozygosity,omitempty"`
	StatsErrorRate      float64 `json:"stats_error_rate,omitempty"`
	StatsConsensusTotal int     `json:"stats_consensus_total,omitempty"`
}

// Advance moves the sample to stage, enforcing the one-way transition
// invariant: a sample's state only ever increases, and never skips a
// stage it has not yet reached.
func (s *Sample) Advance(stage int) error {
	if stage <= s.State {
		return fmt.Errorf("sample %s: stage %d does not advance past current state %d", s.Name, stage, s.State)
	}
	if stage > s.State+1 {
		return fmt.Errorf("sample %s: cannot skip from state %d to stage %d", s.Name, s.State, stage)
	}
	s.State = stage
	return nil
}

// Population groups samples for per-population minimum-coverage
// filtering at the across-sample assembly stage.
type Population struct {
	Samples  []string `json:"samples"`
	MinCov   int      `json:"min_cov"`
}

// Project is the canonical, self-describing assembly document.
type Project struct {
	Params      params.Params           `json:"params"`
	Hackers     params.Hackers          `json:"hackers"`
	Samples     map[string]*Sample      `json:"samples"`
	Populations map[string]Population   `json:"populations,omitempty"`
	OutFiles    map[string]string       `json:"outfiles,omitempty"`
}

// New returns an empty project for the given parameter set.
func New(p params.Params) *Project {
	return &Project{
		Params:  p,
		Samples: make(map[string]*Sample),
	}
}

// Sample returns the named sample, creating it at state 0 if absent.
func (pr *Project) Sample(name string) *Sample {
	s, ok := pr.Samples[name]
	if !ok {
		s = &Sample{Name: name}
		pr.Samples[name] = s
	}
	return s
}

// Save writes the project as indented, self-describing JSON, matching
// the project document's role as the thing a user can open and read.
func (pr *Project) Save(path string) error {
	b, err := json.MarshalIndent(pr, "", "\t")
	if err != nil {
		return fmt.Errorf("marshal project: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write project: %w", err)
	}
	return os.Rename(tmp, path)
}

// Load reads a project document previously written by Save.
func Load(path string) (*Project, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read project: %w", err)
	}
	var pr Project
	if err := json.Unmarshal(b, &pr); err != nil {
		return nil, fmt.Errorf("unmarshal project: %w", err)
	}
	if pr.Samples == nil {
		pr.Samples = make(map[string]*Sample)
	}
	return &pr, nil
}
