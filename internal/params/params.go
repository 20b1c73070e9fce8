// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package params holds the assembly parameter schema read from and
// written to a project's JSON document.
package params

import "github.com/ngs-tools/radpipe/internal/errs"

// Params mirrors the parameter list of the assembly document: one
// field per tunable the pipeline stages consult. Field names follow
// the parameter names used in project files so that JSON round-trips
// without renaming tags.
type Params struct {
	AssemblyName string `json:"assembly_name"`
	ProjectDir   string `json:"project_dir"`

	Datatype string `json:"datatype"` // "rad", "gbs", "pairddrad", ...
	Reference string `json:"reference_sequence,omitempty"`

	ClustThreshold float64 `json:"clust_threshold"`
	MinReadsPerLocus int `json:"mindepth_statistical"`
	MindepthMajrule  int     `json:"mindepth_majrule"`
	MaxClusterDepth  int     `json:"max_depth"`
	MaxLowQualBases  int     `json:"max_low_qual_bases"`

	MaxAllelesConsens int `json:"max_alleles_consens"`
	MaxInternalIndels int `json:"max_internal_indels"`

	MinSamplesLocus int     `json:"min_samples_locus"`
	MaxIndelsLocus  int     `json:"max_indels_locus"`
	MaxSNPsLocus    int     `json:"max_snps_locus"`
	MaxSharedHets   float64 `json:"max_shared_hets_locus"`

	FilterAdapters int `json:"filter_adapters"`
	RestrictionOverhang [2]string `json:"restriction_overhang"`

	NumChunks int `json:"num_chunks"`

	Cores int `json:"cores"`
}

// Hackers mirrors the project's optional hacker-level overrides: rarely
// tuned knobs kept separate from Params so ordinary runs never need to
// see them.
type Hackers struct {
	DeclonePCR         bool    `json:"declone_PCR_duplicates"`
	MaxFragmentLength  int     `json:"max_fragment_length"`
	ExcludeRefMinScore float64 `json:"exclude_reference_minscore,omitempty"`
	RandomSeed         int64   `json:"random_seed"`
}

// Default returns the parameter set with the pipeline's default
// values, matching the defaults described by the parameter list.
func Default() Params {
	return Params{
		ClustThreshold:      0.85,
		MinReadsPerLocus:    6,
		MindepthMajrule:     6,
		MaxClusterDepth:     10000,
		MaxLowQualBases:     5,
		MaxAllelesConsens:   2,
		MaxInternalIndels:   5,
		MinSamplesLocus:     4,
		MaxIndelsLocus:      8,
		MaxSNPsLocus:        20,
		MaxSharedHets:       0.5,
		NumChunks:           10,
		Cores:               0,
	}
}

// Validate checks the numeric ranges the stages depend on, grounded on
// the upfront flag checks a driver performs before launching any
// worker.
func (p Params) Validate() error {
	if p.ClustThreshold <= 0 || p.ClustThreshold > 1 {
		return &errs.ParamError{Field: "clust_threshold", Reason: "must be in (0,1]"}
	}
	if p.MindepthMajrule < 1 {
		return &errs.ParamError{Field: "mindepth_majrule", Reason: "must be >= 1"}
	}
	if p.MinReadsPerLocus < p.MindepthMajrule {
		return &errs.ParamError{Field: "mindepth_statistical", Reason: "must be >= mindepth_majrule"}
	}
	if p.MaxAllelesConsens < 1 {
		return &errs.ParamError{Field: "max_alleles_consens", Reason: "must be >= 1"}
	}
	if p.MinSamplesLocus < 1 {
		return &errs.ParamError{Field: "min_samples_locus", Reason: "must be >= 1"}
	}
	if p.MaxSharedHets < 0 {
		return &errs.ParamError{Field: "max_shared_hets_locus", Reason: "must be >= 0"}
	}
	if p.NumChunks < 1 {
		return &errs.ParamError{Field: "num_chunks", Reason: "must be >= 1"}
	}
	return nil
}

// IsReference reports whether assembly is reference-mapped rather than
// denovo.
func (p Params) IsReference() bool {
	return p.Reference != ""
}

// IsPaired reports whether the datatype denotes paired reads.
func (p Params) IsPaired() bool {
	switch p.Datatype {
	case "pairddrad", "pairgbs", "pairgbs_pst":
		return true
	}
	return false
}
