// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package external builds command lines for the external tools the
// pipeline drives as subprocesses: a dereplicator/clusterer, a
// multiple aligner, a stable external sort, and samtools. Each type
// follows the struct-tag convention of github.com/biogo/external,
// mirroring blast.Nucleic and blast.MakeDB.
package external

import (
	"errors"
	"os/exec"
	"strings"

	"github.com/biogo/external"
)

// Derep builds a dereplication-and-sizing command line.
//
// Usage: vsearch --derep_fulllength <file> --output <file> --sizeout
type Derep struct {
	Cmd string `buildarg:"{{if .}}{{.}}{{else}}vsearch{{end}}"`

	Input   string `buildarg:"--derep_fulllength{{split}}{{.}}"`
	Output  string `buildarg:"--output{{split}}{{.}}"`
	SizeOut bool   `buildarg:"{{if .}}--sizeout{{end}}"`
	Strand  string `buildarg:"{{with .}}--strand{{split}}{{.}}{{end}}"` // "plus" or "both"

	ExtraFlags string
}

func (d Derep) BuildCommand() (*exec.Cmd, error) {
	if d.Input == "" || d.Output == "" {
		return nil, errors.New("derep: missing input or output")
	}
	return build(d, d.ExtraFlags)
}

// Cluster builds a pairwise identity clustering command line.
//
// Usage: vsearch --cluster_smallmem <file> --id <f> --userout <file>
type Cluster struct {
	Cmd string `buildarg:"{{if .}}{{.}}{{else}}vsearch{{end}}"`

	Input        string  `buildarg:"--cluster_smallmem{{split}}{{.}}"`
	Identity     float64 `buildarg:"--id{{split}}{{.}}"`
	Strand       string  `buildarg:"{{with .}}--strand{{split}}{{.}}{{end}}"`
	QueryCov     float64 `buildarg:"{{if .}}--query_cov{{split}}{{.}}{{end}}"`
	UserOut      string  `buildarg:"--userout{{split}}{{.}}"`
	UserFields   string  `buildarg:"{{with .}}--userfields{{split}}{{.}}{{end}}"`
	MatchedOut   string  `buildarg:"{{with .}}--matched{{split}}{{.}}{{end}}"`
	NotMatched   string  `buildarg:"{{with .}}--notmatched{{split}}{{.}}{{end}}"`
	Threads      int     `buildarg:"{{if .}}--threads{{split}}{{.}}{{end}}"`
	UserSort     bool    `buildarg:"{{if .}}--usersort{{end}}"`

	ExtraFlags string
}

func (c Cluster) BuildCommand() (*exec.Cmd, error) {
	if c.Input == "" || c.UserOut == "" {
		return nil, errors.New("cluster: missing input or userout")
	}
	return build(c, c.ExtraFlags)
}

// Align builds a multiple-sequence-alignment command line reading
// FASTA from stdin, matching the shell protocol the aligner helper
// shell drives: "muscle -quiet -in -".
type Align struct {
	Cmd string `buildarg:"{{if .}}{{.}}{{else}}muscle{{end}}"`

	Quiet bool   `buildarg:"{{if .}}-quiet{{end}}"`
	In    string `buildarg:"-in{{split}}{{.}}"` // conventionally "-" for stdin

	ExtraFlags string
}

func (a Align) BuildCommand() (*exec.Cmd, error) {
	return build(a, a.ExtraFlags)
}

// SortByColumn builds an external stable-sort command line used to
// order a userout hit table by its seed column before streaming
// cluster assembly.
type SortByColumn struct {
	Cmd string `buildarg:"{{if .}}{{.}}{{else}}sort{{end}}"`

	Column int  `buildarg:"-k{{split}}{{.}},{{.}}"`
	Stable bool `buildarg:"{{if .}}-s{{end}}"`

	ExtraFlags string
}

func (s SortByColumn) BuildCommand() (*exec.Cmd, error) {
	return build(s, s.ExtraFlags)
}

// FaidxBuild builds a "samtools faidx" invocation for indexing a
// reference FASTA ahead of reference-mode mapping and scaffold
// lookups.
type FaidxBuild struct {
	Cmd string `buildarg:"{{if .}}{{.}}{{else}}samtools{{end}}"`

	Sub   string `buildarg:"{{if .}}{{.}}{{else}}faidx{{end}}"`
	Input string `buildarg:"{{.}}"`
}

func (f FaidxBuild) BuildCommand() (*exec.Cmd, error) {
	if f.Input == "" {
		return nil, errors.New("faidx: missing input")
	}
	return build(f, "")
}

func build(v external.CommandBuilder, extraFlags string) (*exec.Cmd, error) {
	cl := external.Must(external.Build(v))
	var extra []string
	if extraFlags != "" {
		extra = strings.Split(extraFlags, " ")
	}
	return exec.Command(cl[0], append(cl[1:], extra...)...), nil
}
