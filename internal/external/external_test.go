// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package external

import (
	"strings"
	"testing"
)

func TestDerepBuildCommand(t *testing.T) {
	d := Derep{Input: "in.fa", Output: "out.fa", SizeOut: true, Strand: "plus"}
	cmd, err := d.BuildCommand()
	if err != nil {
		t.Fatalf("BuildCommand: %v", err)
	}
	if cmd.Path != "vsearch" && !strings.HasSuffix(cmd.Path, "/vsearch") {
		t.Errorf("cmd.Path = %q, want vsearch", cmd.Path)
	}
	joined := strings.Join(cmd.Args, " ")
	for _, want := range []string{"--derep_fulllength", "in.fa", "--output", "out.fa", "--sizeout", "--strand", "plus"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args %q missing %q", joined, want)
		}
	}
}

func TestDerepBuildCommandMissingFields(t *testing.T) {
	if _, err := (Derep{}).BuildCommand(); err == nil {
		t.Errorf("BuildCommand(): want error for missing input/output")
	}
}

func TestClusterBuildCommand(t *testing.T) {
	c := Cluster{Input: "in.fa", Identity: 0.85, UserOut: "hits.tsv", Threads: 4}
	cmd, err := c.BuildCommand()
	if err != nil {
		t.Fatalf("BuildCommand: %v", err)
	}
	joined := strings.Join(cmd.Args, " ")
	for _, want := range []string{"--cluster_smallmem", "in.fa", "--id", "0.85", "--userout", "hits.tsv", "--threads", "4"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args %q missing %q", joined, want)
		}
	}
}

func TestAlignBuildCommand(t *testing.T) {
	a := Align{Quiet: true, In: "-"}
	cmd, err := a.BuildCommand()
	if err != nil {
		t.Fatalf("BuildCommand: %v", err)
	}
	joined := strings.Join(cmd.Args, " ")
	for _, want := range []string{"-quiet", "-in", "-"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args %q missing %q", joined, want)
		}
	}
}

func TestFaidxBuildMissingInput(t *testing.T) {
	if _, err := (FaidxBuild{}).BuildCommand(); err == nil {
		t.Errorf("BuildCommand(): want error for missing input")
	}
}

func TestExtraFlagsAppended(t *testing.T) {
	a := Align{In: "-", ExtraFlags: "-maxiters 2"}
	cmd, err := a.BuildCommand()
	if err != nil {
		t.Fatalf("BuildCommand: %v", err)
	}
	joined := strings.Join(cmd.Args, " ")
	if !strings.Contains(joined, "-maxiters 2") {
		t.Errorf("args %q missing extra flags", joined)
	}
}
