// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package params

import "testing"

func TestDefaultValidates(t *testing.T) {
	p := Default()
	p.ClustThreshold = 0.85
	if err := p.Validate(); err != nil {
		t.Errorf("Default().Validate() = %v, want nil", err)
	}
}

func TestValidateRejectsBadClustThreshold(t *testing.T) {
	p := Default()
	p.ClustThreshold = 1.5
	if err := p.Validate(); err == nil {
		t.Errorf("Validate(): want error for clust_threshold > 1")
	}
}

func TestValidateRejectsInconsistentDepths(t *testing.T) {
	p := Default()
	p.MindepthMajrule = 10
	p.MinReadsPerLocus = 5
	if err := p.Validate(); err == nil {
		t.Errorf("Validate(): want error when mindepth_statistical < mindepth_majrule")
	}
}

func TestIsPaired(t *testing.T) {
	for _, tc := range []struct {
		datatype string
		want     bool
	}{
		{"rad", false},
		{"gbs", false},
		{"pairddrad", true},
		{"pairgbs", true},
	} {
		p := Params{Datatype: tc.datatype}
		if got := p.IsPaired(); got != tc.want {
			t.Errorf("IsPaired(%q) = %v, want %v", tc.datatype, got, tc.want)
		}
	}
}

func TestIsReference(t *testing.T) {
	p := Params{}
	if p.IsReference() {
		t.Errorf("IsReference(): want false for empty reference")
	}
	p.Reference = "genome.fa"
	if !p.IsReference() {
		t.Errorf("IsReference(): want true once reference_sequence is set")
	}
}
