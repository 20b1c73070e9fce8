// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package consensus

import "testing"

func TestMakeCigar(t *testing.T) {
	for _, tc := range []struct {
		seq  string
		want string
	}{
		{"", ""},
		{"ACGT", "4M"},
		{"AC--GT", "2M2I2M"},
		{"acGT", "4M"},
		{"--AC", "2I2M"},
		{"AC--", "2M2I"},
	} {
		if got := MakeCigar([]byte(tc.seq)); got != tc.want {
			t.Errorf("MakeCigar(%q) = %q, want %q", tc.seq, got, tc.want)
		}
	}
}

func TestUnmaskRepeat(t *testing.T) {
	for _, tc := range []struct {
		b    byte
		want bool
	}{
		{'a', true}, {'c', true}, {'g', true}, {'t', true},
		{'A', false}, {'N', false}, {'-', false},
	} {
		if got := UnmaskRepeat(tc.b); got != tc.want {
			t.Errorf("UnmaskRepeat(%q) = %v, want %v", tc.b, got, tc.want)
		}
	}
}
