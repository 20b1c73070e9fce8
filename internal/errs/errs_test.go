// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package errs

import (
	"errors"
	"testing"
)

func TestErrorMessages(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want string
	}{
		{&ParamError{Field: "clust_threshold", Reason: "out of range"}, "parameter clust_threshold: out of range"},
		{&FormatError{Source: "clusters.txt", Reason: "missing separator"}, "clusters.txt: malformed input: missing separator"},
		{&InsufficientData{Sample: "s1", Reason: "no clusters passed depth filter"}, "s1: insufficient data: no clusters passed depth filter"},
		{&BadStack{Sample: "s1", Reason: "empty stack"}, "s1: bad stack: empty stack"},
	} {
		if got := tc.err.Error(); got != tc.want {
			t.Errorf("Error() = %q, want %q", got, tc.want)
		}
	}
}

func TestExternalToolErrorUnwrap(t *testing.T) {
	inner := errors.New("exit status 1")
	e := &ExternalToolError{Tool: "vsearch", Err: inner}
	if !errors.Is(e, inner) {
		t.Errorf("errors.Is(e, inner) = false, want true")
	}
	if got := e.Error(); got != "vsearch: exit status 1" {
		t.Errorf("Error() = %q, want %q", got, "vsearch: exit status 1")
	}
}

func TestStageErrorUnwrap(t *testing.T) {
	inner := &BadStack{Sample: "s1", Reason: "no patterns to fit"}
	e := &StageError{Sample: "s1", Stage: 4, Err: inner}
	if !errors.Is(e, inner) {
		t.Errorf("errors.Is(e, inner) = false, want true")
	}
	var bs *BadStack
	if !errors.As(e, &bs) {
		t.Errorf("errors.As(e, &BadStack{}) = false, want true")
	}
	if got := e.Error(); got != "sample s1 stage 4: s1: bad stack: no patterns to fit" {
		t.Errorf("Error() = %q", got)
	}
}
