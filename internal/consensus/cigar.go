// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package consensus

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/ngs-tools/radpipe/internal/dna"
)

// MakeCigar builds a CIGAR string for a reference-mapped consensus
// sequence: runs of gap bytes become an indel operation, lower-case
// ambiguity bases (masked repeat regions) collapse into the
// surrounding match run via the same 'M' operation, and everything
// else accumulates as a match run. This is a direct port of the
// run-length state machine make_cigar uses to build BAM records for
// the reference-mode consensus output.
func MakeCigar(seq []byte) string {
	var sb strings.Builder
	if len(seq) == 0 {
		return ""
	}

	op := func(b byte) byte {
		if b == dna.Gap {
			return 'I'
		}
		return 'M'
	}

	runOp := op(seq[0])
	runLen := 1
	for i := 1; i < len(seq); i++ {
		b := seq[i]
		cur := op(b)
		if cur == runOp {
			runLen++
			continue
		}
		fmt.Fprintf(&sb, "%d%c", runLen, runOp)
		runOp = cur
		runLen = 1
	}
	fmt.Fprintf(&sb, "%d%c", runLen, runOp)
	return sb.String()
}

// UnmaskRepeat reports whether b is a lower-case masked repeat base.
func UnmaskRepeat(b byte) bool {
	return unicode.IsLower(rune(b))
}
