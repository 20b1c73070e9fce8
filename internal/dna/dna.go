// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dna provides the fixed byte encoding used throughout the
// assembly pipeline for nucleotide and IUPAC heterozygote codes.
package dna

// Fixed byte values for the bases handled by the pipeline. These match
// the ASCII codes of the upper-case letters themselves, so a consensus
// byte slice is directly printable.
const (
	A   byte = 'A'
	C   byte = 'C'
	G   byte = 'G'
	T   byte = 'T'
	N   byte = 'N'
	Gap byte = '-'

	// PairSep separates the two reads of a paired-end cluster
	// within a single sequence line.
	PairSep byte = 'n'
)

// hetPair maps an IUPAC ambiguity code to the two bases it represents,
// in a fixed canonical order.
var hetPair = map[byte][2]byte{
	'R': {A, G},
	'K': {G, T},
	'S': {C, G},
	'Y': {C, T},
	'W': {A, T},
	'M': {A, C},
}

var hetCode map[[2]byte]byte

func init() {
	hetCode = make(map[[2]byte]byte, len(hetPair))
	for code, pair := range hetPair {
		hetCode[pair] = code
		hetCode[[2]byte{pair[1], pair[0]}] = code
	}
}

// IsHetero reports whether b is an IUPAC heterozygote code.
func IsHetero(b byte) bool {
	_, ok := hetPair[b]
	return ok
}

// HetPair returns the two homozygous bases represented by an IUPAC
// ambiguity code. ok is false if b is not a recognized code.
func HetPair(b byte) (x, y byte, ok bool) {
	p, ok := hetPair[b]
	if !ok {
		return 0, 0, false
	}
	return p[0], p[1], true
}

// HetCode returns the IUPAC ambiguity code for the unordered pair
// (a, b). ok is false if the pair has no IUPAC code (e.g. a == b).
func HetCode(a, b byte) (byte, bool) {
	c, ok := hetCode[[2]byte{a, b}]
	return c, ok
}

var comp = map[byte]byte{
	A: T, T: A, C: G, G: C, N: N, Gap: Gap,
	'R': 'Y', 'Y': 'R', 'S': 'S', 'W': 'W', 'K': 'M', 'M': 'K',
	'a': 't', 't': 'a', 'c': 'g', 'g': 'c', 'n': 'n',
}

// Comp returns the complement of seq, leaving any pair separator and
// unrecognized bytes unchanged.
func Comp(seq []byte) []byte {
	out := make([]byte, len(seq))
	for i, b := range seq {
		if c, ok := comp[b]; ok && b != PairSep {
			out[i] = c
			continue
		}
		out[i] = b
	}
	return out
}

// RevComp returns the reverse complement of seq. A pair separator, if
// present, is treated as an ordinary base for positional purposes: the
// two flanks are reversed as a whole, matching the convention that the
// separator marks a fixed join point rather than a per-read boundary.
func RevComp(seq []byte) []byte {
	rc := Comp(seq)
	for i, j := 0, len(rc)-1; i < j; i, j = i+1, j-1 {
		rc[i], rc[j] = rc[j], rc[i]
	}
	return rc
}
