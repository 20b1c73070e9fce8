// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package consensus

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/fai"
	"github.com/biogo/hts/sam"
)

// RefWriter writes reference-mapped consensus loci as BAM records
// against the assembly's indexed reference, resolving Open Question 2
// (the reference-mode CIGAR shape) by using MakeCigar directly.
type RefWriter struct {
	idx   *fai.Index
	hdr   *sam.Header
	w     *bam.Writer
	names map[int64]string
}

// LoadReferenceIndex builds a reference's scaffold index by scanning
// its FASTA file directly, the same fai.NewIndex call the teacher's
// query-indexing step uses.
func LoadReferenceIndex(path string) (*fai.Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	idx, err := fai.NewIndex(f)
	if err != nil {
		return nil, err
	}
	return &idx, nil
}

// ChromIDs assigns each scaffold in idx a stable 1-indexed id in
// lexical name order. RefPos and the ".loci" chrom label share this
// numbering.
func ChromIDs(idx *fai.Index) map[string]int {
	names := make([]string, 0, len(*idx))
	for name := range *idx {
		names = append(names, name)
	}
	sort.Strings(names)
	ids := make(map[string]int, len(names))
	for i, name := range names {
		ids[name] = i + 1
	}
	return ids
}

// NewRefWriter builds the SAM header from a reference's .fai index,
// one reference entry per scaffold, and resolves locus scaffold ids
// through ChromIDs' 1-indexed lexical numbering.
func NewRefWriter(w io.Writer, idx *fai.Index) (*RefWriter, error) {
	hdr, err := sam.NewHeader(nil, nil)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string)
	for name, id := range ChromIDs(idx) {
		names[int64(id)] = name
	}
	for name, rec := range *idx {
		ref, err := sam.NewReference(name, "", "", int(rec.Length), nil, nil)
		if err != nil {
			return nil, err
		}
		if err := hdr.AddReference(ref); err != nil {
			return nil, err
		}
	}
	bw, err := bam.NewWriter(w, hdr, 0)
	if err != nil {
		return nil, err
	}
	return &RefWriter{idx: idx, hdr: hdr, w: bw, names: names}, nil
}

// WriteLocus emits one reference-mapped locus as a BAM record at the
// scaffold and position recorded in loc.RefPos, using MakeCigar for
// the CIGAR field.
func (rw *RefWriter) WriteLocus(loc Locus) error {
	scaffold, ok := rw.names[loc.RefPos[0]]
	if !ok {
		return fmt.Errorf("consensus: no scaffold for chrom id %d", loc.RefPos[0])
	}
	var ref *sam.Reference
	for _, r := range rw.hdr.Refs() {
		if r.Name() == scaffold {
			ref = r
			break
		}
	}
	if ref == nil {
		return fmt.Errorf("consensus: no reference entry for scaffold %q", scaffold)
	}
	cigar, err := parseCigarOps(MakeCigar(loc.Consensus))
	if err != nil {
		return err
	}
	pos := int(loc.RefPos[1])
	rec, err := sam.NewRecord(loc.Name, ref, ref, pos, pos+len(loc.Consensus), 0, 255, cigar, loc.Consensus, nil, nil)
	if err != nil {
		return err
	}
	return rw.w.Write(rec)
}

// Close flushes and closes the underlying BAM writer.
func (rw *RefWriter) Close() error {
	return rw.w.Close()
}

func parseCigarOps(s string) (sam.Cigar, error) {
	var ops sam.Cigar
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= '0' && c <= '9' {
			n = n*10 + int(c-'0')
			continue
		}
		var op sam.CigarOpType
		switch c {
		case 'M':
			op = sam.CigarMatch
		case 'I':
			op = sam.CigarInsertion
		case 'D':
			op = sam.CigarDeletion
		}
		ops = append(ops, sam.NewCigarOp(op, n))
		n = 0
	}
	return ops, nil
}
