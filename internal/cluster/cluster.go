// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cluster reads and writes the pipeline's cluster file format:
// runs of name/sequence pairs sharing one locus, separated by two
// consecutive lines each holding only "//".
package cluster

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ngs-tools/radpipe/internal/errs"
)

// Cluster is one group of reads believed to derive from the same
// locus: parallel header and sequence slices, seed first.
type Cluster struct {
	Headers   []string
	Sequences []string
}

// Size returns the read count encoded in the seed header's size= field.
func (c Cluster) Size() int {
	if len(c.Headers) == 0 {
		return 0
	}
	_, n, _, _, err := ParseHeader(c.Headers[0])
	if err != nil {
		return len(c.Headers)
	}
	return n
}

// ParseHeader extracts the fields of a cluster record header of the
// form ">name;[tag=...;]size=N;orient". The grammar is located by
// scanning for the literal "size=" token rather than assuming a fixed
// field count, since tag= is optional and orientation markers vary.
func ParseHeader(h string) (name string, size int, tag string, orient byte, err error) {
	s := strings.TrimPrefix(h, ">")
	s = strings.TrimRight(s, "\n")
	fields := strings.Split(s, ";")
	if len(fields) == 0 {
		return "", 0, "", 0, &errs.FormatError{Source: "cluster", Reason: "empty header"}
	}
	name = fields[0]
	found := false
	for _, f := range fields[1:] {
		switch {
		case strings.HasPrefix(f, "size="):
			n, perr := strconv.Atoi(strings.TrimPrefix(f, "size="))
			if perr != nil {
				return "", 0, "", 0, &errs.FormatError{Source: "cluster", Reason: "bad size field: " + f}
			}
			size = n
			found = true
		case strings.HasPrefix(f, "tag="):
			tag = strings.TrimPrefix(f, "tag=")
		case f == "+" || f == "-":
			orient = f[0]
		}
	}
	if !found {
		return "", 0, "", 0, &errs.FormatError{Source: "cluster", Reason: "missing size= field in header: " + h}
	}
	if orient == 0 {
		orient = '+'
	}
	return name, size, tag, orient, nil
}

// ParseRefTag extracts an optional "ref=chrom:start" field from a
// cluster record header, the convention reference-mapped assemblies
// use to carry each cluster's mapped scaffold and 0-indexed start
// position through clustering, alignment and consensus calling. ok is
// false if no ref= field is present or it is malformed.
func ParseRefTag(h string) (chrom string, start int64, ok bool) {
	s := strings.TrimPrefix(h, ">")
	s = strings.TrimRight(s, "\n")
	for _, f := range strings.Split(s, ";") {
		if !strings.HasPrefix(f, "ref=") {
			continue
		}
		v := strings.TrimPrefix(f, "ref=")
		i := strings.LastIndex(v, ":")
		if i < 0 {
			return "", 0, false
		}
		n, err := strconv.ParseInt(v[i+1:], 10, 64)
		if err != nil {
			return "", 0, false
		}
		return v[:i], n, true
	}
	return "", 0, false
}

// Open opens path for reading, transparently decompressing it if the
// file is gzip-magic-prefixed.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 2)
	n, _ := f.Read(buf)
	if _, serr := f.Seek(0, io.SeekStart); serr != nil {
		f.Close()
		return nil, serr
	}
	if n == 2 && buf[0] == 0x1f && buf[1] == 0x8b {
		gr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		return &gzipFile{gr, f}, nil
	}
	return f, nil
}

type gzipFile struct {
	*gzip.Reader
	f *os.File
}

func (g *gzipFile) Close() error {
	err := g.Reader.Close()
	if ferr := g.f.Close(); err == nil {
		err = ferr
	}
	return err
}

// Iterator streams clusters from a reader.
type Iterator struct {
	sc      *bufio.Scanner
	cur     Cluster
	err     error
	headers []string
	seqs    []string
}

// Iter returns an Iterator reading clusters from r.
func Iter(r io.Reader) *Iterator {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &Iterator{sc: sc}
}

// Next advances to the next cluster, returning false at EOF or error.
func (it *Iterator) Next() bool {
	it.headers = it.headers[:0]
	it.seqs = it.seqs[:0]
	var header string
	var seqBuf bytes.Buffer
	haveHeader := false
	sawAny := false
	sepRun := 0
	for it.sc.Scan() {
		line := it.sc.Text()
		if line == "//" {
			sepRun++
			if haveHeader {
				it.headers = append(it.headers, header)
				it.seqs = append(it.seqs, seqBuf.String())
				seqBuf.Reset()
				haveHeader = false
			}
			if sepRun == 2 {
				it.cur = Cluster{Headers: append([]string(nil), it.headers...), Sequences: append([]string(nil), it.seqs...)}
				return true
			}
			continue
		}
		sepRun = 0
		sawAny = true
		if strings.HasPrefix(line, ">") {
			if haveHeader {
				it.headers = append(it.headers, header)
				it.seqs = append(it.seqs, seqBuf.String())
				seqBuf.Reset()
			}
			header = line
			haveHeader = true
			continue
		}
		seqBuf.WriteString(line)
	}
	if err := it.sc.Err(); err != nil {
		it.err = err
		return false
	}
	if sawAny {
		it.err = &errs.FormatError{Source: "cluster", Reason: "truncated cluster: missing trailing //"}
	}
	return false
}

// Cluster returns the cluster most recently read by Next.
func (it *Iterator) Cluster() Cluster { return it.cur }

// Err returns the first error encountered by Next, if any.
func (it *Iterator) Err() error { return it.err }

// Write emits c in the pipeline's cluster file format.
func Write(w io.Writer, c Cluster) error {
	if len(c.Headers) != len(c.Sequences) {
		return fmt.Errorf("cluster: headers/sequences length mismatch")
	}
	for i, h := range c.Headers {
		if _, err := fmt.Fprintf(w, "%s\n%s\n", h, c.Sequences[i]); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "//\n//\n")
	return err
}
