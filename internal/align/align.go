// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package align splits a sample's cluster file into chunks, aligns
// each cluster within a chunk via a long-lived aligner subprocess,
// and applies the post-alignment filters (internal-indel rejection,
// GBS edge trimming, PCR-duplicate declone).
package align

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/ngs-tools/radpipe/internal/cluster"
	"github.com/ngs-tools/radpipe/internal/errs"
)

// ChunkDescriptor names one chunk of a sample's cluster file by index
// and location rather than by embedding the index into a filename, so
// a scheduler can carry chunk identity as data instead of parsing it
// back out of a path.
type ChunkDescriptor struct {
	Index     int
	Path      string
	NClusters int
}

// Split divides the cluster file at path into n chunks of increasing
// size, the first chunk smallest, mirroring the aligner's own
// chunking geometry so the slowest (largest, most repetitive) clusters
// land in the last chunks where stragglers are easiest to spot.
func Split(path string, n int, dir string) ([]ChunkDescriptor, error) {
	if n < 1 {
		return nil, &errs.ParamError{Field: "num_chunks", Reason: "must be >= 1"}
	}
	r, err := cluster.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var all []cluster.Cluster
	it := cluster.Iter(r)
	for it.Next() {
		all = append(all, it.Cluster())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}

	total := len(all)
	optim := total/(2*n) + total%(2*n)
	inc := optim / n
	if inc < 1 {
		inc = 1
	}

	var descs []ChunkDescriptor
	pos := 0
	for idx := 0; idx < n && pos < total; idx++ {
		size := optim + idx*inc
		if pos+size > total || idx == n-1 {
			size = total - pos
		}
		chunkPath := fmt.Sprintf("%s/chunk.%d", dir, idx)
		f, err := os.Create(chunkPath)
		if err != nil {
			return nil, err
		}
		for _, c := range all[pos : pos+size] {
			if err := cluster.Write(f, c); err != nil {
				f.Close()
				return nil, err
			}
		}
		f.Close()
		descs = append(descs, ChunkDescriptor{Index: idx, Path: chunkPath, NClusters: size})
		pos += size
	}
	return descs, nil
}

// Shell is a long-lived aligner helper process: one "bash" subprocess
// per worker, fed one cluster at a time and read back to a "//"
// marker line. It must not be shared between workers and must be
// closed explicitly at stage end.
type Shell struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
}

// Start launches the helper shell.
func Start() (*Shell, error) {
	cmd := exec.Command("bash")
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, &errs.ExternalToolError{Tool: "bash", Err: err}
	}
	return &Shell{cmd: cmd, stdin: stdin, stdout: bufio.NewReader(stdout)}, nil
}

// Align writes seqs (interleaved name/sequence FASTA lines already
// formatted by the caller) through "muscle -quiet -in -" and reads the
// aligned FASTA back, stopping at the "//" marker line the command
// echoes on completion.
func (s *Shell) Align(fasta string) (string, error) {
	cmdLine := fmt.Sprintf("echo -e '%s' | muscle -quiet -in - ; echo //\n", fasta)
	if _, err := io.WriteString(s.stdin, cmdLine); err != nil {
		return "", &errs.ExternalToolError{Tool: "muscle", Err: err}
	}
	var out strings.Builder
	for {
		line, err := s.stdout.ReadString('\n')
		if err != nil {
			return out.String(), &errs.ExternalToolError{Tool: "muscle", Err: err}
		}
		if line == "//\n" {
			break
		}
		out.WriteString(line)
	}
	return out.String(), nil
}

// Close tears down the helper shell. It is always safe to call, and
// must always be deferred once Start succeeds so the subprocess does
// not outlive its worker.
func (s *Shell) Close() error {
	s.stdin.Close()
	_ = s.cmd.Wait()
	return nil
}
