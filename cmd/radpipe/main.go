// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// radpipe runs the within- and across-sample stages of a RAD-seq
// assembly: dereplication and clustering, chunked alignment,
// per-sample error-rate estimation, consensus base calling, and the
// across-sample locus assembly and output writing. Demultiplexing and
// adapter trimming are expected to have already produced per-sample
// read files; this driver does not perform them.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/ngs-tools/radpipe/internal/params"
	"github.com/ngs-tools/radpipe/internal/project"
	"github.com/ngs-tools/radpipe/internal/work"
)

func main() {
	projectFile := flag.String("project", "", "project JSON document (required)")
	steps := flag.String("steps", "3,4,5,6,7", "comma-separated stage numbers to run")
	cores := flag.Int("cores", 0, "maximum worker goroutines (<=0 uses all cores)")
	force := flag.Bool("force", false, "rerun stages even if samples have already reached them")
	quiet := flag.Bool("quiet", false, "suppress progress reporting")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), `Usage of %[1]s:
  $ %[1]s -project <project.json> [-steps 3,4,5,6,7]

Options:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := log.New(os.Stderr, "", log.LstdFlags)

	if *projectFile == "" {
		logger.Fatal("missing -project")
	}

	pr, err := project.Load(*projectFile)
	if os.IsNotExist(err) {
		pr = project.New(params.Default())
	} else if err != nil {
		logger.Fatalf("load project: %v", err)
	}
	if err := pr.Params.Validate(); err != nil {
		logger.Fatalf("invalid parameters: %v", err)
	}

	n := *cores
	if n <= 0 {
		n = runtime.NumCPU()
	}

	stageNums, err := parseSteps(*steps)
	if err != nil {
		logger.Fatalf("bad -steps: %v", err)
	}

	ctx := context.Background()
	for _, stage := range stageNums {
		var err error
		if stage == 7 {
			err = runAcrossSamples(ctx, pr)
		} else {
			err = runStage(ctx, pr, stage, n, *force, *quiet, logger)
		}
		if err != nil {
			logger.Fatalf("stage %d: %v", stage, err)
		}
		if err := pr.Save(*projectFile); err != nil {
			logger.Fatalf("save project after stage %d: %v", stage, err)
		}
	}
}

func parseSteps(s string) ([]int, error) {
	var out []int
	cur := 0
	has := false
	for _, r := range s + "," {
		switch {
		case r >= '0' && r <= '9':
			cur = cur*10 + int(r-'0')
			has = true
		case r == ',':
			if has {
				out = append(out, cur)
			}
			cur, has = 0, false
		default:
			return nil, fmt.Errorf("unexpected character %q", r)
		}
	}
	return out, nil
}

// runStage dispatches one pipeline stage across the project's samples
// using a bounded worker pool, persisting nothing itself: the caller
// saves the project document after every stage so a resumed run picks
// up exactly where it left off.
func runStage(ctx context.Context, pr *project.Project, stage, cores int, force, quiet bool, logger *log.Logger) error {
	names := pendingSamples(pr, stage, force)
	if len(names) == 0 {
		logger.Printf("stage %d: no samples pending", stage)
		return nil
	}

	pool := work.New(ctx, cores)
	progress := work.NewProgress(logger, len(names), 30*time.Second, quiet)
	for i, name := range names {
		sample := pr.Sample(name)
		job := stageJob(stage, pr, sample, logger)
		pool.Submit(i, func(ctx context.Context) (interface{}, error) {
			defer progress.Inc(1)
			return job(ctx)
		})
	}
	results := pool.Drain()
	progress.Stop()

	var failed int
	for i, res := range results {
		name := names[i]
		if res.Err != nil {
			logger.Printf("sample %s failed stage %d: %v", name, stage, res.Err)
			failed++
			continue
		}
		if err := pr.Sample(name).Advance(stage); err != nil {
			logger.Printf("sample %s: %v", name, err)
		}
	}
	if failed == len(names) {
		return fmt.Errorf("all %d samples failed", failed)
	}
	return nil
}

func pendingSamples(pr *project.Project, stage int, force bool) []string {
	var names []string
	for name, s := range pr.Samples {
		if force || s.State < stage {
			names = append(names, name)
		}
	}
	return names
}

// stageJob returns the work.Job implementing one stage for one
// sample. Stages 1-2 (demultiplexing and trimming) are out of scope:
// the project document is expected to already carry their output file
// paths in Sample.Files.
func stageJob(stage int, pr *project.Project, sample *project.Sample, logger *log.Logger) work.Job {
	return func(ctx context.Context) (interface{}, error) {
		switch stage {
		case 3:
			return nil, runDerepClusterAlign(ctx, pr, sample)
		case 4:
			return nil, runDepthStats(pr, sample)
		case 5:
			return nil, runEstimate(pr, sample)
		case 6:
			return nil, runConsensus(pr, sample)
		default:
			return nil, fmt.Errorf("stage %d is driven once across all samples, not per-sample", stage)
		}
	}
}
