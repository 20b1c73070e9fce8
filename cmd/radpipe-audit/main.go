// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The radpipe-audit command inspects the per-chunk statistics store a
// sample's alignment stage leaves behind as "<sample>.chunkstats.db".
// Output is a JSON stream on stdout, one object per chunk, ordered by
// chunk index ascending regardless of the order chunks finished
// aligning in.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ngs-tools/radpipe/internal/work"
)

type chunkStats struct {
	Index     int
	NAligned  int
	NFiltered int
}

func main() {
	path := flag.String("db", "", "chunk store to audit (a \"<sample>.chunkstats.db\" file)")
	flag.Parse()
	if *path == "" {
		flag.Usage()
		os.Exit(2)
	}

	store, err := work.OpenChunkStore(*path)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	enc := json.NewEncoder(os.Stdout)
	total := chunkStats{}
	err = store.Each(&chunkStats{}, func(idx int, value interface{}) error {
		cs := value.(*chunkStats)
		total.NAligned += cs.NAligned
		total.NFiltered += cs.NFiltered
		return enc.Encode(cs)
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Fprintf(os.Stderr, "total: %d aligned, %d filtered across chunks\n", total.NAligned, total.NFiltered)
}
