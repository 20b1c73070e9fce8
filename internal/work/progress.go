// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package work

import (
	"fmt"
	"log"
	"sync/atomic"
	"time"
)

// Progress reports "N/M complete" to a logger on a fixed interval
// until Stop is called, matching the periodic log.Printf status lines
// a driver prints while an external tool runs.
type Progress struct {
	total int64
	done  int64
	log   *log.Logger
	quiet bool
	stop  chan struct{}
}

// NewProgress starts a ticking reporter for a known total unit count.
func NewProgress(logger *log.Logger, total int, interval time.Duration, quiet bool) *Progress {
	p := &Progress{total: int64(total), log: logger, quiet: quiet, stop: make(chan struct{})}
	if !quiet {
		go p.run(interval)
	}
	return p
}

func (p *Progress) run(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			p.log.Printf("%d/%d complete", atomic.LoadInt64(&p.done), p.total)
		case <-p.stop:
			return
		}
	}
}

// Inc marks n more units complete.
func (p *Progress) Inc(n int) {
	atomic.AddInt64(&p.done, int64(n))
}

// Stop ends periodic reporting and prints a final tally.
func (p *Progress) Stop() {
	close(p.stop)
	if !p.quiet {
		p.log.Printf("%s", fmt.Sprintf("%d/%d complete", atomic.LoadInt64(&p.done), p.total))
	}
}
