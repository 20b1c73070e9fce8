// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package output

import "fmt"

// Reconcile cross-checks that the three output artifacts agree on the
// retained locus set: the loci count, and the highest locus id
// referenced by each table's own bookkeeping. This is an explicit
// post-write assertion, not a correctness guarantee baked into the
// writers themselves, matching the habit of re-querying a freshly
// built structure before trusting it (the way cullContained rebuilds
// and re-queries its interval tree rather than trusting insertion
// order).
func Reconcile(nLoci int, seqs SeqsTable, snps SnpsTable) error {
	for _, row := range seqs.PhyMap {
		if row.LocusID >= nLoci {
			return fmt.Errorf("reconcile: seqs table references locus %d beyond loci count %d", row.LocusID, nLoci)
		}
	}
	for _, row := range snps.SnpsMap {
		if row.LocusID >= nLoci {
			return fmt.Errorf("reconcile: snps table references locus %d beyond loci count %d", row.LocusID, nLoci)
		}
	}
	if len(seqs.Samples) != len(snps.Samples) {
		return fmt.Errorf("reconcile: seqs has %d samples, snps has %d", len(seqs.Samples), len(snps.Samples))
	}
	for i, s := range seqs.Samples {
		if snps.Samples[i] != s {
			return fmt.Errorf("reconcile: sample order mismatch at index %d: %q vs %q", i, s, snps.Samples[i])
		}
	}
	return nil
}
