// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package consensus calls a per-cluster consensus sequence and
// genotype from aligned read stacks using a binomial genotype model
// parameterized by the sample's estimated heterozygosity and error
// rate.
package consensus

import "math"

// logBinomPMF mirrors estimate.logBinomPMF: a log-gamma based
// log-binomial kernel, kept as a second small copy in this package
// rather than an import across package boundaries for a three-line
// function, matching the degree of duplication the teacher itself
// tolerates between its blast and cmd/ins packages for similarly
// small helpers.
func logBinomPMF(k, n int, p float64) float64 {
	if n == 0 {
		if k == 0 {
			return 0
		}
		return math.Inf(-1)
	}
	if p <= 0 {
		if k == 0 {
			return 0
		}
		return math.Inf(-1)
	}
	if p >= 1 {
		if k == n {
			return 0
		}
		return math.Inf(-1)
	}
	logCoeff, _ := math.Lgamma(float64(n) + 1)
	lk, _ := math.Lgamma(float64(k) + 1)
	lnk, _ := math.Lgamma(float64(n-k) + 1)
	logCoeff = logCoeff - lk - lnk
	return logCoeff + float64(k)*math.Log(p) + float64(n-k)*math.Log(1-p)
}

func logChoose(n, k int) float64 {
	a, _ := math.Lgamma(float64(n) + 1)
	b, _ := math.Lgamma(float64(k) + 1)
	c, _ := math.Lgamma(float64(n-k) + 1)
	return a - b - c
}

// GetBinom computes the posterior genotype call for a biallelic site
// with base1 reads of the majority allele and base2 of the second
// most common allele, given the sample's estimated error rate and
// heterozygosity. It returns whether the best-supported genotype is
// heterozygous and the posterior probability of that call, ported
// directly from the original get_binom: priors (1-H)/2 on each
// homozygote and H on the heterozygote, each multiplied by a binomial
// (homozygote) or exact-combinatorial (heterozygote) likelihood, then
// normalized against their sum. A site with no reads returns a
// probability of 0.
func GetBinom(base1, base2 int, estErr, estHet float64) (isHet bool, prob float64) {
	priorHomo := (1 - estHet) / 2
	priorHete := estHet
	bsum := base1 + base2
	if bsum == 0 {
		return false, 0
	}

	logHet := logChoose(bsum, base1) - float64(bsum)*math.Log(2)
	hetprob := math.Exp(logHet) * priorHete

	homoA := math.Exp(logBinomPMF(base2, bsum, estErr)) * priorHomo
	homoB := math.Exp(logBinomPMF(base1, bsum, estErr)) * priorHomo

	total := homoA + homoB + hetprob
	if total <= 0 {
		return false, 0
	}
	best := math.Max(hetprob, math.Max(homoA, homoB))
	prob = best / total
	// The tie-break against the heterozygote only compares to homoA,
	// not homoB, matching get_binom's original asymmetric comparison.
	return hetprob > homoA, prob
}
