// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package estimate

import "math"

// logBinomPMF returns log(C(n,k) * p^k * (1-p)^(n-k)) computed through
// log-gamma terms rather than scipy-style direct binomial coefficients
// and power products, which underflow/overflow at the read depths
// seen in high-coverage RAD clusters. This is the one place the
// estimator reaches for math.Lgamma directly instead of a vendored
// distribution package: no library in the retrieved examples exposes
// a log-domain binomial PMF, and a plain gonum/stat/distuv.Binomial
// evaluated in probability space loses precision exactly where this
// inner loop needs it.
func logBinomPMF(k, n int, p float64) float64 {
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

// logChoose returns log(C(n,k)), used for the heterozygote term's
// combinatorial factor in place of scipy.special.comb, which overflows
// float64 well before the depths seen in practice.
func logChoose(n, k int) float64 {
	a, _ := math.Lgamma(float64(n) + 1)
	b, _ := math.Lgamma(float64(k) + 1)
	c, _ := math.Lgamma(float64(n-k) + 1)
	return a - b - c
}

// likelihood1 is the per-pattern likelihood under the homozygous
// model: the observed non-matching bases at a homozygous site are
// errors, binomially distributed at rate e against the three
// off-allele bases, averaged over the four possible true alleles
// weighted by their background frequency.
func likelihood1(counts [4]int, bfreqs [4]float64, e float64) float64 {
	total := counts[0] + counts[1] + counts[2] + counts[3]
	var lik float64
	for allele := 0; allele < 4; allele++ {
		if bfreqs[allele] <= 0 {
			continue
		}
		errs := total - counts[allele]
		logp := logBinomPMF(errs, total, e) + math.Log(bfreqs[allele])
		lik += math.Exp(logp)
	}
	return lik
}

// likelihood2 is the per-pattern likelihood under the heterozygous
// model: the site's true genotype is an unordered pair of distinct
// bases i != j, whose reads split binomially at 1/2 between the two
// alleles; contributions are weighted by 2*bfreqs[i]*bfreqs[j] (twice
// since the pair is unordered) and combined with the binomial
// probability, over the site's total depth at rate 2e/3, of the reads
// from the non-i/j bases arising as errors.
func likelihood2(counts [4]int, bfreqs [4]float64, e float64) float64 {
	total := counts[0] + counts[1] + counts[2] + counts[3]
	var lik float64
	for i := 0; i < 4; i++ {
		for j := i + 1; j < 4; j++ {
			if bfreqs[i] <= 0 || bfreqs[j] <= 0 {
				continue
			}
			weight := 2 * bfreqs[i] * bfreqs[j]
			ni, nj := counts[i], counts[j]
			other := total - ni - nj
			// Split the two true-allele counts binomially around
			// depth/2, then treat reads from the remaining two bases
			// as binomial error draws over the total depth.
			n := ni + nj
			logSplit := logChoose(n, ni) - float64(n)*math.Log(2)
			logOther := logBinomPMF(other, total, 2*e/3)
			lik += weight * math.Exp(logSplit+logOther)
		}
	}
	return lik
}

// logOtherErr is the log-probability that `other` off-pair reads are
// all attributable to sequencing error at rate e, treated as e per
// read (no further combinatorial factor, since which specific base
// they land on does not affect the genotype call).
func logOtherErr(other int, e float64) float64 {
	if e <= 0 {
		if other == 0 {
			return 0
		}
		return math.Inf(-1)
	}
	return float64(other) * math.Log(e)
}

// Objective returns the negative log-likelihood of the patterns under
// parameters (h, e), summing -log(L) over patterns with positive
// likelihood and skipping non-positive terms exactly as the original
// estimator's `liks[liks > 0]` mask does.
func Objective(h, e float64, bfreqs [4]float64, patterns []Pattern) float64 {
	var nll float64
	for _, pat := range patterns {
		l1 := likelihood1(pat.Counts, bfreqs, e)
		l2 := likelihood2(pat.Counts, bfreqs, e)
		l := (1-h)*l1 + h*l2
		if l <= 0 {
			continue
		}
		nll -= float64(pat.Multiplicity) * math.Log(l)
	}
	return nll
}

// ObjectiveHaploid is Objective with heterozygosity fixed at zero,
// used when the sample is called haploid.
func ObjectiveHaploid(e float64, bfreqs [4]float64, patterns []Pattern) float64 {
	var nll float64
	for _, pat := range patterns {
		l := likelihood1(pat.Counts, bfreqs, e)
		if l <= 0 {
			continue
		}
		nll -= float64(pat.Multiplicity) * math.Log(l)
	}
	return nll
}
