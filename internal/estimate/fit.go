// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package estimate

import (
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/ngs-tools/radpipe/internal/errs"
)

const (
	lowerBound = 1e-10
	upperBound = 1.0
)

// sigmoid maps an unconstrained real onto (lowerBound, upperBound),
// the reparametrization used to honor the [1e-10, 1.0] box constraint
// the original solver enforces natively through L-BFGS-B bounds: gonum
// has no boxed quasi-Newton method, so the bound is folded into the
// parametrization instead of the optimizer.
func sigmoid(x float64) float64 {
	return lowerBound + (upperBound-lowerBound)/(1+math.Exp(-x))
}

func invSigmoid(p float64) float64 {
	q := (p - lowerBound) / (upperBound - lowerBound)
	q = math.Min(math.Max(q, 1e-12), 1-1e-12)
	return math.Log(q / (1 - q))
}

// Fit solves for the (H, E) pair maximizing the likelihood of
// patterns, or for E alone when haploid is true (H is then reported
// as zero). The search starts from the same initial point as the
// original solver: H=0.01, E=0.001 for diploid, E=0.001 for haploid.
func Fit(patterns []Pattern, bfreqs [4]float64, haploid bool) (h, e float64, err error) {
	if len(patterns) == 0 {
		return 0, 0, &errs.BadStack{Reason: "no patterns to fit"}
	}

	if haploid {
		p := optimize.Problem{
			Func: func(x []float64) float64 {
				return ObjectiveHaploid(sigmoid(x[0]), bfreqs, patterns)
			},
		}
		res, ferr := optimize.Minimize(p, []float64{invSigmoid(0.001)}, nil, &optimize.NelderMead{})
		if ferr != nil {
			return 0, 0, &errs.BadStack{Reason: "haploid fit failed: " + ferr.Error()}
		}
		return 0, sigmoid(res.X[0]), nil
	}

	p := optimize.Problem{
		Func: func(x []float64) float64 {
			return Objective(sigmoid(x[0]), sigmoid(x[1]), bfreqs, patterns)
		},
	}
	start := []float64{invSigmoid(0.01), invSigmoid(0.001)}
	res, ferr := optimize.Minimize(p, start, nil, &optimize.NelderMead{})
	if ferr != nil {
		return 0, 0, &errs.BadStack{Reason: "diploid fit failed: " + ferr.Error()}
	}
	return sigmoid(res.X[0]), sigmoid(res.X[1]), nil
}
