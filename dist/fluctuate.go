// SPDX-License-Identifier: MIT

package dist

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Fluctuate replaces every positive entry of v by a Poisson draw with that
// mean, in place. Non-positive entries are left untouched. Draws are consumed
// from src in index order, so a seeded source gives a reproducible sequence.
func Fluctuate(v []float64, src rand.Source) {
	for i, x := range v {
		if x > 0 {
			v[i] = distuv.Poisson{Lambda: x, Src: src}.Rand()
		}
	}
}
