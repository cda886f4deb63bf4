package session

import (
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/amutnick/Runecast/pkg/domain"
)

// PhysicalPool orders the catalog lexicographically by name. It is a pure
// function of the catalog: the user reads from a set they already own.
func PhysicalPool(runes []domain.Rune) []domain.Rune {
	pool := slices.Clone(runes)
	slices.SortStableFunc(pool, func(a, b domain.Rune) int {
		return strings.Compare(a.Name, b.Name)
	})
	return pool
}

// VirtualPool returns a uniformly random permutation of the catalog.
func VirtualPool(runes []domain.Rune, rng *rand.Rand) []domain.Rune {
	pool := slices.Clone(runes)
	rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	return pool
}

// CastOrientation resolves a virtual draw: a fair coin for reversible runes,
// upright otherwise.
func CastOrientation(r domain.Rune, rng *rand.Rand) domain.Orientation {
	if r.Reversible() && rng.IntN(2) == 1 {
		return domain.Reversed
	}
	return domain.Upright
}
