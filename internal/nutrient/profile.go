package nutrient

import "sort"

// Profile maps nutrients to amounts. For a single food the amounts are per
// 100 g; for a meal they are totals. Missing keys read as zero.
type Profile map[ID]float64

// AddScaled merges other into p, adding value*factor for every key.
// Keys absent from p start at zero.
func (p Profile) AddScaled(other Profile, factor float64) {
	for id, v := range other {
		p[id] += v * factor
	}
}

// Get returns the amount for id, or 0.
func (p Profile) Get(id ID) float64 {
	return p[id]
}

// Calories is the energy in kilocalories. It is never derived from other
// nutrients: a profile without EnergyKcal has zero calories.
func (p Profile) Calories() float64 {
	return p[EnergyKcal]
}

// Clone returns an independent copy.
func (p Profile) Clone() Profile {
	out := make(Profile, len(p))
	for id, v := range p {
		out[id] = v
	}
	return out
}

// Scale returns a copy with every amount multiplied by factor.
func (p Profile) Scale(factor float64) Profile {
	out := make(Profile, len(p))
	out.AddScaled(p, factor)
	return out
}

// IDs returns the keys in ascending order.
func (p Profile) IDs() []ID {
	ids := make([]ID, 0, len(p))
	for id := range p {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Union returns the sorted set of ids present in any of the profiles.
func Union(profiles ...Profile) []ID {
	seen := make(Profile)
	for _, p := range profiles {
		for id := range p {
			seen[id] = 0
		}
	}
	return seen.IDs()
}
