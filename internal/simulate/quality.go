package simulate

// KendallTau returns the rank correlation between two orderings of the same
// names: 1 for identical, -1 for reversed. Names missing from either side
// are ignored.
func KendallTau(truth, observed []string) float64 {
	pos := make(map[string]int, len(observed))
	for i, n := range observed {
		pos[n] = i
	}
	common := make([]int, 0, len(truth))
	for _, n := range truth {
		if p, ok := pos[n]; ok {
			common = append(common, p)
		}
	}
	n := len(common)
	if n < 2 {
		return 1
	}

	concordant, discordant := 0, 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if common[i] < common[j] {
				concordant++
			} else {
				discordant++
			}
		}
	}
	return float64(concordant-discordant) / float64(n*(n-1)/2)
}

// TopKOverlap returns the fraction of the first k names of truth that also
// appear in the first k of observed.
func TopKOverlap(truth, observed []string, k int) float64 {
	if k > len(truth) {
		k = len(truth)
	}
	if k <= 0 {
		return 0
	}
	head := make(map[string]struct{}, k)
	for _, n := range observed[:min(k, len(observed))] {
		head[n] = struct{}{}
	}
	hits := 0
	for _, n := range truth[:k] {
		if _, ok := head[n]; ok {
			hits++
		}
	}
	return float64(hits) / float64(k)
}
