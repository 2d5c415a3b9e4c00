package opt

// twoOpt reverses segments of a single route while that shortens the
// depot-to-depot travel time.
func (sr *search) twoOpt(order []int) []int {
	n := len(order)
	if n < 3 {
		return order
	}
	best := order
	bestTime := sr.routeTime(best)
	improved := true
	for improved {
		improved = false
		for i := 0; i < n-1; i++ {
			for k := i + 1; k < n; k++ {
				cand := twoOptSwap(best, i, k)
				if t := sr.routeTime(cand); t < bestTime {
					best, bestTime = cand, t
					improved = true
				}
			}
		}
	}
	return best
}

func twoOptSwap(ord []int, i, k int) []int {
	out := make([]int, len(ord))
	copy(out, ord[:i])
	// reverse i..k
	pos := i
	for j := k; j >= i; j-- {
		out[pos] = ord[j]
		pos++
	}
	copy(out[pos:], ord[k+1:])
	return out
}
