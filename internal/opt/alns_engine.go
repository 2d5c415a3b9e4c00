package opt

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"liveroute/internal/model"
)

// overloadPenalty is charged per visit above vehicle capacity, in seconds.
const overloadPenalty = 4 * 3600.0

// search holds the mutable ALNS state of one run. Only the solver goroutine
// touches it.
type search struct {
	depot    model.Location
	visits   []model.Location
	vehicles []Vehicle
	costs    Costs
	rng      *rand.Rand

	curr, best         [][]int
	currCost, bestCost float64
	unassigned         []int

	temp, cool float64
	remW       [2]float64 // random, related
	insW       [2]float64 // greedy, regret2

	stats Stats
}

func newSearch(p Problem, cfg Config) *search {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	sr := &search{
		depot:    p.Depot,
		vehicles: append([]Vehicle(nil), p.Vehicles...),
		costs:    p.Costs,
		rng:      rand.New(rand.NewSource(seed)),
		curr:     make([][]int, len(p.Vehicles)),
		best:     make([][]int, len(p.Vehicles)),
		temp:     cfg.InitialTemp,
		cool:     cfg.Cooling,
		remW:     [2]float64{1, 1},
		insW:     [2]float64{1, 1},
	}
	if sr.temp <= 0 {
		sr.temp = 60
	}
	if sr.cool <= 0 || sr.cool >= 1 {
		sr.cool = 0.995
	}
	for _, v := range p.Visits {
		sr.addVisit(v)
	}
	return sr
}

func (sr *search) indexOf(id int64) int {
	for i, v := range sr.visits {
		if v.ID == id {
			return i
		}
	}
	return -1
}

func (sr *search) addVisit(loc model.Location) {
	if loc.ID == sr.depot.ID || sr.indexOf(loc.ID) >= 0 {
		return
	}
	sr.visits = append(sr.visits, loc)
	sr.unassigned = append(sr.unassigned, len(sr.visits)-1)
}

func (sr *search) removeVisit(id int64) {
	idx := sr.indexOf(id)
	if idx < 0 {
		return
	}
	sr.curr = dropIndex(sr.curr, idx)
	sr.best = dropIndex(sr.best, idx)
	un := sr.unassigned[:0]
	for _, i := range sr.unassigned {
		switch {
		case i == idx:
		case i > idx:
			un = append(un, i-1)
		default:
			un = append(un, i)
		}
	}
	sr.unassigned = un
	sr.visits = append(sr.visits[:idx], sr.visits[idx+1:]...)
}

func (sr *search) apply(c FactChange) {
	switch c.Kind {
	case AddVisit:
		sr.addVisit(c.Location)
	case RemoveVisit:
		sr.removeVisit(c.Location.ID)
	}
}

// settle inserts every unassigned visit into the best plan and restarts the
// walk from there.
func (sr *search) settle() {
	if len(sr.unassigned) > 0 {
		sr.best = sr.greedyInsert(sr.best, sr.unassigned)
		sr.unassigned = nil
	}
	sr.bestCost = sr.objective(sr.best)
	sr.curr = clonePlans(sr.best)
	sr.currCost = sr.bestCost
	sr.stats.BestTravelTime = sr.travelTime(sr.best)
}

// iterate runs one destroy/repair step and reports whether the best
// solution improved.
func (sr *search) iterate() bool {
	sr.stats.Iterations++
	if len(sr.visits) == 0 {
		return false
	}
	k := 1 + sr.rng.Intn(3)
	op := selectOp(sr.remW[:], sr.rng)
	ip := selectOp(sr.insW[:], sr.rng)
	var removed []int
	switch op {
	case 0:
		removed = sr.randomRemoval(sr.curr, k)
	case 1:
		removed = sr.relatedRemoval(sr.curr, k)
	}
	cand := removeNodes(sr.curr, removed)
	switch ip {
	case 0:
		cand = sr.greedyInsert(cand, removed)
	case 1:
		cand = sr.regretInsert(cand, removed)
	}
	for vi := range cand {
		cand[vi] = sr.twoOpt(cand[vi])
	}
	c := sr.objective(cand)
	delta := c - sr.currCost
	improved := false
	if delta < 0 || sr.rng.Float64() < math.Exp(-delta/(sr.temp+1e-9)) {
		sr.curr, sr.currCost = cand, c
		if c+1e-6 < sr.bestCost {
			sr.best, sr.bestCost = clonePlans(cand), c
			sr.remW[op] += 0.1
			sr.insW[ip] += 0.1
			sr.stats.Improvements++
			sr.stats.BestTravelTime = sr.travelTime(sr.best)
			improved = true
		} else {
			sr.remW[op] += 0.01
			sr.insW[ip] += 0.01
			sr.stats.AcceptedWorse++
		}
	} else {
		sr.remW[op] = math.Max(0.01, sr.remW[op]*0.999)
		sr.insW[ip] = math.Max(0.01, sr.insW[ip]*0.999)
	}
	sr.temp *= sr.cool
	return improved
}

func (sr *search) solution() Solution {
	depot := sr.depot
	plans := make([]Plan, len(sr.vehicles))
	for vi, v := range sr.vehicles {
		plans[vi] = Plan{VehicleID: v.ID, Order: append([]int{}, sr.best[vi]...)}
	}
	return Solution{
		Depot:      &depot,
		Vehicles:   append([]Vehicle(nil), sr.vehicles...),
		Visits:     append([]model.Location(nil), sr.visits...),
		Plans:      plans,
		TravelTime: sr.travelTime(sr.best),
	}
}

func (sr *search) leg(from, to int64) time.Duration {
	if from == to {
		return 0
	}
	return sr.costs.TravelTime(from, to)
}

// routeTime is depot -> visits... -> depot.
func (sr *search) routeTime(order []int) time.Duration {
	if len(order) == 0 {
		return 0
	}
	total := time.Duration(0)
	prev := sr.depot.ID
	for _, idx := range order {
		id := sr.visits[idx].ID
		total += sr.leg(prev, id)
		prev = id
	}
	return total + sr.leg(prev, sr.depot.ID)
}

func (sr *search) travelTime(plans [][]int) time.Duration {
	total := time.Duration(0)
	for _, order := range plans {
		total += sr.routeTime(order)
	}
	return total
}

func (sr *search) objective(plans [][]int) float64 {
	total := 0.0
	for vi, order := range plans {
		total += sr.routeTime(order).Seconds()
		if c := sr.vehicles[vi].Capacity; c > 0 && len(order) > c {
			total += overloadPenalty * float64(len(order)-c)
		}
	}
	return total
}

func (sr *search) deltaInsert(vi int, order []int, node, pos int) float64 {
	prev, next := sr.depot.ID, sr.depot.ID
	if pos > 0 {
		prev = sr.visits[order[pos-1]].ID
	}
	if pos < len(order) {
		next = sr.visits[order[pos]].ID
	}
	id := sr.visits[node].ID
	d := sr.leg(prev, id) + sr.leg(id, next) - sr.leg(prev, next)
	delta := d.Seconds()
	if c := sr.vehicles[vi].Capacity; c > 0 && len(order)+1 > c {
		delta += overloadPenalty
	}
	return delta
}

func (sr *search) randomRemoval(plans [][]int, k int) []int {
	all := assigned(plans)
	removed := []int{}
	for i := 0; i < k && len(all) > 0; i++ {
		j := sr.rng.Intn(len(all))
		removed = append(removed, all[j])
		all = append(all[:j], all[j+1:]...)
	}
	return removed
}

// relatedRemoval picks a random seed visit plus the visits closest to it.
func (sr *search) relatedRemoval(plans [][]int, k int) []int {
	all := assigned(plans)
	if len(all) == 0 {
		return nil
	}
	seed := all[sr.rng.Intn(len(all))]
	seedID := sr.visits[seed].ID
	type pair struct {
		idx   int
		score time.Duration
	}
	rel := make([]pair, 0, len(all))
	for _, idx := range all {
		if idx == seed {
			continue
		}
		id := sr.visits[idx].ID
		rel = append(rel, pair{idx: idx, score: sr.leg(seedID, id) + sr.leg(id, seedID)})
	}
	sort.Slice(rel, func(i, j int) bool { return rel[i].score < rel[j].score })
	removed := []int{seed}
	for i := 0; i < len(rel) && len(removed) < k; i++ {
		removed = append(removed, rel[i].idx)
	}
	return removed
}

// greedyInsert repeatedly places the visit with the cheapest insertion.
func (sr *search) greedyInsert(plans [][]int, nodes []int) [][]int {
	out := clonePlans(plans)
	pending := append([]int(nil), nodes...)
	for len(pending) > 0 {
		bestVeh, bestPos, bestNode := -1, -1, 0
		bestCost := math.MaxFloat64
		for ni, idx := range pending {
			for vi, order := range out {
				for pos := 0; pos <= len(order); pos++ {
					if c := sr.deltaInsert(vi, order, idx, pos); c < bestCost {
						bestCost, bestVeh, bestPos, bestNode = c, vi, pos, ni
					}
				}
			}
		}
		if bestVeh < 0 {
			break
		}
		out[bestVeh] = insertAt(out[bestVeh], pending[bestNode], bestPos)
		pending = append(pending[:bestNode], pending[bestNode+1:]...)
	}
	return out
}

// regretInsert places first the visit that would lose most by not getting
// its best position (regret-2).
func (sr *search) regretInsert(plans [][]int, nodes []int) [][]int {
	out := clonePlans(plans)
	pending := append([]int(nil), nodes...)
	for len(pending) > 0 {
		chosen, chosenVeh, chosenPos := -1, -1, -1
		chosenRegret := -1.0
		for ni, idx := range pending {
			best1, best2 := math.MaxFloat64, math.MaxFloat64
			bv, bp := -1, -1
			for vi, order := range out {
				for pos := 0; pos <= len(order); pos++ {
					c := sr.deltaInsert(vi, order, idx, pos)
					if c < best1 {
						best2 = best1
						best1, bv, bp = c, vi, pos
					} else if c < best2 {
						best2 = c
					}
				}
			}
			if bv < 0 {
				continue
			}
			regret := best2 - best1
			if best2 == math.MaxFloat64 {
				regret = math.MaxFloat64 / 2
			}
			if regret > chosenRegret {
				chosen, chosenVeh, chosenPos, chosenRegret = ni, bv, bp, regret
			}
		}
		if chosen < 0 {
			break
		}
		out[chosenVeh] = insertAt(out[chosenVeh], pending[chosen], chosenPos)
		pending = append(pending[:chosen], pending[chosen+1:]...)
	}
	return out
}

func selectOp(weights []float64, rng *rand.Rand) int {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 {
		return 0
	}
	r := rng.Float64() * sum
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r <= acc {
			return i
		}
	}
	return len(weights) - 1
}

func assigned(plans [][]int) []int {
	out := []int{}
	for _, order := range plans {
		out = append(out, order...)
	}
	return out
}

func removeNodes(plans [][]int, removed []int) [][]int {
	rm := make(map[int]bool, len(removed))
	for _, i := range removed {
		rm[i] = true
	}
	out := make([][]int, len(plans))
	for vi, order := range plans {
		out[vi] = make([]int, 0, len(order))
		for _, idx := range order {
			if !rm[idx] {
				out[vi] = append(out[vi], idx)
			}
		}
	}
	return out
}

// dropIndex removes visit idx from every plan and shifts higher indices down.
func dropIndex(plans [][]int, idx int) [][]int {
	out := make([][]int, len(plans))
	for vi, order := range plans {
		out[vi] = make([]int, 0, len(order))
		for _, i := range order {
			switch {
			case i == idx:
			case i > idx:
				out[vi] = append(out[vi], i-1)
			default:
				out[vi] = append(out[vi], i)
			}
		}
	}
	return out
}

func insertAt(order []int, node, pos int) []int {
	out := make([]int, 0, len(order)+1)
	out = append(out, order[:pos]...)
	out = append(out, node)
	return append(out, order[pos:]...)
}

func clonePlans(plans [][]int) [][]int {
	out := make([][]int, len(plans))
	for i, order := range plans {
		out[i] = append([]int{}, order...)
	}
	return out
}
