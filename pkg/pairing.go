package recon

import (
	"math"
	"sort"
)

// Pair holds the indices of an X and a Y plane cluster.
type Pair struct {
	X int
	Y int
}

type PairingStrategy interface {
	Name() string
	Pair(x, y []PlaneCluster) []Pair
}

func NewPairingStrategy(name string, maxAsymmetry float64) (PairingStrategy, error) {
	switch name {
	case "all":
		return AllCombinations{}, nil
	case "charge_asymmetry", "":
		if maxAsymmetry <= 0 || maxAsymmetry > 1 {
			return nil, &ErrInvalidOption{Name: "max_asymmetry", Value: maxAsymmetry}
		}
		return ChargeAsymmetry{MaxAsymmetry: maxAsymmetry}, nil
	case "charge_rank":
		return ChargeRank{}, nil
	}
	return nil, &ErrInvalidOption{Name: "pairing", Value: name}
}

// AllCombinations pairs every X cluster with every Y cluster.
type AllCombinations struct{}

func (AllCombinations) Name() string { return "all" }

func (AllCombinations) Pair(x, y []PlaneCluster) []Pair {
	pairs := make([]Pair, 0, len(x)*len(y))
	for i := range x {
		for j := range y {
			pairs = append(pairs, Pair{X: i, Y: j})
		}
	}
	return pairs
}

// ChargeAsymmetry pairs clusters one to one, best charge agreement first.
type ChargeAsymmetry struct {
	MaxAsymmetry float64
}

func (ChargeAsymmetry) Name() string { return "charge_asymmetry" }

func (s ChargeAsymmetry) Pair(x, y []PlaneCluster) []Pair {
	type candidate struct {
		pair Pair
		asym float64
	}
	var candidates []candidate
	for i := range x {
		qx := x[i].TotalCharge()
		for j := range y {
			qy := y[j].TotalCharge()
			if qx+qy <= 0 {
				continue
			}
			asym := math.Abs(qx-qy) / (qx + qy)
			if asym <= s.MaxAsymmetry {
				candidates = append(candidates, candidate{Pair{i, j}, asym})
			}
		}
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].asym < candidates[b].asym
	})

	usedX := make(map[int]bool)
	usedY := make(map[int]bool)
	var pairs []Pair
	for _, c := range candidates {
		if usedX[c.pair.X] || usedY[c.pair.Y] {
			continue
		}
		usedX[c.pair.X] = true
		usedY[c.pair.Y] = true
		pairs = append(pairs, c.pair)
	}
	sortPairs(pairs)
	return pairs
}

// ChargeRank pairs the i-th largest X cluster with the i-th largest Y cluster.
type ChargeRank struct{}

func (ChargeRank) Name() string { return "charge_rank" }

func (ChargeRank) Pair(x, y []PlaneCluster) []Pair {
	rx := rankByCharge(x)
	ry := rankByCharge(y)
	n := min(len(rx), len(ry))
	pairs := make([]Pair, n)
	for i := 0; i < n; i++ {
		pairs[i] = Pair{X: rx[i], Y: ry[i]}
	}
	sortPairs(pairs)
	return pairs
}

func rankByCharge(clusters []PlaneCluster) []int {
	order := make([]int, len(clusters))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return clusters[order[a]].TotalCharge() > clusters[order[b]].TotalCharge()
	})
	return order
}

func sortPairs(pairs []Pair) {
	sort.Slice(pairs, func(a, b int) bool {
		if pairs[a].X != pairs[b].X {
			return pairs[a].X < pairs[b].X
		}
		return pairs[a].Y < pairs[b].Y
	})
}
