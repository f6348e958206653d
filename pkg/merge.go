package recon

import "math"

type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	u := &unionFind{parent: make([]int, n)}
	for i := range u.parent {
		u.parent[i] = i
	}
	return u
}

func (u *unionFind) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if ra < rb {
		u.parent[rb] = ra
	} else {
		u.parent[ra] = rb
	}
}

// groups returns the members of every set with more than one element,
// each group in increasing order and groups ordered by their first member.
func (u *unionFind) groups() [][]int {
	byRoot := make(map[int][]int)
	var roots []int
	for i := range u.parent {
		r := u.find(i)
		if _, ok := byRoot[r]; !ok {
			roots = append(roots, r)
		}
		byRoot[r] = append(byRoot[r], i)
	}
	var out [][]int
	for _, r := range roots {
		if len(byRoot[r]) > 1 {
			out = append(out, byRoot[r])
		}
	}
	return out
}

// mergeTransitionClusters glues clusters found in different sectors whose
// closest modules touch. Absorbed clusters are flagged discarded.
func (e *ClusterEngine) mergeTransitionClusters(clusters []Cluster) {
	uf := newUnionFind(len(clusters))
	for i := range clusters {
		for j := i + 1; j < len(clusters); j++ {
			if clusters[i].Sector == clusters[j].Sector {
				continue
			}
			if e.touching(&clusters[i], &clusters[j]) {
				uf.union(i, j)
			}
		}
	}

	for _, group := range uf.groups() {
		survivor := group[0]
		for _, k := range group[1:] {
			if clusters[k].CenterEnergy > clusters[survivor].CenterEnergy {
				survivor = k
			}
		}
		for _, k := range group {
			if k == survivor {
				continue
			}
			e.mergeInto(&clusters[survivor], &clusters[k])
			clusters[k].Flags.Set(FlagDiscarded)
		}
		e.computePosition(&clusters[survivor])
		clusters[survivor].Flags.Set(FlagGlued)
	}
}

// touching compares the closest pair of members, distances measured in
// average module sizes on each axis.
func (e *ClusterEngine) touching(a, b *Cluster) bool {
	minDist, minDx, minDy := math.Inf(1), math.Inf(1), math.Inf(1)
	for _, ha := range a.Hits {
		if ha.Energy <= 0 {
			continue
		}
		ma, _ := e.geometry.Module(ha.ID)
		for _, hb := range b.Hits {
			if hb.Energy <= 0 {
				continue
			}
			mb, _ := e.geometry.Module(hb.ID)
			dx := (ha.X - hb.X) / (0.5 * (ma.SizeX + mb.SizeX))
			dy := (ha.Y - hb.Y) / (0.5 * (ma.SizeY + mb.SizeY))
			if d := dx*dx + dy*dy; d < minDist {
				minDist = d
				minDx = math.Abs(dx)
				minDy = math.Abs(dy)
			}
		}
	}
	return minDx <= e.options.TransitionDistance && minDy <= e.options.TransitionDistance
}

// mergeInto moves the members of src into dst. A module present in both is
// kept once with the summed energy.
func (e *ClusterEngine) mergeInto(dst, src *Cluster) {
	index := make(map[int]int, len(dst.Hits))
	for i, h := range dst.Hits {
		index[h.ID] = i
	}
	dropped := 0
	for _, h := range src.Hits {
		if i, ok := index[h.ID]; ok {
			d := &dst.Hits[i]
			d.Energy += h.Energy
			d.X = 0.5 * (d.X + h.X)
			d.Y = 0.5 * (d.Y + h.Y)
			continue
		}
		if len(dst.Hits) >= e.options.MaxClusterHits {
			dropped++
			continue
		}
		index[h.ID] = len(dst.Hits)
		dst.Hits = append(dst.Hits, h)
	}
	if dropped > 0 {
		warn("merged cluster centered at module %d exceeds %d modules, %d dropped",
			dst.CenterID, e.options.MaxClusterHits, dropped)
	}
	dst.Energy = sumEnergy(dst.Hits)
	if src.Flags.Has(FlagSplit) {
		dst.Flags.Set(FlagSplit)
	}
	src.Hits = nil
	src.Energy = 0
}
