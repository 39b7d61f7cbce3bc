package routingalgorithm

import (
	"errors"
	"fmt"

	"lintang/timemap/pkg/datastructure"

	"github.com/twpayne/go-polyline"
)

// MaxTime sentinel buat station yang unreachable atau lebih jauh dari 48 jam.
const MaxTime int64 = 48 * 3600

var ErrUnknownOrigin = errors.New("origin station is not in the graph")

type Graph interface {
	GetNumNodes() int
	GetNode(nodeIDx int32) string
	GetNodeIDx(name string) (int32, bool)
	GetOutEdges(nodeIDx int32) []datastructure.EdgePair
}

// ShortestPathTree hasil single source dijkstra: waktu tempuh & predecessor per node.
type ShortestPathTree struct {
	g      Graph
	origin int32
	dist   []int64
	prev   []int32
}

type RouteAlgorithm struct {
	g Graph
}

func NewRouteAlgorithm(g Graph) *RouteAlgorithm {
	return &RouteAlgorithm{g: g}
}

// Dijkstra single source dari origin. Edge ke diri sendiri di skip.
// time complexity: O((V+E)logV), priority queue pakai binary heap.
func (rt *RouteAlgorithm) Dijkstra(origin string) (*ShortestPathTree, error) {
	from, ok := rt.g.GetNodeIDx(origin)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOrigin, origin)
	}

	n := rt.g.GetNumNodes()
	dist := make([]int64, n)
	prev := make([]int32, n)
	settled := make([]bool, n)
	for i := range dist {
		dist[i] = -1
		prev[i] = -1
	}

	pq := NewMinHeap[int32]()
	dist[from] = 0
	pq.Insert(PriorityQueueNode[int32]{Rank: 0, Item: from})

	for pq.Size() > 0 {
		node, _ := pq.ExtractMin()
		curr := node.Item
		settled[curr] = true

		for _, edge := range rt.g.GetOutEdges(curr) {
			to := edge.ToNodeIDX
			if to == curr || settled[to] {
				continue
			}
			newCost := dist[curr] + edge.Weight
			if dist[to] != -1 && newCost >= dist[to] {
				continue
			}
			dist[to] = newCost
			prev[to] = curr
			if pq.Contains(to) {
				pq.DecreaseKey(PriorityQueueNode[int32]{Rank: newCost, Item: to})
			} else {
				pq.Insert(PriorityQueueNode[int32]{Rank: newCost, Item: to})
			}
		}
	}

	return &ShortestPathTree{g: rt.g, origin: from, dist: dist, prev: prev}, nil
}

// ShortestTimes waktu tempuh minimum dari origin ke semua station, di cap di MaxTime.
func (rt *RouteAlgorithm) ShortestTimes(origin string) (datastructure.TravelTimes, error) {
	tree, err := rt.Dijkstra(origin)
	if err != nil {
		return nil, err
	}
	return tree.TravelTimes(), nil
}

func ShortestTimes(origin string, g Graph) (datastructure.TravelTimes, error) {
	return NewRouteAlgorithm(g).ShortestTimes(origin)
}

func (t *ShortestPathTree) Origin() string {
	return t.g.GetNode(t.origin)
}

// Time waktu tempuh ke station, MaxTime kalau unreachable / melebihi horizon.
func (t *ShortestPathTree) Time(name string) int64 {
	idx, ok := t.g.GetNodeIDx(name)
	if !ok {
		return MaxTime
	}
	return capTime(t.dist[idx])
}

func (t *ShortestPathTree) TravelTimes() datastructure.TravelTimes {
	times := make(datastructure.TravelTimes, len(t.dist))
	for i, d := range t.dist {
		times[t.g.GetNode(int32(i))] = capTime(d)
	}
	return times
}

// Path urutan station dari origin ke target. nil kalau target tidak reachable.
func (t *ShortestPathTree) Path(target string) []string {
	idx, ok := t.g.GetNodeIDx(target)
	if !ok || t.dist[idx] < 0 {
		return nil
	}
	path := make([]string, 0)
	for curr := idx; curr != -1; curr = t.prev[curr] {
		path = append(path, t.g.GetNode(curr))
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func capTime(d int64) int64 {
	if d < 0 || d > MaxTime {
		return MaxTime
	}
	return d
}

// RenderPath encode urutan koordinat path jadi google polyline.
func RenderPath(path []datastructure.Coordinate) string {
	coords := make([][]float64, 0, len(path))
	for _, p := range path {
		coords = append(coords, []float64{p.Lat, p.Lon})
	}
	return string(polyline.EncodeCoords(coords))
}
