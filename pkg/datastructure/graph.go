package datastructure

import (
	"sort"
)

type StationKind string

const (
	StationKindRail    StationKind = "station"
	StationKindPort    StationKind = "port"
	StationKindDerived StationKind = "derived"
)

type ConnectionKind string

const (
	ConnectionKindRail      ConnectionKind = "rail"
	ConnectionKindFerry     ConnectionKind = "ferry"
	ConnectionKindAdHoc     ConnectionKind = "adhoc"
	ConnectionKindOvernight ConnectionKind = "overnight"
)

// display colors, same palette the map surface uses for lines and stop outlines.
const (
	ColorRail      = "red"
	ColorFerry     = "blue"
	ColorResolved  = "green"
	ColorDerived   = "red"
	ColorAdHoc     = "red"
	ColorOvernight = "green"
)

type Station struct {
	Name        string      `json:"name"`
	Lat         float64     `json:"lat"`
	Lon         float64     `json:"lon"`
	HasLocation bool        `json:"has_location"`
	Kind        StationKind `json:"kind"`
	Color       string      `json:"color"`
}

// Connection undirected travel leg antara 2 station. Weight dalam detik.
type Connection struct {
	Name   string         `json:"name"`
	Route  string         `json:"route,omitempty"`
	From   string         `json:"from"`
	To     string         `json:"to"`
	Weight int64          `json:"weight"`
	Kind   ConnectionKind `json:"kind"`
	Color  string         `json:"color"`
}

type EdgePair struct {
	Weight    int64
	ToNodeIDX int32
}

// Adjacency directed fold dari connections, key pertama = from station, key kedua = to station.
type Adjacency map[string]map[string]int64

func NewAdjacency() Adjacency {
	return make(Adjacency)
}

// Add tambah arc from->to. Kalau arc sudah ada (parallel connection), yang disimpan weight paling kecil.
func (a Adjacency) Add(from, to string, weight int64) {
	if from == to {
		return
	}
	out, ok := a[from]
	if !ok {
		out = make(map[string]int64)
		a[from] = out
	}
	if curr, ok := out[to]; !ok || weight < curr {
		out[to] = weight
	}
}

func (a Adjacency) Has(from, to string) bool {
	_, ok := a[from][to]
	return ok
}

func (a Adjacency) Weight(from, to string) (int64, bool) {
	w, ok := a[from][to]
	return w, ok
}

// Graph adjacency list yang sudah di index pakai int32, urutan node = urutan registrasi station.
type Graph struct {
	Nodes    []string
	NodeIDx  map[string]int32
	OutEdges [][]EdgePair
}

func NewGraph(stations []string, adj Adjacency) *Graph {
	g := &Graph{
		Nodes:    make([]string, len(stations)),
		NodeIDx:  make(map[string]int32, len(stations)),
		OutEdges: make([][]EdgePair, len(stations)),
	}
	copy(g.Nodes, stations)
	for i, name := range stations {
		g.NodeIDx[name] = int32(i)
	}

	for from, out := range adj {
		fromIDx, ok := g.NodeIDx[from]
		if !ok {
			continue
		}
		edges := make([]EdgePair, 0, len(out))
		for to, weight := range out {
			toIDx, ok := g.NodeIDx[to]
			if !ok {
				continue
			}
			edges = append(edges, EdgePair{Weight: weight, ToNodeIDX: toIDx})
		}
		// map iteration order random, sort biar traversal deterministic
		sort.Slice(edges, func(i, j int) bool {
			return edges[i].ToNodeIDX < edges[j].ToNodeIDX
		})
		g.OutEdges[fromIDx] = edges
	}
	return g
}

func (g *Graph) GetNumNodes() int {
	return len(g.Nodes)
}

func (g *Graph) GetNode(nodeIDx int32) string {
	return g.Nodes[nodeIDx]
}

func (g *Graph) GetNodeIDx(name string) (int32, bool) {
	idx, ok := g.NodeIDx[name]
	return idx, ok
}

func (g *Graph) GetOutEdges(nodeIDx int32) []EdgePair {
	return g.OutEdges[nodeIDx]
}

func (g *Graph) GetWeight(from, to string) (int64, bool) {
	fromIDx, ok := g.NodeIDx[from]
	if !ok {
		return 0, false
	}
	toIDx, ok := g.NodeIDx[to]
	if !ok {
		return 0, false
	}
	for _, e := range g.OutEdges[fromIDx] {
		if e.ToNodeIDX == toIDx {
			return e.Weight, true
		}
	}
	return 0, false
}
