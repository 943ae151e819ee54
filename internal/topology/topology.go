// Package topology builds the per-tick "who can hear whom" communication
// graph and reports its connectivity, as a diagnostic for the convergence
// assumptions CBBA and GRAPE depend on.
package topology

import (
	"fmt"
	"strconv"

	"github.com/katalvlaran/lvlath/graph"

	"github.com/elektrokombinacija/space/internal/core"
)

// ConnectivityReport summarizes one tick's communication graph.
type ConnectivityReport struct {
	Components       int
	LargestComponent int
	Isolated         []core.AgentID
}

// BuildGraph constructs the undirected communication graph for the current
// tick: an edge exists between two agents when each is within the other's
// communication radius of the other's position.
func BuildGraph(agents []*core.Agent) *graph.Graph {
	g := graph.NewGraph(false, false)
	for _, a := range agents {
		g.AddVertex(&graph.Vertex{ID: vertexID(a.ID)})
	}
	for i, a := range agents {
		for _, b := range agents[i+1:] {
			d2 := core.DistanceSq(a.Position, b.Position)
			inRangeA := a.CommunicationRadius <= 0 || d2 <= a.CommunicationRadius*a.CommunicationRadius
			inRangeB := b.CommunicationRadius <= 0 || d2 <= b.CommunicationRadius*b.CommunicationRadius
			if inRangeA && inRangeB {
				g.AddEdge(vertexID(a.ID), vertexID(b.ID), 1)
			}
		}
	}
	return g
}

// Analyze runs BFS from every unvisited vertex to count connected
// components, reporting any fully isolated agents.
func Analyze(agents []*core.Agent) (*ConnectivityReport, error) {
	g := BuildGraph(agents)
	visited := make(map[string]bool, len(agents))
	report := &ConnectivityReport{}

	for _, a := range agents {
		id := vertexID(a.ID)
		if visited[id] {
			continue
		}
		res, err := g.BFS(id, nil)
		if err != nil {
			return nil, fmt.Errorf("topology: bfs from %s: %w", id, err)
		}
		for v := range res.Visited {
			visited[v] = true
		}
		report.Components++
		if len(res.Order) > report.LargestComponent {
			report.LargestComponent = len(res.Order)
		}
		if len(res.Order) == 1 {
			report.Isolated = append(report.Isolated, a.ID)
		}
	}
	return report, nil
}

func vertexID(id core.AgentID) string {
	return strconv.Itoa(int(id))
}
