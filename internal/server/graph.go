package server

import (
	"time"

	"github.com/joshharrison/critpath/internal/engine"
)

// --- Graph types for dependency visualisers ---

type GraphNode struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	ProjectID  string `json:"project_id"`
	Status     string `json:"status"`
	IsCritical bool   `json:"is_critical"`
	WaveIndex  int    `json:"wave_index"`
	EarlyStart string `json:"early_start,omitempty"`
	TotalFloat int    `json:"total_float"`
}

type GraphEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type GraphMetadata struct {
	ID         string `json:"id"`
	CreatedAt  string `json:"created_at"`
	TotalTasks int    `json:"total_tasks"`
	TotalWaves int    `json:"total_waves"`
}

type Graph struct {
	Nodes        []GraphNode   `json:"nodes"`
	Edges        []GraphEdge   `json:"edges"`
	CriticalPath []string      `json:"critical_path"`
	Metadata     GraphMetadata `json:"metadata"`
}

// toGraph flattens a report into the node/edge shape graph UIs render.
// Edges only join tasks of the same project.
func toGraph(report *engine.Report) *Graph {
	g := &Graph{
		Nodes:        []GraphNode{},
		Edges:        []GraphEdge{},
		CriticalPath: []string{},
		Metadata: GraphMetadata{
			ID:        report.RunID,
			CreatedAt: report.GeneratedAt.Format(time.RFC3339),
		},
	}

	for _, p := range report.Projects {
		s := p.Schedule
		ids := make(map[string]bool, len(p.Tasks))
		for _, t := range p.Tasks {
			ids[t.ID] = true
		}

		for _, t := range p.Tasks {
			node := GraphNode{
				ID:        t.ID,
				Title:     t.Name,
				ProjectID: p.ProjectID,
				Status:    string(t.Status),
			}
			if ts, ok := s.Tasks[t.ID]; ok {
				node.IsCritical = ts.IsCritical
				node.WaveIndex = ts.Wave
				node.EarlyStart = ts.EarlyStart.String()
				node.TotalFloat = ts.TotalFloat
			}
			g.Nodes = append(g.Nodes, node)

			seen := make(map[string]bool, len(t.PredecessorIDs))
			for _, pred := range t.PredecessorIDs {
				if ids[pred] && !seen[pred] {
					seen[pred] = true
					g.Edges = append(g.Edges, GraphEdge{From: pred, To: t.ID})
				}
			}
		}

		g.CriticalPath = append(g.CriticalPath, s.CriticalPath...)
		g.Metadata.TotalTasks += len(p.Tasks)
		g.Metadata.TotalWaves += len(s.Waves)
	}
	return g
}
