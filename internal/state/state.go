// Package state persists a summary of the last analysis so the next run can
// report how project finishes moved in between.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/joshharrison/critpath/internal/engine"
	"github.com/joshharrison/critpath/internal/task"
)

// DefaultDir is where state lives relative to the working directory.
const DefaultDir = ".critpath"

const stateFile = "state.json"

// ProjectState is the persisted outcome of one project's schedule.
type ProjectState struct {
	Status          string    `json:"status"`
	ProjectFinish   task.Date `json:"project_finish"`
	LongestPathDays int       `json:"longest_path_days"`
	CriticalPath    []string  `json:"critical_path"`
	Infeasible      bool      `json:"infeasible,omitempty"`
}

// RunState is the persisted summary of one analysis run.
type RunState struct {
	RunID       string                   `json:"run_id"`
	GeneratedAt time.Time                `json:"generated_at"`
	TotalTasks  int                      `json:"total_tasks"`
	Conflicts   int                      `json:"conflicts"`
	Projects    map[string]*ProjectState `json:"projects"`

	mu   sync.Mutex `json:"-"`
	path string     `json:"-"`
}

// Slip is the change of one project's finish between two runs.
type Slip struct {
	ProjectID string    `json:"project_id"`
	Previous  task.Date `json:"previous"`
	Current   task.Date `json:"current"`
	Days      int       `json:"days"`
}

// FromReport summarizes report for persistence under dir.
func FromReport(dir string, report *engine.Report) *RunState {
	s := &RunState{
		RunID:       report.RunID,
		GeneratedAt: report.GeneratedAt,
		Conflicts:   len(report.Conflicts),
		Projects:    make(map[string]*ProjectState, len(report.Projects)),
		path:        filepath.Join(dir, stateFile),
	}
	for _, p := range report.Projects {
		sched := p.Schedule
		s.TotalTasks += len(sched.Tasks)
		s.Projects[p.ProjectID] = &ProjectState{
			Status:          string(sched.Status),
			ProjectFinish:   sched.ProjectFinish,
			LongestPathDays: sched.LongestPathDays,
			CriticalPath:    append([]string(nil), sched.CriticalPath...),
			Infeasible:      sched.Infeasible,
		}
	}
	return s
}

// Load reads existing state from dir.
func Load(dir string) (*RunState, error) {
	path := filepath.Join(dir, stateFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}

	var s RunState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	if s.Projects == nil {
		s.Projects = make(map[string]*ProjectState)
	}
	s.path = path
	return &s, nil
}

// Exists checks if a state file exists in dir.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, stateFile))
	return err == nil
}

// Save persists the state, replacing any previous run.
func (s *RunState) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Compare lists projects whose finish moved since prev, by project id.
// Projects new in s or dropped since prev are not reported.
func (s *RunState) Compare(prev *RunState) []Slip {
	if prev == nil {
		return nil
	}

	var slips []Slip
	for id, cur := range s.Projects {
		old, ok := prev.Projects[id]
		if !ok || old.ProjectFinish.IsZero() || cur.ProjectFinish.IsZero() {
			continue
		}
		if days := old.ProjectFinish.DaysUntil(cur.ProjectFinish); days != 0 {
			slips = append(slips, Slip{
				ProjectID: id,
				Previous:  old.ProjectFinish,
				Current:   cur.ProjectFinish,
				Days:      days,
			})
		}
	}
	sort.Slice(slips, func(i, j int) bool { return slips[i].ProjectID < slips[j].ProjectID })
	return slips
}

// Clean removes the state directory.
func Clean(dir string) error {
	return os.RemoveAll(dir)
}
