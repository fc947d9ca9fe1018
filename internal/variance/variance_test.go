package variance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshharrison/critpath/internal/cpm"
	"github.com/joshharrison/critpath/internal/task"
)

func datePtr(s string) *task.Date {
	d := task.MustParseDate(s)
	return &d
}

func TestAnalyze(t *testing.T) {
	tasks := []task.Task{
		{ID: "a", StartDate: task.MustParseDate("2026-03-01"), DurationDays: 12,
			BaselineStart: datePtr("2026-03-01"), BaselineEnd: datePtr("2026-03-11")},
		{ID: "b", PredecessorIDs: []string{"a"}, DurationDays: 10,
			BaselineStart: datePtr("2026-03-11")},
		{ID: "c", PredecessorIDs: []string{"b"}, DurationDays: 3},
	}

	result := cpm.Analyze("p1", tasks)
	got := Analyze(tasks, result)

	require.Len(t, got, 2)

	assert.Equal(t, "a", got[0].TaskID)
	assert.Equal(t, 0, got[0].StartVarianceDays)
	assert.Equal(t, 2, got[0].FinishVarianceDays)
	assert.True(t, got[0].Slipping())

	assert.Equal(t, "b", got[1].TaskID)
	assert.Equal(t, "2026-03-21", got[1].BaselineEnd.String())
	assert.Equal(t, 2, got[1].StartVarianceDays)
	assert.Equal(t, 2, got[1].FinishVarianceDays)
	assert.True(t, got[1].IsCritical)
}

func TestAnalyze_AheadOfBaseline(t *testing.T) {
	tasks := []task.Task{
		{ID: "a", StartDate: task.MustParseDate("2026-03-05"), DurationDays: 2,
			BaselineStart: datePtr("2026-03-08"), BaselineEnd: datePtr("2026-03-10")},
	}

	got := Analyze(tasks, cpm.Analyze("p1", tasks))

	require.Len(t, got, 1)
	assert.Equal(t, -3, got[0].StartVarianceDays)
	assert.Equal(t, -3, got[0].FinishVarianceDays)
	assert.False(t, got[0].Slipping())
}

func TestAnalyze_NoBaseline(t *testing.T) {
	tasks := []task.Task{{ID: "a", StartDate: task.MustParseDate("2026-03-05"), DurationDays: 2}}

	assert.Empty(t, Analyze(tasks, cpm.Analyze("p1", tasks)))
	assert.Empty(t, Analyze(tasks, nil))
}
