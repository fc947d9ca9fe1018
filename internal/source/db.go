package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/tidwall/gjson"

	"github.com/joshharrison/critpath/internal/task"
)

// ErrMissingColumn is returned when a query result has no id column.
var ErrMissingColumn = errors.New("query result has no id column")

// SQLiteSchema creates a tasks table matching the default query.
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	project_id TEXT,
	start_date TEXT,
	end_date TEXT,
	duration_days INTEGER NOT NULL DEFAULT 0,
	predecessor_ids TEXT,
	lag_days INTEGER NOT NULL DEFAULT 0,
	assigned_resources TEXT,
	status TEXT,
	baseline_start TEXT,
	baseline_end TEXT
);
`

// DBOptions selects a database and the query returning task rows.
type DBOptions struct {
	Driver string // "sqlite3" or "postgres"
	DSN    string
	Query  string
}

// LoadDB runs opts.Query against the database and maps each row to a task.
// Columns are matched by name; unknown columns are ignored.
func LoadDB(ctx context.Context, opts DBOptions) ([]task.Task, error) {
	db, err := sql.Open(opts.Driver, opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return Query(ctx, db, opts.Query)
}

// Query runs query on db and scans the rows into tasks.
func Query(ctx context.Context, db *sql.DB, query string) ([]task.Task, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	tasks, err := scanTasks(rows)
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// columnSetter writes one non-NULL column value onto a task.
type columnSetter func(t *task.Task, v string) error

var columnSetters = map[string]columnSetter{
	"id":         func(t *task.Task, v string) error { t.ID = v; return nil },
	"name":       func(t *task.Task, v string) error { t.Name = v; return nil },
	"project_id": func(t *task.Task, v string) error { t.ProjectID = v; return nil },
	"status":     func(t *task.Task, v string) error { t.Status = task.Status(v); return nil },
	"start_date": dateSetter(func(t *task.Task, d task.Date) { t.StartDate = d }),
	"end_date":   dateSetter(func(t *task.Task, d task.Date) { t.EndDate = d }),
	"baseline_start": dateSetter(func(t *task.Task, d task.Date) {
		if !d.IsZero() {
			t.BaselineStart = &d
		}
	}),
	"baseline_end": dateSetter(func(t *task.Task, d task.Date) {
		if !d.IsZero() {
			t.BaselineEnd = &d
		}
	}),
	"duration_days":      intSetter(func(t *task.Task, n int) { t.DurationDays = n }),
	"lag_days":           intSetter(func(t *task.Task, n int) { t.LagDays = n }),
	"predecessor_ids":    func(t *task.Task, v string) error { t.PredecessorIDs = ParseList(v); return nil },
	"assigned_resources": func(t *task.Task, v string) error { t.AssignedResources = ParseList(v); return nil },
}

func dateSetter(set func(*task.Task, task.Date)) columnSetter {
	return func(t *task.Task, v string) error {
		d, err := task.ParseDate(v)
		if err != nil {
			return err
		}
		set(t, d)
		return nil
	}
}

func intSetter(set func(*task.Task, int)) columnSetter {
	return func(t *task.Task, v string) error {
		v = strings.TrimSpace(v)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			f, ferr := strconv.ParseFloat(v, 64)
			if ferr != nil {
				return fmt.Errorf("parse integer %q: %w", v, err)
			}
			n = int(f)
		}
		set(t, n)
		return nil
	}
}

func scanTasks(rows *sql.Rows) ([]task.Task, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	setters := make([]columnSetter, len(cols))
	hasID := false
	for i, c := range cols {
		name := strings.ToLower(c)
		setters[i] = columnSetters[name]
		if name == "id" {
			hasID = true
		}
	}
	if !hasID {
		return nil, ErrMissingColumn
	}

	values := make([]sql.NullString, len(cols))
	dest := make([]any, len(cols))
	for i := range values {
		dest[i] = &values[i]
	}

	var tasks []task.Task
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan task row: %w", err)
		}
		var t task.Task
		for i, set := range setters {
			if set == nil || !values[i].Valid {
				continue
			}
			if err := set(&t, values[i].String); err != nil {
				return nil, fmt.Errorf("task row %d column %s: %w", len(tasks)+1, cols[i], err)
			}
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate task rows: %w", err)
	}
	return tasks, nil
}

// ParseList reads a list column stored as a JSON array, a Postgres array
// literal, or comma separated text.
func ParseList(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}

	var out []string
	if strings.HasPrefix(v, "[") && gjson.Valid(v) {
		gjson.Parse(v).ForEach(func(_, item gjson.Result) bool {
			if s := strings.TrimSpace(item.String()); s != "" {
				out = append(out, s)
			}
			return true
		})
		return out
	}

	v = strings.TrimSuffix(strings.TrimPrefix(v, "{"), "}")
	for _, part := range strings.Split(v, ",") {
		part = strings.Trim(strings.TrimSpace(part), `"`)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
