package planner

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"qzone-agent/internal/domain"
	"qzone-agent/internal/ports/output"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// Compile-time check to ensure SQLiteProvider implements the output port
var _ output.ActivityProvider = (*SQLiteProvider)(nil)

// SQLiteProvider struct - Output adapter reading the persona's day plan from
// the planning collaborator's SQLite goals database. The database is owned
// and written by the planner; this provider only reads it.
type SQLiteProvider struct {
	dbPath string
	now    func() time.Time
}

// NewSQLiteProvider func - Creates an activity provider over the goals
// database at dbPath.
func NewSQLiteProvider(dbPath string) *SQLiteProvider {
	logrus.Infof("Planner activity provider initialized, db: %s", dbPath)
	return &SQLiteProvider{dbPath: dbPath, now: time.Now}
}

type goalRow struct {
	Name        sql.NullString
	Description sql.NullString
	GoalType    sql.NullString
	Parameters  sql.NullString
}

// CurrentActivity returns today's active goal whose time window covers the
// current minute, falling back to the newest active goal. A missing database
// or no goals for today yields (nil, nil).
func (p *SQLiteProvider) CurrentActivity(ctx context.Context) (*domain.Activity, error) {
	if p.dbPath == "" {
		return nil, nil
	}
	if _, err := os.Stat(p.dbPath); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("checking planner db: %w", err)
	}

	db, err := sql.Open("sqlite3", p.dbPath+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("opening planner db: %w", err)
	}
	defer db.Close()

	now := p.now()
	rows, err := db.QueryContext(ctx, `
		SELECT name, description, goal_type, parameters FROM goals
		WHERE status = 'active'
		AND substr(created_at, 1, 10) = ?
		ORDER BY created_at DESC
		LIMIT 20
	`, now.Format(domain.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("querying goals: %w", err)
	}
	defer rows.Close()

	var goals []goalRow
	for rows.Next() {
		var row goalRow
		if err := rows.Scan(&row.Name, &row.Description, &row.GoalType, &row.Parameters); err != nil {
			return nil, fmt.Errorf("scanning goal row: %w", err)
		}
		goals = append(goals, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading goal rows: %w", err)
	}
	if len(goals) == 0 {
		return nil, nil
	}

	currentMinutes := now.Hour()*60 + now.Minute()
	for i := range goals {
		if window, ok := timeWindow(goals[i].Parameters); ok && window.covers(currentMinutes) {
			return toActivity(goals[i], now), nil
		}
	}

	// No window matched the current minute; the newest goal stands in.
	return toActivity(goals[0], now), nil
}

type minuteWindow struct {
	start, end int
}

// covers handles windows wrapping past midnight the same way silent windows
// do.
func (w minuteWindow) covers(current int) bool {
	if w.end < w.start {
		return current >= w.start || current <= w.end
	}
	return current >= w.start && current <= w.end
}

// timeWindow extracts the optional [start, end] minute pair from the goal's
// parameters JSON. Malformed parameters are treated as "no window".
func timeWindow(params sql.NullString) (minuteWindow, bool) {
	if !params.Valid || params.String == "" {
		return minuteWindow{}, false
	}
	var decoded struct {
		TimeWindow []int `json:"time_window"`
	}
	if err := json.Unmarshal([]byte(params.String), &decoded); err != nil {
		return minuteWindow{}, false
	}
	if len(decoded.TimeWindow) != 2 {
		return minuteWindow{}, false
	}
	return minuteWindow{start: decoded.TimeWindow[0], end: decoded.TimeWindow[1]}, true
}

func toActivity(row goalRow, now time.Time) *domain.Activity {
	description := row.Description.String
	if description == "" {
		description = row.Name.String
	}
	if description == "" {
		description = "daily routine"
	}
	return &domain.Activity{
		Kind:        domain.ClassifyActivity(row.GoalType.String, description),
		Description: description,
		TimePoint:   now.Format(domain.ClockLayout),
	}
}
