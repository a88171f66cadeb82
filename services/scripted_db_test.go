package services

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type sqlStepKind int

const (
	stepQuery sqlStepKind = iota
	stepExec
)

// sqlStep is one expected statement. A nil args slice skips argument checks.
type sqlStep struct {
	kind         sqlStepKind
	pattern      *regexp.Regexp
	args         []driver.Value
	columns      []string
	rows         [][]driver.Value
	rowsAffected int64
	err          error
}

type sqlScript struct {
	mu    sync.Mutex
	steps []*sqlStep
}

func (s *sqlScript) next(kind sqlStepKind, query string, args []driver.NamedValue) (*sqlStep, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.steps) == 0 {
		return nil, fmt.Errorf("unexpected statement: %s", query)
	}
	step := s.steps[0]
	if step.kind != kind {
		return nil, fmt.Errorf("unexpected kind for %s: got %v want %v", query, kind, step.kind)
	}
	if !step.pattern.MatchString(query) {
		return nil, fmt.Errorf("statement %q does not match %s", query, step.pattern)
	}
	if step.args != nil {
		if len(step.args) != len(args) {
			return nil, fmt.Errorf("arg count for %s: got %d want %d", query, len(args), len(step.args))
		}
		for i := range args {
			if args[i].Value != step.args[i] {
				return nil, fmt.Errorf("arg %d for %s: got %v want %v", i, query, args[i].Value, step.args[i])
			}
		}
	}
	s.steps = s.steps[1:]
	return step, nil
}

func (s *sqlScript) remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.steps)
}

type scriptDriver struct{ script *sqlScript }

func (d *scriptDriver) Open(string) (driver.Conn, error) { return &scriptConn{script: d.script}, nil }

type scriptConn struct{ script *sqlScript }

func (c *scriptConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepare not supported")
}

func (c *scriptConn) Close() error { return nil }

func (c *scriptConn) Begin() (driver.Tx, error) {
	return nil, errors.New("transactions not supported")
}

func (c *scriptConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	step, err := c.script.next(stepQuery, query, args)
	if err != nil {
		return nil, err
	}
	if step.err != nil {
		return nil, step.err
	}
	return &scriptRows{columns: step.columns, rows: step.rows}, nil
}

func (c *scriptConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	step, err := c.script.next(stepExec, query, args)
	if err != nil {
		return nil, err
	}
	if step.err != nil {
		return nil, step.err
	}
	return scriptResult{rowsAffected: step.rowsAffected}, nil
}

type scriptResult struct{ rowsAffected int64 }

func (r scriptResult) LastInsertId() (int64, error) { return 0, nil }
func (r scriptResult) RowsAffected() (int64, error) { return r.rowsAffected, nil }

type scriptRows struct {
	columns []string
	rows    [][]driver.Value
	idx     int
}

func (r *scriptRows) Columns() []string { return r.columns }
func (r *scriptRows) Close() error      { return nil }

func (r *scriptRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		return io.EOF
	}
	row := r.rows[r.idx]
	for i := range dest {
		dest[i] = nil
	}
	copy(dest, row)
	r.idx++
	return nil
}

var scriptDriverSeq atomic.Int64

func openScriptedGorm(t *testing.T, steps ...*sqlStep) (*gorm.DB, *sqlScript) {
	t.Helper()
	script := &sqlScript{steps: steps}
	name := fmt.Sprintf("paper_scripted_%d", scriptDriverSeq.Add(1))
	sql.Register(name, &scriptDriver{script: script})

	sqlDB, err := sql.Open(name, "")
	if err != nil {
		t.Fatalf("open sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Discard,
	})
	if err != nil {
		t.Fatalf("open gorm db: %v", err)
	}
	return db, script
}

func assertScriptDone(t *testing.T, script *sqlScript) {
	t.Helper()
	if n := script.remaining(); n != 0 {
		t.Fatalf("unmet statement expectations: %d", n)
	}
}
