package connector

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/loykin/apicontract/internal/common"
)

// SQLStore holds the run-history SQL shared by every driver. Driver stores
// embed it and provide Connect/Load/Validate.
type SQLStore struct {
	DB      *sql.DB
	Dialect Dialect
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// Ensure creates the runs and extracted tables
func (s *SQLStore) Ensure(th TableNames) error {
	logger := common.GetLogger().WithStore(s.Dialect.GetDriverName())
	logger.Debug("ensuring database schema", "tables", []string{th.Runs, th.Extracted})

	for i, q := range s.Dialect.GetEnsureStatements(th) {
		logger.Debug("executing schema creation statement", "table_index", i+1, "sql", q)
		if _, err := s.DB.Exec(q); err != nil {
			logger.Error("failed to create table in schema setup", "error", err, "table_index", i+1)
			return fmt.Errorf("failed to create table %d in schema setup: %w", i+1, err)
		}
	}
	logger.Debug("database schema ensured")
	return nil
}

func (s *SQLStore) placeholders(from, n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = s.Dialect.GetPlaceholder(from + i)
	}
	return strings.Join(ph, ", ")
}

// RecordRun inserts a run row followed by one row per extracted value, in a
// single transaction.
func (s *SQLStore) RecordRun(th TableNames, run Run) (int64, error) {
	logger := common.GetLogger().WithStore(s.Dialect.GetDriverName()).WithSuite(run.Suite, run.Case)

	if run.RanAt.IsZero() {
		run.RanAt = time.Now().UTC()
	}
	failures := run.Failures
	if failures == nil {
		failures = []string{}
	}
	failuresJSON, err := json.Marshal(failures)
	if err != nil {
		return 0, fmt.Errorf("failed to encode failures: %w", err)
	}

	tx, err := s.DB.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// #nosec G201 -- table names come from configuration, values are bound
	q := fmt.Sprintf("INSERT INTO %s(suite, case_name, method, url, status_code, elapsed_ms, passed, failures_json, ran_at) VALUES(%s)%s",
		th.Runs, s.placeholders(1, 9), s.Dialect.GetReturningClause())
	args := []interface{}{
		run.Suite, run.Case, run.Method, run.URL, run.StatusCode, run.ElapsedMS,
		s.Dialect.ConvertBoolToStorage(run.Passed), string(failuresJSON),
		s.Dialect.ConvertTimeToStorage(run.RanAt),
	}

	var id int64
	if s.Dialect.GetReturningClause() != "" {
		if err := tx.QueryRow(q, args...).Scan(&id); err != nil {
			logger.Error("failed to record run", "error", err)
			return 0, fmt.Errorf("failed to record run: %w", err)
		}
	} else {
		res, err := tx.Exec(q, args...)
		if err != nil {
			logger.Error("failed to record run", "error", err)
			return 0, fmt.Errorf("failed to record run: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return 0, fmt.Errorf("failed to read run id: %w", err)
		}
	}

	if len(run.Extracted) > 0 {
		// #nosec G201 -- table names come from configuration, values are bound
		eq := fmt.Sprintf("INSERT INTO %s(run_id, name, value) VALUES(%s)", th.Extracted, s.placeholders(1, 3))
		names := make([]string, 0, len(run.Extracted))
		for k := range run.Extracted {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, name := range names {
			if _, err := tx.Exec(eq, id, name, run.Extracted[name]); err != nil {
				return 0, fmt.Errorf("failed to record extracted value %s: %w", name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	logger.Debug("run recorded", "id", id, "passed", run.Passed)
	return id, nil
}

// ListRuns returns recorded runs, newest first.
func (s *SQLStore) ListRuns(th TableNames, suite string, limit int) ([]Run, error) {
	// #nosec G201 -- table names come from configuration, values are bound
	q := fmt.Sprintf("SELECT id, suite, case_name, method, url, status_code, elapsed_ms, passed, failures_json, ran_at FROM %s", th.Runs)
	var args []interface{}
	if suite != "" {
		args = append(args, suite)
		q += " WHERE suite = " + s.Dialect.GetPlaceholder(len(args))
	}
	q += " ORDER BY id DESC"
	if limit > 0 {
		args = append(args, limit)
		q += " LIMIT " + s.Dialect.GetPlaceholder(len(args))
	}

	rows, err := s.DB.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var (
			r            Run
			passed       interface{}
			failuresJSON sql.NullString
			ranAt        interface{}
		)
		if err := rows.Scan(&r.ID, &r.Suite, &r.Case, &r.Method, &r.URL, &r.StatusCode, &r.ElapsedMS, &passed, &failuresJSON, &ranAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Passed = s.Dialect.ConvertBoolFromStorage(passed)
		r.RanAt = s.Dialect.ConvertTimeFromStorage(ranAt)
		r.Failures = []string{}
		if failuresJSON.Valid && failuresJSON.String != "" {
			if err := json.Unmarshal([]byte(failuresJSON.String), &r.Failures); err != nil {
				return nil, fmt.Errorf("failed to decode failures of run %d: %w", r.ID, err)
			}
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	// rows must be closed before the next query on single-connection pools
	_ = rows.Close()

	for i := range runs {
		ex, err := s.loadExtracted(th, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Extracted = ex
	}
	return runs, nil
}

func (s *SQLStore) loadExtracted(th TableNames, runID int64) (map[string]string, error) {
	// #nosec G201 -- table names come from configuration, values are bound
	q := fmt.Sprintf("SELECT name, value FROM %s WHERE run_id = %s", th.Extracted, s.Dialect.GetPlaceholder(1))
	rows, err := s.DB.Query(q, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load extracted values for run %d: %w", runID, err)
	}
	defer func() { _ = rows.Close() }()

	out := map[string]string{}
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("failed to scan extracted value: %w", err)
		}
		out[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating extracted values: %w", err)
	}
	return out, nil
}
