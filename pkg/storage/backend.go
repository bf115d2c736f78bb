package storage

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"primegap/pkg/common"
)

// Observation 是 run log 中的一行: 一次 survey 中某个素数的预测结果
type Observation struct {
	RunID       string
	Calibration string
	common.Record
}

type Backend interface {
	Write(obs Observation) error
	BatchWrite(obs []Observation) error
	Read(runID string, index int) (Observation, bool, error)
	LoadAll(runID string) ([]Observation, error)
	Runs() ([]string, error)
	Close() error
	Truncate() error
}

type SQLiteBackend struct {
	db *sql.DB
	mu sync.Mutex
}

const insertObservation = `INSERT OR REPLACE INTO observations
	(run_id, idx, value, predicted, actual, regime, raw, calibration)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	query := `
	CREATE TABLE IF NOT EXISTS observations (
		run_id      TEXT    NOT NULL,
		idx         INTEGER NOT NULL,
		value       INTEGER NOT NULL,
		predicted   INTEGER NOT NULL,
		actual      INTEGER NOT NULL,
		regime      TEXT    NOT NULL,
		raw         REAL    NOT NULL,
		calibration TEXT    NOT NULL,
		PRIMARY KEY (run_id, idx)
	);`
	if _, err := db.Exec(query); err != nil {
		db.Close()
		return nil, fmt.Errorf("init observations table: %w", err)
	}

	_, err = db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL; 
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}

	return &SQLiteBackend{db: db}, nil
}

func (s *SQLiteBackend) Write(obs Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(insertObservation, args(obs)...)
	return err
}

func (s *SQLiteBackend) BatchWrite(batch []Observation) error {
	if len(batch) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(insertObservation)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, obs := range batch {
		if _, err := stmt.Exec(args(obs)...); err != nil {
			tx.Rollback()
			return fmt.Errorf("write %s P_%d: %w", obs.RunID, obs.Index, err)
		}
	}

	return tx.Commit()
}

func args(obs Observation) []interface{} {
	return []interface{}{
		obs.RunID, obs.Index, obs.Value, obs.Predicted, obs.Actual,
		obs.Regime.String(), obs.Raw, obs.Calibration,
	}
}

const selectObservation = `SELECT run_id, idx, value, predicted, actual, regime, raw, calibration FROM observations`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanObservation(row scanner) (Observation, error) {
	var obs Observation
	var regime string
	err := row.Scan(&obs.RunID, &obs.Index, &obs.Value, &obs.Predicted, &obs.Actual,
		&regime, &obs.Raw, &obs.Calibration)
	if err != nil {
		return Observation{}, err
	}
	if obs.Regime, err = common.ParseRegime(regime); err != nil {
		return Observation{}, err
	}
	obs.Covered = obs.HasActual() && obs.Predicted >= obs.Actual
	return obs, nil
}

func (s *SQLiteBackend) Read(runID string, index int) (Observation, bool, error) {
	row := s.db.QueryRow(selectObservation+" WHERE run_id = ? AND idx = ?", runID, index)
	obs, err := scanObservation(row)
	if err == sql.ErrNoRows {
		return Observation{}, false, nil
	}
	if err != nil {
		return Observation{}, false, err
	}
	return obs, true, nil
}

func (s *SQLiteBackend) LoadAll(runID string) ([]Observation, error) {
	rows, err := s.db.Query(selectObservation+" WHERE run_id = ? ORDER BY idx ASC", runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Observation
	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, obs)
	}
	return out, rows.Err()
}

// Runs lists run ids in the order they were first written.
func (s *SQLiteBackend) Runs() ([]string, error) {
	rows, err := s.db.Query("SELECT run_id FROM observations GROUP BY run_id ORDER BY MIN(rowid)")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteBackend) Truncate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec("DELETE FROM observations")
	return err
}

func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}
