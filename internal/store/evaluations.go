package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/labsinal/celltrack/internal/mitosis"
)

// ErrNotFound is returned when no evaluation has the requested ID.
var ErrNotFound = errors.New("evaluation not found")

// Kinds of evaluation rows.
const (
	KindEvaluate = "evaluate"
	KindBatch    = "batch"
	KindSweep    = "sweep"
)

// Evaluation is one persisted score.
type Evaluation struct {
	EvaluationID      string          `json:"evaluation_id"`
	Kind              string          `json:"kind"`
	Label             string          `json:"label"`
	GroundTruth       string          `json:"ground_truth"`
	Predicted         string          `json:"predicted"`
	TimeTolerance     float64         `json:"t_tolerance"`
	PositionTolerance float64         `json:"pos_tolerance"`
	TP                int             `json:"tp"`
	FP                int             `json:"fp"`
	FN                int             `json:"fn"`
	Precision         float64         `json:"precision"`
	Recall            float64         `json:"recall"`
	F1                float64         `json:"f1"`
	ParamsJSON        json.RawMessage `json:"params_json,omitempty"`
	CreatedAt         int64           `json:"created_at"`
}

// NewEvaluation fills an Evaluation from a scored result.
func NewEvaluation(kind, label string, tol mitosis.Tolerance, res mitosis.Result) *Evaluation {
	return &Evaluation{
		Kind:              kind,
		Label:             label,
		TimeTolerance:     tol.Time,
		PositionTolerance: tol.Position,
		TP:                res.TP,
		FP:                res.FP,
		FN:                res.FN,
		Precision:         res.Precision,
		Recall:            res.Recall,
		F1:                res.F1,
	}
}

// Created returns CreatedAt as a time.
func (e *Evaluation) Created() time.Time { return time.Unix(0, e.CreatedAt) }

// EvaluationStore reads and writes the evaluations table.
type EvaluationStore struct {
	db *sql.DB
}

// NewEvaluationStore returns a store over db.
func NewEvaluationStore(db *DB) *EvaluationStore {
	return &EvaluationStore{db: db.DB}
}

const evaluationColumns = `evaluation_id, kind, label, ground_truth, predicted,
	t_tolerance, pos_tolerance, tp, fp, fn, precision, recall, f1,
	params_json, created_at`

// Insert stores eval, assigning an ID and creation time when unset.
func (s *EvaluationStore) Insert(eval *Evaluation) error {
	if eval.EvaluationID == "" {
		eval.EvaluationID = uuid.New().String()
	}
	if eval.CreatedAt == 0 {
		eval.CreatedAt = clock.Now().UnixNano()
	}
	var params interface{}
	if len(eval.ParamsJSON) > 0 {
		params = string(eval.ParamsJSON)
	}

	return retryOnBusy(func() error {
		_, err := s.db.Exec(`INSERT INTO evaluations (`+evaluationColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			eval.EvaluationID, eval.Kind, eval.Label, eval.GroundTruth, eval.Predicted,
			eval.TimeTolerance, eval.PositionTolerance, eval.TP, eval.FP, eval.FN,
			eval.Precision, eval.Recall, eval.F1,
			params, eval.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert evaluation: %w", err)
		}
		return nil
	})
}

// InsertAll stores evals in one transaction.
func (s *EvaluationStore) InsertAll(evals []*Evaluation) error {
	now := clock.Now().UnixNano()
	for _, e := range evals {
		if e.EvaluationID == "" {
			e.EvaluationID = uuid.New().String()
		}
		if e.CreatedAt == 0 {
			e.CreatedAt = now
		}
	}
	return retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		defer tx.Rollback()

		stmt, err := tx.Prepare(`INSERT INTO evaluations (` + evaluationColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare: %w", err)
		}
		defer stmt.Close()

		for _, e := range evals {
			var params interface{}
			if len(e.ParamsJSON) > 0 {
				params = string(e.ParamsJSON)
			}
			if _, err := stmt.Exec(
				e.EvaluationID, e.Kind, e.Label, e.GroundTruth, e.Predicted,
				e.TimeTolerance, e.PositionTolerance, e.TP, e.FP, e.FN,
				e.Precision, e.Recall, e.F1,
				params, e.CreatedAt,
			); err != nil {
				return fmt.Errorf("insert evaluation %s: %w", e.EvaluationID, err)
			}
		}
		return tx.Commit()
	})
}

// Get returns the evaluation with the given ID, or ErrNotFound.
func (s *EvaluationStore) Get(evaluationID string) (*Evaluation, error) {
	row := s.db.QueryRow(`SELECT `+evaluationColumns+` FROM evaluations WHERE evaluation_id = ?`, evaluationID)
	e, err := scanEvaluation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, evaluationID)
	}
	return e, err
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	Kind  string
	Label string
	// Limit caps the number of rows; 0 means no limit.
	Limit int
}

// List returns matching evaluations, newest first.
func (s *EvaluationStore) List(f Filter) ([]*Evaluation, error) {
	var where []string
	var args []interface{}
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, f.Kind)
	}
	if f.Label != "" {
		where = append(where, "label = ?")
		args = append(args, f.Label)
	}
	q := `SELECT ` + evaluationColumns + ` FROM evaluations`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created_at DESC, evaluation_id`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query evaluations: %w", err)
	}
	defer rows.Close()

	var evals []*Evaluation
	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		evals = append(evals, e)
	}
	return evals, rows.Err()
}

// Delete removes an evaluation, returning ErrNotFound when absent.
func (s *EvaluationStore) Delete(evaluationID string) error {
	return retryOnBusy(func() error {
		result, err := s.db.Exec(`DELETE FROM evaluations WHERE evaluation_id = ?`, evaluationID)
		if err != nil {
			return fmt.Errorf("delete evaluation: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, evaluationID)
		}
		return nil
	})
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEvaluation(row scanner) (*Evaluation, error) {
	var e Evaluation
	var params sql.NullString
	err := row.Scan(
		&e.EvaluationID, &e.Kind, &e.Label, &e.GroundTruth, &e.Predicted,
		&e.TimeTolerance, &e.PositionTolerance, &e.TP, &e.FP, &e.FN,
		&e.Precision, &e.Recall, &e.F1,
		&params, &e.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan evaluation: %w", err)
	}
	if params.Valid {
		e.ParamsJSON = json.RawMessage(params.String)
	}
	return &e, nil
}
