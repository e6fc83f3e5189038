package jobstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dvdmaker/internal/job"
	"dvdmaker/internal/services"
)

// ErrNotFound is returned by Get for unknown job ids.
var ErrNotFound = errors.New("job not found")

// Record is one row of job history.
type Record struct {
	ID               string
	State            job.Stage
	Stage            job.Stage
	Percent          float64
	Message          string
	Sources          []string
	Preset           string
	Mode             string
	OutputDir        string
	WorkDir          string
	VideoBitrateKbps int
	VideoTSPath      string
	ISOPath          string
	ErrorKind        services.Kind
	ErrorMessage     string
	StartedAt        time.Time
	UpdatedAt        time.Time
	FinishedAt       time.Time
}

// timeLayout is fixed width so started_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const recordColumns = "id, state, stage, percent, message, sources_json, preset, mode, output_dir, work_dir, video_bitrate_kbps, video_ts_path, iso_path, error_kind, error_message, started_at, updated_at, finished_at"

// Start inserts the row for a job that just entered Prepare.
func (s *Store) Start(ctx context.Context, id string, req job.Request, workDir string, startedAt time.Time) error {
	sources := make([]string, len(req.Sources))
	for i, src := range req.Sources {
		sources[i] = src.Path
	}
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return fmt.Errorf("marshal sources: %w", err)
	}
	ts := startedAt.UTC().Format(timeLayout)
	_, err = s.exec(ctx,
		`INSERT INTO jobs (
            id, state, stage, percent, sources_json, preset, mode, output_dir, work_dir, started_at, updated_at
        ) VALUES (?, ?, ?, 0, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		job.StagePrepare,
		job.StagePrepare,
		string(sourcesJSON),
		nullableString(req.Preset.ID),
		nullableString(string(req.DVD.Mode)),
		nullableString(req.Output.Dir),
		nullableString(workDir),
		ts,
		ts,
	)
	if err != nil {
		return fmt.Errorf("insert job %s: %w", id, err)
	}
	return nil
}

// UpdateProgress refreshes the current stage and percentage of a job.
func (s *Store) UpdateProgress(ctx context.Context, id string, p job.Progress) error {
	_, err := s.exec(ctx,
		`UPDATE jobs SET state = ?, stage = ?, percent = ?, message = ?, updated_at = ? WHERE id = ?`,
		p.Stage,
		p.Stage,
		p.Percent,
		nullableString(p.Message),
		time.Now().UTC().Format(timeLayout),
		id,
	)
	if err != nil {
		return fmt.Errorf("update job %s: %w", id, err)
	}
	return nil
}

// Finish records the terminal result of a job.
func (s *Store) Finish(ctx context.Context, result job.Result) error {
	finished := result.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	var kind, message any
	if result.Err != nil {
		kind = string(result.ErrorKind())
		message = result.Err.Error()
	}
	ts := finished.UTC().Format(timeLayout)
	res, err := s.exec(ctx,
		`UPDATE jobs SET state = ?, video_bitrate_kbps = ?, video_ts_path = ?, iso_path = ?,
            error_kind = ?, error_message = ?, updated_at = ?, finished_at = ?
        WHERE id = ?`,
		result.State,
		result.VideoBitrateKbps,
		nullableString(result.VideoTSPath),
		nullableString(result.ISOPath),
		kind,
		message,
		ts,
		ts,
		result.JobID,
	)
	if err != nil {
		return fmt.Errorf("finish job %s: %w", result.JobID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish job %s: %w", result.JobID, ErrNotFound)
	}
	return nil
}

// Get returns the record for id.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+recordColumns+" FROM jobs WHERE id = ?", id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return rec, nil
}

// List returns up to limit records, newest first. A limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	query := "SELECT " + recordColumns + " FROM jobs ORDER BY started_at DESC, id DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// MarkInterrupted flags every unfinished row as cancelled. It returns the
// number of rows changed. Callers sharing the database with other processes
// use Claim, which only repairs when no other writer is live.
func (s *Store) MarkInterrupted(ctx context.Context) (int64, error) {
	ts := time.Now().UTC().Format(timeLayout)
	res, err := s.exec(ctx,
		`UPDATE jobs SET state = ?, error_kind = ?, error_message = ?, updated_at = ?, finished_at = ?
        WHERE finished_at IS NULL`,
		job.StageCancelled,
		string(services.KindCancelled),
		"interrupted before completion",
		ts,
		ts,
	)
	if err != nil {
		return 0, fmt.Errorf("mark interrupted jobs: %w", err)
	}
	return res.RowsAffected()
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		rec          Record
		state        string
		stage        sql.NullString
		message      sql.NullString
		sourcesJSON  string
		preset       sql.NullString
		mode         sql.NullString
		outputDir    sql.NullString
		workDir      sql.NullString
		videoTSPath  sql.NullString
		isoPath      sql.NullString
		errorKind    sql.NullString
		errorMessage sql.NullString
		startedRaw   string
		updatedRaw   string
		finishedRaw  sql.NullString
	)
	if err := scanner.Scan(
		&rec.ID,
		&state,
		&stage,
		&rec.Percent,
		&message,
		&sourcesJSON,
		&preset,
		&mode,
		&outputDir,
		&workDir,
		&rec.VideoBitrateKbps,
		&videoTSPath,
		&isoPath,
		&errorKind,
		&errorMessage,
		&startedRaw,
		&updatedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}
	rec.State = job.Stage(state)
	rec.Stage = job.Stage(stage.String)
	rec.Message = message.String
	rec.Preset = preset.String
	rec.Mode = mode.String
	rec.OutputDir = outputDir.String
	rec.WorkDir = workDir.String
	rec.VideoTSPath = videoTSPath.String
	rec.ISOPath = isoPath.String
	rec.ErrorKind = services.Kind(errorKind.String)
	rec.ErrorMessage = errorMessage.String
	if err := json.Unmarshal([]byte(sourcesJSON), &rec.Sources); err != nil {
		return nil, fmt.Errorf("decode sources: %w", err)
	}
	rec.StartedAt, _ = time.Parse(timeLayout, startedRaw)
	rec.UpdatedAt, _ = time.Parse(timeLayout, updatedRaw)
	if finishedRaw.Valid {
		rec.FinishedAt, _ = time.Parse(timeLayout, finishedRaw.String)
	}
	return &rec, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
