package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/printlink/internal/infrastructure/database"
)

// Status is the lifecycle state of a recorded print job.
type Status string

const (
	// StatusStarted means the device accepted the start-print request.
	StatusStarted Status = "started"

	// StatusCompleted means the job finished normally.
	StatusCompleted Status = "completed"

	// StatusFailed means the device reported a failure.
	StatusFailed Status = "failed"

	// StatusStopped means the job was stopped by the user.
	StatusStopped Status = "stopped"
)

// Job is one recorded print job.
type Job struct {
	// ID is the job identifier (job-xxxxxxxxxxxxxxxx).
	ID string

	// FileName is the sliced file's original name.
	FileName string

	// RemotePath is where the file was uploaded on the device.
	RemotePath string

	// SlotMapping is the material slot assignment sent with the start
	// request, profile order.
	SlotMapping []int

	// UseAMS records whether automatic material feeding was requested.
	UseAMS bool

	Status     Status
	StartedAt  time.Time
	FinishedAt *time.Time

	// Error holds the failure detail for terminal failures, "" otherwise.
	Error string
}

// Repository provides access to the print-job table.
type Repository struct {
	db *database.DB
}

// NewRepository creates a repository backed by the given database.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new job record.
//
// When the job has no ID one is generated; a zero StartedAt becomes
// the current time and an empty status becomes StatusStarted.
func (r *Repository) Create(ctx context.Context, job *Job) error {
	if job.ID == "" {
		job.ID = "job-" + uuid.NewString()[:16]
	}
	if job.StartedAt.IsZero() {
		job.StartedAt = time.Now().UTC()
	}
	if job.Status == "" {
		job.Status = StatusStarted
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO print_jobs (id, file_name, remote_path, slot_mapping, use_ams, status, started_at, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.FileName,
		job.RemotePath,
		encodeMapping(job.SlotMapping),
		job.UseAMS,
		string(job.Status),
		job.StartedAt.Format(time.RFC3339),
		job.Error,
	)
	if err != nil {
		return fmt.Errorf("inserting print job: %w", err)
	}
	return nil
}

// Finish marks a job terminal.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - id: The job ID
//   - status: The terminal status
//   - detail: Failure detail, "" for clean completion
func (r *Repository) Finish(ctx context.Context, id string, status Status, detail string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE print_jobs SET status = ?, finished_at = ?, error = ? WHERE id = ?`,
		string(status),
		time.Now().UTC().Format(time.RFC3339),
		detail,
		id,
	)
	if err != nil {
		return fmt.Errorf("updating print job: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return nil
}

// GetByID returns one job.
func (r *Repository) GetByID(ctx context.Context, id string) (*Job, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, file_name, remote_path, slot_mapping, use_ams, status, started_at, finished_at, error
		FROM print_jobs WHERE id = ?`, id)

	job, err := scanJob(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("reading print job: %w", err)
	}
	return job, nil
}

// ListRecent returns the most recently started jobs, newest first.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]Job, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, file_name, remote_path, slot_mapping, use_ams, status, started_at, finished_at, error
		FROM print_jobs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing print jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning print job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating print jobs: %w", err)
	}
	return jobs, nil
}

// scanJob reads one row through the given scan function.
func scanJob(scan func(...any) error) (*Job, error) {
	var (
		job        Job
		mapping    string
		status     string
		startedAt  string
		finishedAt sql.NullString
		jobErr     sql.NullString
	)
	if err := scan(&job.ID, &job.FileName, &job.RemotePath, &mapping, &job.UseAMS,
		&status, &startedAt, &finishedAt, &jobErr); err != nil {
		return nil, err
	}

	job.SlotMapping = decodeMapping(mapping)
	job.Status = Status(status)
	job.Error = jobErr.String

	// Timestamps are written by this package in RFC3339; parse errors
	// here mean external tampering and surface as zero times.
	job.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
	if finishedAt.Valid {
		if t, err := time.Parse(time.RFC3339, finishedAt.String); err == nil {
			job.FinishedAt = &t
		}
	}
	return &job, nil
}

// encodeMapping stores the slot mapping as comma-joined text.
func encodeMapping(mapping []int) string {
	parts := make([]string, len(mapping))
	for i, v := range mapping {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

// decodeMapping reverses encodeMapping.
func decodeMapping(s string) []int {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	mapping := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			continue
		}
		mapping = append(mapping, v)
	}
	return mapping
}
