package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/careops/queue-api/internal/model"
)

// All repository interfaces in one file
type (
	// QueueRepository is the sole persistence gateway for the patient
	// queue. Every read takes the day to scope to; "today" is decided by
	// the caller, not the repository.
	QueueRepository interface {
		FindDayAppointments(ctx context.Context, day time.Time) ([]*model.AppointmentRow, error)
		FindDoctorLoad(ctx context.Context, day time.Time) ([]*model.DoctorLoadRow, error)
		GetStatus(ctx context.Context, appointmentCode string) (model.QueueStatus, error)
		// UpdateStatus applies the status and notes in a single statement
		// that also stamps updated_at. When expected is non-nil the update
		// only matches rows whose current status equals it. Returns the
		// number of affected rows.
		UpdateStatus(ctx context.Context, appointmentCode string, status model.QueueStatus, notes *string, expected *model.QueueStatus) (int64, error)
		InsertWalkIn(ctx context.Context, rec *model.WalkInRecord) error
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		// ClaimPending atomically marks up to limit due events as
		// processing and returns them, skipping rows locked by
		// concurrent claimers.
		ClaimPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, retryAt *time.Time) error
		MarkDead(ctx context.Context, id uuid.UUID, errMsg string) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
