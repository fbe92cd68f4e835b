package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/careops/queue-api/internal/model"
	apperrors "github.com/careops/queue-api/pkg/errors"
)

func (r *queueRepository) FindDayAppointments(ctx context.Context, day time.Time) ([]*model.AppointmentRow, error) {
	query := `
		SELECT a.id, a.appointment_code, a.patient_id,
			   p.name AS patient_name, p.age, p.gender, p.phone,
			   u.name AS doctor_name,
			   a.appointment_date, a.appointment_time, a.status, a.notes,
			   a.created_at
		FROM appointments a
		LEFT JOIN patients p ON p.id = a.patient_id
		LEFT JOIN users u ON u.id = a.doctor_id AND u.role = 'doctor'
		WHERE a.appointment_date = $1
		ORDER BY a.created_at ASC, a.id ASC
	`
	var rows []*model.AppointmentRow
	err := r.db.SelectContext(ctx, &rows, query, day.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to find day appointments: %w", err)
	}
	return rows, nil
}

func (r *queueRepository) FindDoctorLoad(ctx context.Context, day time.Time) ([]*model.DoctorLoadRow, error) {
	query := `
		SELECT u.id AS doctor_id, u.name AS doctor_name,
			   COUNT(a.id) FILTER (WHERE a.status = 'in-progress') AS in_progress
		FROM users u
		LEFT JOIN appointments a
			ON a.doctor_id = u.id AND a.appointment_date = $1
		WHERE u.role = 'doctor'
		GROUP BY u.id, u.name
		ORDER BY u.name ASC
	`
	var rows []*model.DoctorLoadRow
	err := r.db.SelectContext(ctx, &rows, query, day.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to find doctor load: %w", err)
	}
	return rows, nil
}

func (r *queueRepository) GetStatus(ctx context.Context, appointmentCode string) (model.QueueStatus, error) {
	query := `
		SELECT status FROM appointments WHERE appointment_code = $1
	`
	var status model.QueueStatus
	err := r.db.GetContext(ctx, &status, query, appointmentCode)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperrors.NotFound("appointment", err)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get appointment status: %w", err)
	}
	return status, nil
}

func (r *queueRepository) UpdateStatus(ctx context.Context, appointmentCode string, status model.QueueStatus, notes *string, expected *model.QueueStatus) (int64, error) {
	// Status, notes and updated_at move in one statement so the stamp is
	// atomic with the transition.
	query := `
		UPDATE appointments
		SET status = $1,
			notes = COALESCE($2, notes),
			updated_at = NOW()
		WHERE appointment_code = $3
	`
	args := []interface{}{status, notes, appointmentCode}

	if expected != nil {
		query += " AND status = $4"
		args = append(args, *expected)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update appointment status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}

func (r *queueRepository) InsertWalkIn(ctx context.Context, rec *model.WalkInRecord) error {
	query := `
		INSERT INTO appointments (
			id, appointment_code, patient_id, doctor_id,
			appointment_date, appointment_time, status, priority, notes,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, NULL, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.AppointmentCode,
		rec.PatientID,
		rec.DoctorID,
		rec.AppointmentDate.Format("2006-01-02"),
		rec.Status,
		rec.Priority,
		rec.Notes,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return apperrors.Conflict("appointment code already exists")
		}
		return fmt.Errorf("failed to insert walk-in appointment: %w", err)
	}
	return nil
}
