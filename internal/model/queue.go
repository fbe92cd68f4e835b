package model

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type QueueStatus string

const (
	QueueStatusScheduled  QueueStatus = "scheduled"
	QueueStatusInProgress QueueStatus = "in-progress"
	QueueStatusCompleted  QueueStatus = "completed"
	QueueStatusNoShow     QueueStatus = "no-show"
	QueueStatusEmergency  QueueStatus = "emergency"
)

// Valid reports whether s is one of the recognized queue statuses.
func (s QueueStatus) Valid() bool {
	switch s {
	case QueueStatusScheduled, QueueStatusInProgress, QueueStatusCompleted,
		QueueStatusNoShow, QueueStatusEmergency:
		return true
	}
	return false
}

// queueTransitions is the allowed transition table. Completed and no-show
// are terminal and have no outgoing edges.
var queueTransitions = map[QueueStatus][]QueueStatus{
	QueueStatusScheduled:  {QueueStatusInProgress, QueueStatusNoShow, QueueStatusEmergency},
	QueueStatusInProgress: {QueueStatusCompleted},
	QueueStatusEmergency:  {QueueStatusInProgress, QueueStatusCompleted},
}

// CanTransitionTo reports whether the table allows moving from s to target.
// A same-state request is not a transition; callers treat it as a no-op.
func (s QueueStatus) CanTransitionTo(target QueueStatus) bool {
	for _, allowed := range queueTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// PriorityOrder is the sort grouping for a status. Entries with an
// unrecognized status pass through with the lowest priority.
func (s QueueStatus) PriorityOrder() int {
	switch s {
	case QueueStatusInProgress:
		return 1
	case QueueStatusScheduled:
		return 2
	case QueueStatusCompleted:
		return 3
	default:
		return 4
	}
}

type AppointmentType string

const (
	AppointmentTypeScheduled AppointmentType = "scheduled"
	AppointmentTypeWalkIn    AppointmentType = "walk-in"
	AppointmentTypeEmergency AppointmentType = "emergency"
)

// AppointmentRow is the raw joined row backing a queue entry. Patient and
// doctor columns come from left joins and may be null.
type AppointmentRow struct {
	ID              uuid.UUID      `db:"id"`
	AppointmentCode string         `db:"appointment_code"`
	PatientID       *uuid.UUID     `db:"patient_id"`
	PatientName     sql.NullString `db:"patient_name"`
	Age             sql.NullInt64  `db:"age"`
	Gender          sql.NullString `db:"gender"`
	Phone           sql.NullString `db:"phone"`
	DoctorName      sql.NullString `db:"doctor_name"`
	AppointmentDate time.Time      `db:"appointment_date"`
	AppointmentTime sql.NullString `db:"appointment_time"`
	Status          QueueStatus    `db:"status"`
	Notes           sql.NullString `db:"notes"`
	CreatedAt       time.Time      `db:"created_at"`
}

// QueueEntry is the assembled, derived view of one appointment in today's
// queue. It is computed per request and never persisted.
type QueueEntry struct {
	ID              uuid.UUID       `json:"id"`
	AppointmentID   string          `json:"appointment_id"`
	PatientID       *uuid.UUID      `json:"patient_id,omitempty"`
	PatientName     string          `json:"patient_name,omitempty"`
	Age             *int            `json:"age,omitempty"`
	Gender          string          `json:"gender,omitempty"`
	Phone           string          `json:"phone,omitempty"`
	DoctorName      string          `json:"doctor_name,omitempty"`
	AppointmentDate string          `json:"appointment_date"`
	AppointmentTime *string         `json:"appointment_time,omitempty"`
	Status          QueueStatus     `json:"status"`
	AppointmentType AppointmentType `json:"appointment_type"`
	PriorityOrder   int             `json:"priority_order"`
	WaitingTime     int             `json:"waiting_time_minutes"`
	Notes           string          `json:"notes,omitempty"`
}

type QueueStats struct {
	Total          int `json:"total"`
	Waiting        int `json:"waiting"`
	InConsultation int `json:"in_consultation"`
	Completed      int `json:"completed"`
}

type DoctorAvailability struct {
	DoctorID   uuid.UUID `json:"doctor_id"`
	DoctorName string    `json:"doctor_name"`
	Status     string    `json:"status"`
	InProgress int       `json:"in_progress"`
}

// DoctorLoadRow is the per-doctor aggregate of today's in-progress
// appointments, one row per doctor-role user.
type DoctorLoadRow struct {
	DoctorID   uuid.UUID `db:"doctor_id"`
	DoctorName string    `db:"doctor_name"`
	InProgress int       `db:"in_progress"`
}

// QueueSnapshot is the full read-model returned to the reception desk.
type QueueSnapshot struct {
	Queue   []QueueEntry         `json:"queue"`
	Doctors []DoctorAvailability `json:"doctors"`
	Stats   QueueStats           `json:"stats"`
}

type UpdateQueueStatusRequest struct {
	AppointmentID  string       `json:"appointment_id" binding:"required"`
	Status         QueueStatus  `json:"status" binding:"required"`
	Notes          *string      `json:"notes"`
	ExpectedStatus *QueueStatus `json:"expected_status"`
}

type AdmitWalkInRequest struct {
	PatientID uuid.UUID `json:"patient_id" binding:"required"`
	DoctorID  uuid.UUID `json:"doctor_id" binding:"required"`
	Priority  string    `json:"priority" binding:"omitempty,oneof=normal high"`
	Notes     string    `json:"notes" binding:"max=1000"`
}

// WalkInRecord is the appointment row inserted for an unscheduled arrival.
// No appointment time is set, which makes the entry sort as a walk-in.
type WalkInRecord struct {
	ID              uuid.UUID   `db:"id"`
	AppointmentCode string      `db:"appointment_code"`
	PatientID       uuid.UUID   `db:"patient_id"`
	DoctorID        uuid.UUID   `db:"doctor_id"`
	AppointmentDate time.Time   `db:"appointment_date"`
	Status          QueueStatus `db:"status"`
	Priority        string      `db:"priority"`
	Notes           string      `db:"notes"`
	CreatedAt       time.Time   `db:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at"`
}
