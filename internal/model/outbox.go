package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusProcessing OutboxStatus = "processing"
	OutboxStatusProcessed  OutboxStatus = "processed"
	OutboxStatusFailed     OutboxStatus = "failed"
	OutboxStatusDead       OutboxStatus = "dead"
)

// Queue event types published through the outbox.
const (
	EventQueueStatusChanged = "queue.status_changed"
	EventQueueWalkIn        = "queue.walkin_admitted"
)

type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       OutboxStatus    `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
	RetryAt      *time.Time      `db:"retry_at" json:"retry_at,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// StatusChangedPayload is the body of a queue.status_changed event.
type StatusChangedPayload struct {
	AppointmentID string      `json:"appointment_id"`
	From          QueueStatus `json:"from"`
	To            QueueStatus `json:"to"`
	ChangedAt     time.Time   `json:"changed_at"`
}

// WalkInPayload is the body of a queue.walkin_admitted event.
type WalkInPayload struct {
	AppointmentID string    `json:"appointment_id"`
	PatientID     uuid.UUID `json:"patient_id"`
	DoctorID      uuid.UUID `json:"doctor_id"`
	AdmittedAt    time.Time `json:"admitted_at"`
}
