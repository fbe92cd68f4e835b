package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/careops/queue-api/internal/model"
	"github.com/careops/queue-api/internal/repository"
	apperrors "github.com/careops/queue-api/pkg/errors"
	"github.com/careops/queue-api/pkg/metrics"
)

const (
	// DefaultEmergencyMarker is matched case-insensitively against free-text
	// notes. A dedicated column would be more robust, but upstream
	// schedulers still write prose notes.
	DefaultEmergencyMarker = "emergency"

	DefaultWalkInNote = "Walk-in patient"

	DefaultWalkInPriority = "normal"
)

type Config struct {
	EmergencyMarker string
	WalkInNote      string
	// Now supplies the clock; injected so "today" is testable.
	Now func() time.Time
}

type Service struct {
	repo       repository.QueueRepository
	outbox     repository.OutboxRepository
	metrics    *metrics.Metrics
	now        func() time.Time
	marker     string
	walkInNote string
}

func NewService(repo repository.QueueRepository, outbox repository.OutboxRepository, m *metrics.Metrics, cfg Config) *Service {
	if cfg.EmergencyMarker == "" {
		cfg.EmergencyMarker = DefaultEmergencyMarker
	}
	if cfg.WalkInNote == "" {
		cfg.WalkInNote = DefaultWalkInNote
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		repo:       repo,
		outbox:     outbox,
		metrics:    m,
		now:        cfg.Now,
		marker:     strings.ToLower(cfg.EmergencyMarker),
		walkInNote: cfg.WalkInNote,
	}
}

// Snapshot assembles the complete ordered queue for today, along with
// doctor availability and aggregate counts. It is read-only and fails
// closed: any storage error yields no list at all rather than a partial one.
func (s *Service) Snapshot(ctx context.Context) (*model.QueueSnapshot, error) {
	now := s.now()

	rows, err := s.repo.FindDayAppointments(ctx, now)
	if err != nil {
		s.metrics.QueueFetches.WithLabelValues("error").Inc()
		return nil, apperrors.Storage(err)
	}

	entries := make([]model.QueueEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, s.buildEntry(row, now))
	}

	// Emergencies first, then priority groups, then time of day with
	// walk-ins (no time) last. SliceStable keeps storage order on ties.
	sort.SliceStable(entries, func(i, j int) bool {
		ri, rj := sortRank(&entries[i]), sortRank(&entries[j])
		if ri != rj {
			return ri < rj
		}
		return lessByTime(entries[i].AppointmentTime, entries[j].AppointmentTime)
	})

	stats := model.QueueStats{Total: len(entries)}
	for i := range entries {
		switch entries[i].Status {
		case model.QueueStatusScheduled:
			stats.Waiting++
		case model.QueueStatusInProgress:
			stats.InConsultation++
		case model.QueueStatusCompleted:
			stats.Completed++
		}
	}

	loads, err := s.repo.FindDoctorLoad(ctx, now)
	if err != nil {
		s.metrics.QueueFetches.WithLabelValues("error").Inc()
		return nil, apperrors.Storage(err)
	}

	doctors := make([]model.DoctorAvailability, 0, len(loads))
	for _, load := range loads {
		status := "available"
		if load.InProgress > 0 {
			status = "busy"
		}
		doctors = append(doctors, model.DoctorAvailability{
			DoctorID:   load.DoctorID,
			DoctorName: load.DoctorName,
			Status:     status,
			InProgress: load.InProgress,
		})
	}

	s.metrics.QueueDepth.Set(float64(stats.Total))
	s.metrics.QueueFetches.WithLabelValues("success").Inc()

	return &model.QueueSnapshot{
		Queue:   entries,
		Doctors: doctors,
		Stats:   stats,
	}, nil
}

func (s *Service) buildEntry(row *model.AppointmentRow, now time.Time) model.QueueEntry {
	entry := model.QueueEntry{
		ID:              row.ID,
		AppointmentID:   row.AppointmentCode,
		PatientID:       row.PatientID,
		AppointmentDate: row.AppointmentDate.Format("2006-01-02"),
		Status:          row.Status,
		PriorityOrder:   row.Status.PriorityOrder(),
	}

	if row.PatientName.Valid {
		entry.PatientName = row.PatientName.String
	}
	if row.Age.Valid {
		age := int(row.Age.Int64)
		entry.Age = &age
	}
	if row.Gender.Valid {
		entry.Gender = row.Gender.String
	}
	if row.Phone.Valid {
		entry.Phone = row.Phone.String
	}
	if row.DoctorName.Valid {
		entry.DoctorName = row.DoctorName.String
	}
	if row.AppointmentTime.Valid {
		t := row.AppointmentTime.String
		entry.AppointmentTime = &t
	}
	if row.Notes.Valid {
		entry.Notes = row.Notes.String
	}

	switch {
	case !row.AppointmentTime.Valid:
		entry.AppointmentType = model.AppointmentTypeWalkIn
	case strings.Contains(strings.ToLower(entry.Notes), s.marker):
		entry.AppointmentType = model.AppointmentTypeEmergency
	default:
		entry.AppointmentType = model.AppointmentTypeScheduled
	}

	waiting := int(now.Sub(row.CreatedAt).Minutes())
	if waiting < 0 {
		waiting = 0
	}
	entry.WaitingTime = waiting

	return entry
}

// sortRank folds the emergency flag into the priority grouping: an
// emergency-status entry outranks every priority group.
func sortRank(e *model.QueueEntry) int {
	if e.Status == model.QueueStatusEmergency {
		return 1
	}
	return e.PriorityOrder + 1
}

func lessByTime(a, b *string) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	// Times are zero-padded HH:MM, so string order is time order.
	return *a < *b
}

// UpdateStatus applies one guarded status transition. Same-state requests
// are idempotent no-ops; the write itself is a compare-and-swap against the
// status read here, so a concurrent writer surfaces as a conflict instead
// of a lost update.
func (s *Service) UpdateStatus(ctx context.Context, req *model.UpdateQueueStatusRequest) error {
	if req.AppointmentID == "" {
		return apperrors.MissingParameter("appointment_id")
	}
	if req.Status == "" {
		return apperrors.MissingParameter("status")
	}
	if !req.Status.Valid() {
		return apperrors.InvalidStatus(string(req.Status))
	}
	if req.ExpectedStatus != nil && !req.ExpectedStatus.Valid() {
		return apperrors.InvalidStatus(string(*req.ExpectedStatus))
	}

	current, err := s.repo.GetStatus(ctx, req.AppointmentID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		return apperrors.Storage(err)
	}

	if req.ExpectedStatus != nil && current != *req.ExpectedStatus {
		return apperrors.Conflict(fmt.Sprintf("status is %q, expected %q", current, *req.ExpectedStatus))
	}

	if current == req.Status {
		log.Debug().
			Str("appointment_id", req.AppointmentID).
			Str("status", string(current)).
			Msg("status unchanged, skipping write")
		return nil
	}

	if !current.CanTransitionTo(req.Status) {
		return apperrors.InvalidTransition(string(current), string(req.Status))
	}

	affected, err := s.repo.UpdateStatus(ctx, req.AppointmentID, req.Status, req.Notes, &current)
	if err != nil {
		return apperrors.Storage(err)
	}
	if affected == 0 {
		return apperrors.Conflict("appointment status changed concurrently")
	}

	s.metrics.Transitions.WithLabelValues(string(current), string(req.Status)).Inc()
	s.publishEvent(ctx, model.EventQueueStatusChanged, model.StatusChangedPayload{
		AppointmentID: req.AppointmentID,
		From:          current,
		To:            req.Status,
		ChangedAt:     s.now(),
	})

	return nil
}

// AdmitWalkIn inserts a new queue entry for an unscheduled arrival and
// returns the generated appointment code. A code collision at the unique
// constraint gets one regeneration attempt.
func (s *Service) AdmitWalkIn(ctx context.Context, req *model.AdmitWalkInRequest) (string, error) {
	if req.PatientID == uuid.Nil {
		return "", apperrors.MissingParameter("patient_id")
	}
	if req.DoctorID == uuid.Nil {
		return "", apperrors.MissingParameter("doctor_id")
	}

	priority := req.Priority
	if priority == "" {
		priority = DefaultWalkInPriority
	}
	notes := req.Notes
	if notes == "" {
		notes = s.walkInNote
	}

	now := s.now()
	var code string
	for attempt := 0; attempt < 2; attempt++ {
		code = appointmentCode(now)
		rec := &model.WalkInRecord{
			ID:              uuid.New(),
			AppointmentCode: code,
			PatientID:       req.PatientID,
			DoctorID:        req.DoctorID,
			AppointmentDate: now,
			Status:          model.QueueStatusScheduled,
			Priority:        priority,
			Notes:           notes,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		err := s.repo.InsertWalkIn(ctx, rec)
		if err == nil {
			break
		}
		if apperrors.Is(err, apperrors.ErrConflict) && attempt == 0 {
			continue
		}
		if apperrors.Is(err, apperrors.ErrConflict) {
			return "", err
		}
		return "", apperrors.Storage(err)
	}

	s.metrics.WalkInsAdmitted.Inc()
	s.publishEvent(ctx, model.EventQueueWalkIn, model.WalkInPayload{
		AppointmentID: code,
		PatientID:     req.PatientID,
		DoctorID:      req.DoctorID,
		AdmittedAt:    now,
	})

	return code, nil
}

// publishEvent enqueues a queue event for the outbox worker. Event delivery
// is best-effort relative to the request; a failed enqueue never fails the
// operation that triggered it.
func (s *Service) publishEvent(ctx context.Context, eventType string, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Warn().Err(err).Str("event_type", eventType).Msg("failed to marshal queue event")
		return
	}
	if err := s.outbox.Create(ctx, &model.OutboxEvent{
		EventType: eventType,
		Payload:   body,
	}); err != nil {
		log.Warn().Err(err).Str("event_type", eventType).Msg("failed to enqueue queue event")
	}
}

// appointmentCode builds the externally shareable code: a second-resolution
// time prefix plus a random suffix. Uniqueness is still enforced by the
// storage constraint.
func appointmentCode(t time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("APT-%s-%s", t.Format("20060102150405"), suffix)
}
