// Package slots computes the available appointment start times for a
// master on a given day.
//
// The algorithm:
//  1. Resolve the master's daily work window (e.g. 09:00-20:00 local) to
//     UTC once for the requested date.
//  2. Generate candidate starts stepping by duration+buffer across that window.
//  3. Drop candidates too close to now, overlapping an active appointment
//     (buffer applied symmetrically), or overlapping a blackout.
package slots

import (
	"context"
	"fmt"
	"time"

	"github.com/iRatG/rasprav-bot/internal/config"
	"github.com/iRatG/rasprav-bot/internal/models"
	"github.com/iRatG/rasprav-bot/internal/repository"
)

// Engine computes available slots and dates for a master.
type Engine struct {
	appointments *repository.AppointmentRepository
	blackouts    *repository.BlackoutRepository
	business     config.BusinessConfig
}

// NewEngine creates a new slot engine.
func NewEngine(appointments *repository.AppointmentRepository, blackouts *repository.BlackoutRepository, business config.BusinessConfig) *Engine {
	return &Engine{appointments: appointments, blackouts: blackouts, business: business}
}

// workWindow returns (start, end) in UTC for the master's work hours on forDate.
func workWindow(master *models.Master, forDate time.Time, loc *time.Location) (time.Time, time.Time, error) {
	startHour, startMin, err := parseHHMM(master.WorkStart)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid work start %q: %w", master.WorkStart, err)
	}
	endHour, endMin, err := parseHHMM(master.WorkEnd)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid work end %q: %w", master.WorkEnd, err)
	}

	y, m, d := forDate.Date()
	start := time.Date(y, m, d, startHour, startMin, 0, 0, loc)
	end := time.Date(y, m, d, endHour, endMin, 0, 0, loc)
	return start.UTC(), end.UTC(), nil
}

func parseHHMM(hhmm string) (int, int, error) {
	var hour, min int
	_, err := fmt.Sscanf(hhmm, "%d:%d", &hour, &min)
	if err != nil {
		return 0, 0, err
	}
	return hour, min, nil
}

// generateCandidates returns every possible slot start in [workStart, workEnd).
func generateCandidates(workStart, workEnd time.Time, duration, buffer time.Duration) []time.Time {
	step := duration + buffer
	var starts []time.Time
	for current := workStart; !current.Add(duration).After(workEnd); current = current.Add(step) {
		starts = append(starts, current)
	}
	return starts
}

// activeStatuses are the appointment states that occupy a slot.
var activeStatuses = map[models.AppointmentStatus]bool{
	models.AppointmentStatusBooked:    true,
	models.AppointmentStatusConfirmed: true,
	models.AppointmentStatusArrived:   true,
}

// GetAvailableSlots returns the available UTC start times for master/service
// duration on forDate (a calendar date; time-of-day component is ignored).
func (e *Engine) GetAvailableSlots(ctx context.Context, master *models.Master, durationMinutes int, forDate time.Time) ([]time.Time, error) {
	loc, err := time.LoadLocation(master.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid master timezone %q: %w", master.Timezone, err)
	}

	nowUTC := time.Now().UTC()
	minStart := nowUTC.Add(time.Duration(e.business.MinBookingAheadHours) * time.Hour)

	workStart, workEnd, err := workWindow(master, forDate.In(loc), loc)
	if err != nil {
		return nil, err
	}

	duration := time.Duration(durationMinutes) * time.Minute
	buffer := time.Duration(master.BufferMinutes) * time.Minute
	candidates := generateCandidates(workStart, workEnd, duration, buffer)

	booked, err := e.appointments.ListActiveForMasterInWindow(ctx, master.ID, workStart, workEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to load booked appointments: %w", err)
	}
	booked = filterActive(booked)

	blackouts, err := e.blackouts.ListOverlapping(ctx, master.ID, workStart, workEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to load blackouts: %w", err)
	}

	available := make([]time.Time, 0, len(candidates))
	for _, slotStart := range candidates {
		slotEnd := slotStart.Add(duration)

		if slotStart.Before(minStart) {
			continue
		}

		conflict := false
		for _, apt := range booked {
			// The candidate's [start, end) must not overlap [apt.Start-buffer, apt.End+buffer).
			if slotStart.Before(apt.EndTime.Add(buffer)) && slotEnd.After(apt.StartTime.Add(-buffer)) {
				conflict = true
				break
			}
		}
		if conflict {
			continue
		}

		for _, bl := range blackouts {
			if slotStart.Before(bl.EndTime) && slotEnd.After(bl.StartTime) {
				conflict = true
				break
			}
		}
		if conflict {
			continue
		}

		available = append(available, slotStart)
	}

	return available, nil
}

func filterActive(appointments []models.Appointment) []models.Appointment {
	out := appointments[:0:0]
	for _, apt := range appointments {
		if activeStatuses[apt.Status] {
			out = append(out, apt)
		}
	}
	return out
}

// GetAvailableDates returns, out of the next BookingHorizonDays days
// starting today (in the master's timezone), those with at least one
// available slot.
func (e *Engine) GetAvailableDates(ctx context.Context, master *models.Master, durationMinutes int) ([]time.Time, error) {
	loc, err := time.LoadLocation(master.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid master timezone %q: %w", master.Timezone, err)
	}

	nowLocal := time.Now().In(loc)
	y, m, d := nowLocal.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)
	var dates []time.Time
	for offset := 0; offset < e.business.BookingHorizonDays; offset++ {
		day := today.AddDate(0, 0, offset)
		available, err := e.GetAvailableSlots(ctx, master, durationMinutes, day)
		if err != nil {
			return nil, err
		}
		if len(available) > 0 {
			dates = append(dates, day)
		}
	}
	return dates, nil
}
