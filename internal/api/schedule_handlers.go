package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/littlelanterns/medharmony-command-center-sub000/internal/schedule"
)

func availableSlotsHandler(gen *schedule.Generator, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_provider_id", "id must be a valid UUID")
			return
		}

		q := r.URL.Query()

		// Date-only params are parsed in the clinic zone; parsing them as
		// UTC would shift the civil date for zones west of Greenwich.
		startDate, err := time.ParseInLocation("2006-01-02", q.Get("start_date"), loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start_date", "start_date must be YYYY-MM-DD")
			return
		}
		endDate, err := time.ParseInLocation("2006-01-02", q.Get("end_date"), loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_end_date", "end_date must be YYYY-MM-DD")
			return
		}

		duration := 0
		if v := q.Get("duration_minutes"); v != "" {
			duration, err = strconv.Atoi(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_duration", "duration_minutes must be a number")
				return
			}
		}

		pref, ok := schedule.ParseTimePreference(q.Get("preference"))
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_preference", "preference must be morning, afternoon, evening, or all")
			return
		}

		res, err := gen.GenerateAvailableSlots(r.Context(), schedule.GenerateParams{
			ProviderID:      providerID,
			StartDate:       startDate,
			EndDate:         endDate,
			DurationMinutes: duration,
			Preference:      pref,
		})
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func listScheduleHandler(store schedule.ScheduleStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_provider_id", "id must be a valid UUID")
			return
		}

		entries, err := store.ListWeeklyEntries(r.Context(), providerID)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func createScheduleEntryHandler(store schedule.ScheduleStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_provider_id", "id must be a valid UUID")
			return
		}

		var req CreateScheduleEntryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.DayOfWeek < 0 || req.DayOfWeek > 6 {
			writeError(w, http.StatusBadRequest, "invalid_day_of_week", "day_of_week must be 0 (Sunday) through 6 (Saturday)")
			return
		}

		entry := &schedule.WeeklyEntry{
			ProviderID:  providerID,
			DayOfWeek:   time.Weekday(req.DayOfWeek),
			StartTime:   req.StartTime,
			EndTime:     req.EndTime,
			Location:    req.Location,
			Staff:       req.Staff,
			SlotMinutes: req.SlotMinutes,
			MaxSlots:    req.MaxSlots,
			Active:      true,
		}
		if err := store.CreateEntry(r.Context(), entry); err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, entry)
	}
}

func deactivateScheduleEntryHandler(store schedule.ScheduleStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_entry_id", "id must be a valid UUID")
			return
		}

		if err := store.DeactivateEntry(r.Context(), id); err != nil {
			handleScheduleError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listBlocksHandler(store schedule.BlockStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_provider_id", "id must be a valid UUID")
			return
		}

		blocks, err := store.ListBlocks(r.Context(), providerID)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, blocks)
	}
}

func deactivateBlockHandler(store schedule.BlockStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_block_id", "id must be a valid UUID")
			return
		}

		if err := store.DeactivateBlock(r.Context(), id); err != nil {
			handleScheduleError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleScheduleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrProviderNotFound):
		writeError(w, http.StatusNotFound, "provider_not_found", err.Error())
	case errors.Is(err, schedule.ErrEntryNotFound):
		writeError(w, http.StatusNotFound, "schedule_entry_not_found", err.Error())
	case errors.Is(err, schedule.ErrBlockNotFound):
		writeError(w, http.StatusNotFound, "block_not_found", err.Error())
	case errors.Is(err, schedule.ErrMissingProvider),
		errors.Is(err, schedule.ErrInvalidDateRange),
		errors.Is(err, schedule.ErrInvalidDuration),
		errors.Is(err, schedule.ErrInvalidPreference),
		errors.Is(err, schedule.ErrInvalidClockFormat):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
