package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/littlelanterns/medharmony-command-center-sub000/internal/appointment"
	redisclient "github.com/littlelanterns/medharmony-command-center-sub000/internal/redis"
	"github.com/littlelanterns/medharmony-command-center-sub000/internal/schedule"
)

func bookHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		orderID, err := uuid.Parse(req.OrderID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a valid UUID")
			return
		}
		providerID, err := uuid.Parse(req.ProviderID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_provider_id", "provider_id must be a valid UUID")
			return
		}
		start, err := time.Parse(time.RFC3339, req.Start)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start", "start must be RFC 3339")
			return
		}

		res, err := svc.Book(r.Context(), appointment.BookParams{
			OrderID:         orderID,
			ProviderID:      providerID,
			Start:           start,
			DurationMinutes: req.DurationMinutes,
			Location:        req.Location,
		})
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, AppointmentResponse{
			Appointment:   res.Appointment,
			FailedEffects: res.Effects.Failed(),
		})
	}
}

func getAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

func listPatientAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "id must be a valid UUID")
			return
		}

		appts, err := svc.ListPatientAppointments(r.Context(), id)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appts)
	}
}

func cancelHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req CancelRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
				return
			}
		}

		initiator := appointment.ByPatient
		switch req.InitiatedBy {
		case "", string(appointment.ByPatient):
		case string(appointment.ByProvider):
			initiator = appointment.ByProvider
		default:
			writeError(w, http.StatusBadRequest, "invalid_initiator", "initiated_by must be patient or provider")
			return
		}

		res, err := svc.Cancel(r.Context(), appointment.CancelParams{
			AppointmentID: id,
			InitiatedBy:   initiator,
			Reason:        req.Reason,
		})
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		resp := CancelResponse{
			Appointment:   res.Appointment,
			FailedEffects: res.Effects.Failed(),
		}
		for _, m := range res.Matches {
			resp.MatchedOrders = append(resp.MatchedOrders, MatchedOrder{
				OrderID:   m.OrderID,
				PatientID: m.PatientID,
				Rank:      m.Rank,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func rescheduleHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req RescheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		newStart, err := time.Parse(time.RFC3339, req.NewStart)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_new_start", "new_start must be RFC 3339")
			return
		}

		res, err := svc.Reschedule(r.Context(), appointment.RescheduleParams{
			AppointmentID:   id,
			NewStart:        newStart,
			DurationMinutes: req.DurationMinutes,
		})
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, AppointmentResponse{
			Appointment:   res.Appointment,
			FailedEffects: res.Effects.Failed(),
		})
	}
}

func confirmHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, effects, err := svc.Confirm(r.Context(), id)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, AppointmentResponse{
			Appointment:   appt,
			FailedEffects: effects.Failed(),
		})
	}
}

func claimHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		alertID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_alert_id", "id must be a valid UUID")
			return
		}

		var req ClaimRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		orderID, err := uuid.Parse(req.OrderID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a valid UUID")
			return
		}
		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		res, err := svc.Claim(r.Context(), appointment.ClaimParams{
			AlertID:   alertID,
			OrderID:   orderID,
			PatientID: patientID,
		})
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, AppointmentResponse{
			Appointment:   res.Appointment,
			FailedEffects: res.Effects.Failed(),
		})
	}
}

func blockTimeHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_provider_id", "id must be a valid UUID")
			return
		}

		var req BlockTimeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		start, err := time.Parse(time.RFC3339, req.Start)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start", "start must be RFC 3339")
			return
		}
		end, err := time.Parse(time.RFC3339, req.End)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_end", "end must be RFC 3339")
			return
		}

		res, err := svc.BlockTime(r.Context(), appointment.BlockTimeParams{
			ProviderID: providerID,
			Start:      start,
			End:        end,
			BlockType:  schedule.BlockType(req.BlockType),
			Reason:     req.Reason,
		})
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, BlockTimeResponse{
			BlockID:       res.Block.ID,
			Cancelled:     res.Cancelled,
			FailedEffects: res.Effects.Failed(),
		})
	}
}

func handleAppointmentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, appointment.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "order_not_found", err.Error())
	case errors.Is(err, appointment.ErrAlertNotFound):
		writeError(w, http.StatusNotFound, "alert_not_found", err.Error())
	case errors.Is(err, appointment.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_already_booked", err.Error())
	case errors.Is(err, appointment.ErrSlotBlocked):
		writeError(w, http.StatusConflict, "slot_blocked", err.Error())
	case errors.Is(err, appointment.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, appointment.ErrAlertExpired):
		writeError(w, http.StatusGone, "alert_expired", err.Error())
	case errors.Is(err, appointment.ErrAlertClaimed):
		writeError(w, http.StatusConflict, "alert_already_claimed", err.Error())
	case errors.Is(err, appointment.ErrOrderNotOpen):
		writeError(w, http.StatusConflict, "order_not_open", err.Error())
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
