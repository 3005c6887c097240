package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/littlelanterns/medharmony-command-center-sub000/internal/karma"
)

func karmaScoreHandler(store karma.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "id must be a valid UUID")
			return
		}

		score, err := store.GetScore(r.Context(), patientID)
		if err != nil {
			handleKarmaError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, KarmaScoreResponse{PatientID: patientID, Score: score})
	}
}

func karmaHistoryHandler(store karma.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "id must be a valid UUID")
			return
		}

		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			limit, err = strconv.Atoi(v)
			if err != nil || limit < 0 {
				writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative number")
				return
			}
		}

		history, err := store.ListHistory(r.Context(), patientID, limit)
		if err != nil {
			handleKarmaError(w, err)
			return
		}

		resp := make([]KarmaHistoryEntry, 0, len(history))
		for _, h := range history {
			resp = append(resp, KarmaHistoryEntry{
				Points:       h.Points,
				Reason:       h.Reason,
				Action:       string(h.Action),
				BalanceAfter: h.BalanceAfter,
				CreatedAt:    h.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleKarmaError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, karma.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
