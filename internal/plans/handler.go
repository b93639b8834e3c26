package plans

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/studyplan/backend/internal/models"
	"github.com/studyplan/backend/internal/scheduler"
)

type Handler struct {
	service  *Service
	validate *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/plans", h.CreatePlan).Methods("POST")
	r.HandleFunc("/plans", h.ListPlans).Methods("GET")
	r.HandleFunc("/plans/{id}", h.GetPlan).Methods("GET")
	r.HandleFunc("/plans/{id}", h.DeletePlan).Methods("DELETE")
	r.HandleFunc("/plans/{id}/parameters", h.UpdateParameters).Methods("PUT")
	r.HandleFunc("/plans/{id}/sessions/{sessionId}/complete", h.CompleteSession).Methods("POST")
	r.HandleFunc("/plans/{id}/repair", h.RepairPlan).Methods("POST")
	r.HandleFunc("/plans/{id}/progress", h.GetProgress).Methods("GET")
	r.HandleFunc("/plans/{id}/weak-topics", h.GetWeakTopics).Methods("GET")
}

func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	plan, provisional, err := h.service.CreatePlan(r.Context(), &req)
	if err != nil {
		var toErr *scheduler.OptimizationTimeout
		if errors.As(err, &toErr) {
			writeJSON(w, http.StatusCreated, models.PlanResponse{Plan: toErr.Partial, Provisional: true})
			return
		}
		writeSchedulerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.PlanResponse{Plan: plan, Provisional: provisional})
}

func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.service.GetPlan(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeSchedulerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.PlanResponse{Plan: plan})
}

func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "owner_id query parameter is required")
		return
	}

	resp, err := h.service.ListPlans(r.Context(), ownerID)
	if err != nil {
		writeSchedulerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeletePlan(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeSchedulerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UpdateParameters(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateParametersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ExamDate == nil && req.DailyHours == nil {
		writeError(w, http.StatusBadRequest, "at least one of exam_date or daily_hours is required")
		return
	}

	plan, err := h.service.UpdateParameters(r.Context(), mux.Vars(r)["id"], &req)
	if err != nil {
		writeSchedulerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.PlanResponse{Plan: plan})
}

func (h *Handler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	var req models.CompleteSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	vars := mux.Vars(r)
	plan, err := h.service.CompleteSession(r.Context(), vars["id"], vars["sessionId"], &req)
	if err != nil {
		writeSchedulerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.PlanResponse{Plan: plan})
}

func (h *Handler) RepairPlan(w http.ResponseWriter, r *http.Request) {
	plan, changed, err := h.service.RepairPlan(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeSchedulerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"plan":    plan,
		"changed": changed,
	})
}

func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	rep, err := h.service.GetProgress(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeSchedulerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *Handler) GetWeakTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.service.GetWeakTopics(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeSchedulerError(w, err)
		return
	}
	if topics == nil {
		topics = []models.WeakTopic{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"weak_topics": topics})
}

// writeSchedulerError maps the scheduling error taxonomy onto HTTP
// statuses: malformed input is 400, a structurally valid but
// unsatisfiable request is 422 with corrective fields, a missing plan
// is 404.
func writeSchedulerError(w http.ResponseWriter, err error) {
	var vErr *scheduler.ValidationError
	if errors.As(err, &vErr) {
		writeError(w, http.StatusBadRequest, vErr.Error())
		return
	}

	var itErr *scheduler.InsufficientTimeError
	if errors.As(err, &itErr) {
		minDaily := itErr.MinDailyHours
		earliest := itErr.EarliestExamDate.Format("2006-01-02")
		writeJSON(w, http.StatusUnprocessableEntity, models.ErrorResponse{
			Error:            itErr.Error(),
			MinDailyHours:    &minDaily,
			EarliestExamDate: &earliest,
		})
		return
	}

	var soErr *scheduler.ScheduleOverflowError
	if errors.As(err, &soErr) {
		shortfall := soErr.ShortfallHours
		writeJSON(w, http.StatusUnprocessableEntity, models.ErrorResponse{
			Error:          soErr.Error(),
			ShortfallHours: &shortfall,
		})
		return
	}

	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "plan not found")
		return
	}

	log.Printf("[plans] internal error: %v", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[plans] encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{Error: message})
}
