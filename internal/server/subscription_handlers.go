package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/theheadmen/goMeals/internal/dbconnector"
	lederrors "github.com/theheadmen/goMeals/internal/errors"
	"github.com/theheadmen/goMeals/internal/models"
	"github.com/theheadmen/goMeals/internal/service"
)

// ---- каталог планов ----

func (ls *ServerSystem) GetPlansHandler(w http.ResponseWriter, r *http.Request) {
	plans, err := ls.Storage.GetActivePlans(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

// GetPlanHandler - один план по его бизнес-ключу, скрытые планы не отдаем
func (ls *ServerSystem) GetPlanHandler(w http.ResponseWriter, r *http.Request) {
	planID := mux.Vars(r)["planId"]
	plan, err := ls.Storage.GetPlanByPlanID(r.Context(), planID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !plan.IsActive {
		writeError(w, lederrors.ErrPlanNotFound)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (ls *ServerSystem) GetPlansByTypeHandler(w http.ResponseWriter, r *http.Request) {
	planType := mux.Vars(r)["planType"]
	plans, err := ls.Storage.GetPlansByType(r.Context(), planType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

func (ls *ServerSystem) AddPlanHandler(w http.ResponseWriter, r *http.Request) {
	_, err := ls.AuthenticateAdmin(w, r)
	if err != nil {
		return
	}

	var plan dbconnector.SubscriptionPlan
	if err := json.NewDecoder(r.Body).Decode(&plan); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if plan.PlanID == "" || plan.Title == "" {
		http.Error(w, "Plan ID and title are required", http.StatusBadRequest)
		return
	}
	log.Printf("add plan call: %s\n", plan.PlanID)

	plan.IsActive = true
	if err := ls.Storage.AddPlan(r.Context(), &plan); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

func (ls *ServerSystem) UpdatePlanHandler(w http.ResponseWriter, r *http.Request) {
	_, err := ls.AuthenticateAdmin(w, r)
	if err != nil {
		return
	}

	planID := mux.Vars(r)["planId"]
	existing, err := ls.Storage.GetPlanByPlanID(r.Context(), planID)
	if err != nil {
		writeError(w, err)
		return
	}

	var plan dbconnector.SubscriptionPlan
	if err := json.NewDecoder(r.Body).Decode(&plan); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	// ID и ключ плана из пути, а не из тела
	plan.ID = existing.ID
	plan.PlanID = planID
	log.Printf("update plan call: %s\n", planID)

	if err := ls.Storage.UpdatePlan(r.Context(), &plan); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (ls *ServerSystem) DeletePlanHandler(w http.ResponseWriter, r *http.Request) {
	_, err := ls.AuthenticateAdmin(w, r)
	if err != nil {
		return
	}

	planID := mux.Vars(r)["planId"]
	log.Printf("delete plan call: %s\n", planID)

	if err := ls.Storage.DeactivatePlan(r.Context(), planID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// ---- подписки ----

func (ls *ServerSystem) CreateSubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	user, err := ls.AuthenticateUser(w, r)
	if err != nil {
		return
	}

	var req models.CreateSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	log.Printf("create subscription call for %d, plan %s\n", user.ID, req.PlanID)

	resp, err := service.CreateSubscriptionOrderLogic(r.Context(), ls.Storage, user.ID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (ls *ServerSystem) GetUserSubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
	user, err := ls.AuthenticateUser(w, r)
	if err != nil {
		return
	}
	log.Printf("get subscriptions call for %d\n", user.ID)

	resp, err := service.ListUserSubscriptionsLogic(r.Context(), ls.Storage, user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (ls *ServerSystem) GetSubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	user, err := ls.AuthenticateUser(w, r)
	if err != nil {
		return
	}

	number := mux.Vars(r)["orderId"]
	resp, err := service.GetSubscriptionOrderLogic(r.Context(), ls.Storage, user.ID, user.Role == "admin", number)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (ls *ServerSystem) SubmitSubscriptionPaymentHandler(w http.ResponseWriter, r *http.Request) {
	user, err := ls.AuthenticateUser(w, r)
	if err != nil {
		return
	}

	number := mux.Vars(r)["orderId"]
	var req models.SubmitPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	log.Printf("submit payment call for subscription %s by user %d\n", number, user.ID)

	resp, err := service.SubmitSubscriptionPaymentLogic(r.Context(), ls.Storage, ls.Uploader, user.ID, number, req.PaymentProof)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (ls *ServerSystem) CancelSubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	user, err := ls.AuthenticateUser(w, r)
	if err != nil {
		return
	}

	number := mux.Vars(r)["orderId"]
	log.Printf("cancel subscription call for %s by user %d\n", number, user.ID)

	resp, err := service.CancelSubscriptionOrderLogic(r.Context(), ls.Storage, user.ID, number)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (ls *ServerSystem) VerifySubscriptionPaymentHandler(w http.ResponseWriter, r *http.Request) {
	_, err := ls.AuthenticateAdmin(w, r)
	if err != nil {
		return
	}

	number := mux.Vars(r)["orderId"]
	var req models.VerifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !req.IsVerified {
		http.Error(w, "isVerified must be true", http.StatusBadRequest)
		return
	}
	log.Printf("verify payment call for subscription %s\n", number)

	resp, err := service.VerifySubscriptionPaymentLogic(r.Context(), ls.Storage, number)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (ls *ServerSystem) UpdateSubscriptionStatusHandler(w http.ResponseWriter, r *http.Request) {
	_, err := ls.AuthenticateAdmin(w, r)
	if err != nil {
		return
	}

	number := mux.Vars(r)["orderId"]
	var req models.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	log.Printf("update status call for subscription %s -> %s\n", number, req.Status)

	resp, err := service.UpdateSubscriptionStatusLogic(r.Context(), ls.Storage, number, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (ls *ServerSystem) GetAllSubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
	_, err := ls.AuthenticateAdmin(w, r)
	if err != nil {
		return
	}

	page, limit := parsePagination(r)
	resp, err := service.ListAllSubscriptionsLogic(r.Context(), ls.Storage, page, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
