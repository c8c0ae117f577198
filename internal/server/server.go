package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/theheadmen/goMeals/internal/dbconnector"
	"github.com/theheadmen/goMeals/internal/lifecycle"
	"github.com/theheadmen/goMeals/internal/models"
	"github.com/theheadmen/goMeals/internal/service"
	"github.com/theheadmen/goMeals/internal/uploader"
)

type ServerSystem struct {
	Storage  service.Storage
	Uploader uploader.Uploader
}

func NewServerSystem(storage service.Storage, upl uploader.Uploader) *ServerSystem {
	return &ServerSystem{Storage: storage, Uploader: upl}
}

func (ls *ServerSystem) MakeRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/user/register", ls.RegisterUserHandler).Methods("POST")
	r.HandleFunc("/api/user/login", ls.LoginUserHandler).Methods("POST")
	r.HandleFunc("/api/user/profile", ls.UpdateProfileHandler).Methods("PUT")
	r.HandleFunc("/api/users/{userId}", ls.GetUserHandler).Methods("GET")
	r.HandleFunc("/api/admin/users", ls.GetAllUsersHandler).Methods("GET")

	r.HandleFunc("/api/credits/topup", ls.TopupHandler).Methods("POST")
	r.HandleFunc("/api/credits/referral", ls.ReferralHandler).Methods("POST")
	r.HandleFunc("/api/credits/deduct", ls.DeductHandler).Methods("POST")
	r.HandleFunc("/api/credits", ls.GetCreditsHandler).Methods("GET")
	r.HandleFunc("/api/transactions/{userId}", ls.GetUserTransactionsHandler).Methods("GET")

	r.HandleFunc("/api/orders", ls.CreateOrderHandler).Methods("POST")
	r.HandleFunc("/api/orders", ls.GetOrdersHandler).Methods("GET")
	r.HandleFunc("/api/orders/{orderId}", ls.GetOrderHandler).Methods("GET")
	r.HandleFunc("/api/orders/{orderId}/payment", ls.SubmitOrderPaymentHandler).Methods("POST")
	r.HandleFunc("/api/orders/{orderId}/cancel", ls.CancelOrderHandler).Methods("POST")
	r.HandleFunc("/api/orders/{orderId}/verify", ls.VerifyOrderPaymentHandler).Methods("PUT")
	r.HandleFunc("/api/orders/{orderId}/status", ls.UpdateOrderStatusHandler).Methods("PUT")

	r.HandleFunc("/api/admin/orders", ls.GetAllOrdersHandler).Methods("GET")
	r.HandleFunc("/api/admin/orders/pending", ls.GetPendingOrdersHandler).Methods("GET")
	r.HandleFunc("/api/admin/orders/inprogress", ls.GetInProgressOrdersHandler).Methods("GET")
	r.HandleFunc("/api/admin/orders/delivered", ls.GetDeliveredOrdersHandler).Methods("GET")

	r.HandleFunc("/api/foods", ls.GetFoodsHandler).Methods("GET")
	r.HandleFunc("/api/foods", ls.AddFoodHandler).Methods("POST")
	r.HandleFunc("/api/foods/{foodId}", ls.GetFoodHandler).Methods("GET")
	r.HandleFunc("/api/foods/{foodId}", ls.DeleteFoodHandler).Methods("DELETE")

	r.HandleFunc("/api/plans", ls.GetPlansHandler).Methods("GET")
	r.HandleFunc("/api/plans", ls.AddPlanHandler).Methods("POST")
	r.HandleFunc("/api/plans/type/{planType}", ls.GetPlansByTypeHandler).Methods("GET")
	r.HandleFunc("/api/plans/{planId}", ls.GetPlanHandler).Methods("GET")
	r.HandleFunc("/api/plans/{planId}", ls.UpdatePlanHandler).Methods("PUT")
	r.HandleFunc("/api/plans/{planId}", ls.DeletePlanHandler).Methods("DELETE")

	r.HandleFunc("/api/subscriptions", ls.CreateSubscriptionHandler).Methods("POST")
	r.HandleFunc("/api/subscriptions", ls.GetUserSubscriptionsHandler).Methods("GET")
	r.HandleFunc("/api/subscriptions/{orderId}", ls.GetSubscriptionHandler).Methods("GET")
	r.HandleFunc("/api/subscriptions/{orderId}/payment", ls.SubmitSubscriptionPaymentHandler).Methods("POST")
	r.HandleFunc("/api/subscriptions/{orderId}/cancel", ls.CancelSubscriptionHandler).Methods("POST")
	r.HandleFunc("/api/subscriptions/{orderId}/verify", ls.VerifySubscriptionPaymentHandler).Methods("PUT")
	r.HandleFunc("/api/subscriptions/{orderId}/status", ls.UpdateSubscriptionStatusHandler).Methods("PUT")
	r.HandleFunc("/api/admin/subscriptions", ls.GetAllSubscriptionsHandler).Methods("GET")

	return r
}

func (ls *ServerSystem) MakeServer(serverAddr string) *http.Server {
	server := http.Server{
		Addr:    serverAddr,
		Handler: ls.MakeRouter(),
		// Good practice: enforce timeouts for servers you create!
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	return &server
}

func (ls *ServerSystem) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	var user dbconnector.User
	err := json.NewDecoder(r.Body).Decode(&user)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Проверяем, что логин и пароль не пустые
	if user.Email == "" || user.Password == "" {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}
	log.Printf("try to register with email: %s\n", user.Email)

	// Хешируем пароль
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	user.Password = string(hashedPassword)
	// роль из запроса не берем, админы назначаются отдельно
	user.Role = "user"

	err = ls.Storage.AddUser(r.Context(), &user)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	// Устанавливаем cookie для аутентификации
	http.SetCookie(w, &http.Cookie{
		Name:  "session_token",
		Value: user.Email,
		Path:  "/",
	})

	w.WriteHeader(http.StatusOK)
}

func (ls *ServerSystem) LoginUserHandler(w http.ResponseWriter, r *http.Request) {
	var reqUser dbconnector.User
	err := json.NewDecoder(r.Body).Decode(&reqUser)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if reqUser.Email == "" || reqUser.Password == "" {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}
	log.Printf("try to login with email: %s\n", reqUser.Email)

	user, err := ls.Storage.GetUserByEmail(r.Context(), reqUser.Email)
	if err != nil {
		http.Error(w, "Invalid login or password", http.StatusUnauthorized)
		return
	}

	// Проверяем пароль
	err = bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(reqUser.Password))
	if err != nil {
		http.Error(w, "Invalid login or password", http.StatusUnauthorized)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:  "session_token",
		Value: user.Email,
		Path:  "/",
	})

	w.WriteHeader(http.StatusOK)
}

// UpdateProfileHandler - правка имени и контакта своего профиля.
// Email и роль через этот эндпоинт не меняются.
func (ls *ServerSystem) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	user, err := ls.AuthenticateUser(w, r)
	if err != nil {
		return
	}

	var req models.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Contact != "" {
		user.Contact = req.Contact
	}
	log.Printf("update profile call for %d\n", user.ID)

	if err := ls.Storage.UpdateUser(r.Context(), &user); err != nil {
		writeError(w, err)
		return
	}
	user.Password = ""
	writeJSON(w, http.StatusOK, user)
}

func (ls *ServerSystem) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := ls.AuthenticateUser(w, r)
	if err != nil {
		return
	}

	userID, err := parseUintVar(r, "userId")
	if err != nil {
		http.Error(w, "User ID is required", http.StatusBadRequest)
		return
	}
	// чужой профиль виден только админу
	if userID != caller.ID && caller.Role != "admin" {
		http.Error(w, "Access denied. Admins only.", http.StatusForbidden)
		return
	}

	user, err := ls.Storage.GetUserByUserID(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	user.Password = ""
	writeJSON(w, http.StatusOK, user)
}

func (ls *ServerSystem) GetAllUsersHandler(w http.ResponseWriter, r *http.Request) {
	_, err := ls.AuthenticateAdmin(w, r)
	if err != nil {
		return
	}

	users, err := ls.Storage.GetAllUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	for i := range users {
		users[i].Password = ""
	}
	writeJSON(w, http.StatusOK, users)
}

// ---- кредиты ----

func (ls *ServerSystem) TopupHandler(w http.ResponseWriter, r *http.Request) {
	user, err := ls.AuthenticateUser(w, r)
	if err != nil {
		return
	}

	var req models.TopupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.UserID == 0 {
		req.UserID = user.ID
	}
	// пополнять чужой кошелек может только админ
	if req.UserID != user.ID && user.Role != "admin" {
		http.Error(w, "Access denied. Admins only.", http.StatusForbidden)
		return
	}
	log.Printf("topup call for %d, amount %f\n", req.UserID, req.Amount)

	resp, err := service.TopupLogic(r.Context(), ls.Storage, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (ls *ServerSystem) ReferralHandler(w http.ResponseWriter, r *http.Request) {
	user, err := ls.AuthenticateUser(w, r)
	if err != nil {
		return
	}

	var req models.ReferralRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.UserID == 0 {
		req.UserID = user.ID
	}
	if req.UserID != user.ID && user.Role != "admin" {
		http.Error(w, "Access denied. Admins only.", http.StatusForbidden)
		return
	}
	log.Printf("referral bonus call for %d\n", req.UserID)

	resp, err := service.ReferralLogic(r.Context(), ls.Storage, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (ls *ServerSystem) DeductHandler(w http.ResponseWriter, r *http.Request) {
	user, err := ls.AuthenticateUser(w, r)
	if err != nil {
		return
	}

	var req models.DeductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.UserID == 0 {
		req.UserID = user.ID
	}
	if req.UserID != user.ID && user.Role != "admin" {
		http.Error(w, "Access denied. Admins only.", http.StatusForbidden)
		return
	}
	log.Printf("try to deduct sum: %f for user %d\n", req.Amount, req.UserID)

	resp, err := service.DeductLogic(r.Context(), ls.Storage, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (ls *ServerSystem) GetCreditsHandler(w http.ResponseWriter, r *http.Request) {
	user, err := ls.AuthenticateUser(w, r)
	if err != nil {
		return
	}
	log.Printf("get credits call for %d\n", user.ID)

	resp, err := service.GetCreditsLogic(r.Context(), ls.Storage, user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (ls *ServerSystem) GetUserTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	_, err := ls.AuthenticateAdmin(w, r)
	if err != nil {
		return
	}

	userID, err := parseUintVar(r, "userId")
	if err != nil {
		http.Error(w, "User ID is required", http.StatusBadRequest)
		return
	}

	resp, err := service.GetCreditsLogic(r.Context(), ls.Storage, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ---- обычные заказы ----

func (ls *ServerSystem) CreateOrderHandler(w http.ResponseWriter, r *http.Request) {
	user, err := ls.AuthenticateUser(w, r)
	if err != nil {
		return
	}
	log.Printf("create order call for %d\n", user.ID)

	var req models.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := service.CreateOrderLogic(r.Context(), ls.Storage, user.ID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (ls *ServerSystem) GetOrdersHandler(w http.ResponseWriter, r *http.Request) {
	user, err := ls.AuthenticateUser(w, r)
	if err != nil {
		return
	}
	log.Printf("get orders call for %d\n", user.ID)

	page, limit := parsePagination(r)
	resp, err := service.ListUserOrdersLogic(r.Context(), ls.Storage, user.ID, page, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (ls *ServerSystem) GetOrderHandler(w http.ResponseWriter, r *http.Request) {
	user, err := ls.AuthenticateUser(w, r)
	if err != nil {
		return
	}

	number := mux.Vars(r)["orderId"]
	resp, err := service.GetOrderLogic(r.Context(), ls.Storage, user.ID, user.Role == "admin", number)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (ls *ServerSystem) SubmitOrderPaymentHandler(w http.ResponseWriter, r *http.Request) {
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
	log.Printf("submit payment call for order %s by user %d\n", number, user.ID)

	resp, err := service.SubmitOrderPaymentLogic(r.Context(), ls.Storage, ls.Uploader, user.ID, number, req.PaymentProof)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (ls *ServerSystem) CancelOrderHandler(w http.ResponseWriter, r *http.Request) {
	user, err := ls.AuthenticateUser(w, r)
	if err != nil {
		return
	}

	number := mux.Vars(r)["orderId"]
	log.Printf("cancel order call for %s by user %d\n", number, user.ID)

	resp, err := service.CancelOrderLogic(r.Context(), ls.Storage, user.ID, number)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (ls *ServerSystem) VerifyOrderPaymentHandler(w http.ResponseWriter, r *http.Request) {
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
	log.Printf("verify payment call for order %s, verified=%t\n", number, req.IsVerified)

	resp, err := service.VerifyOrderPaymentLogic(r.Context(), ls.Storage, number, req.IsVerified)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (ls *ServerSystem) UpdateOrderStatusHandler(w http.ResponseWriter, r *http.Request) {
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
	log.Printf("update status call for order %s -> %s\n", number, req.Status)

	resp, err := service.UpdateOrderStatusLogic(r.Context(), ls.Storage, number, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (ls *ServerSystem) GetAllOrdersHandler(w http.ResponseWriter, r *http.Request) {
	_, err := ls.AuthenticateAdmin(w, r)
	if err != nil {
		return
	}

	page, limit := parsePagination(r)
	status := lifecycle.Status(r.URL.Query().Get("status"))
	resp, err := service.ListAllOrdersLogic(r.Context(), ls.Storage, status, page, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (ls *ServerSystem) GetPendingOrdersHandler(w http.ResponseWriter, r *http.Request) {
	_, err := ls.AuthenticateAdmin(w, r)
	if err != nil {
		return
	}

	page, limit := parsePagination(r)
	resp, err := service.ListPendingVerificationLogic(r.Context(), ls.Storage, page, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (ls *ServerSystem) GetInProgressOrdersHandler(w http.ResponseWriter, r *http.Request) {
	_, err := ls.AuthenticateAdmin(w, r)
	if err != nil {
		return
	}

	page, limit := parsePagination(r)
	resp, err := service.ListInProgressLogic(r.Context(), ls.Storage, page, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (ls *ServerSystem) GetDeliveredOrdersHandler(w http.ResponseWriter, r *http.Request) {
	_, err := ls.AuthenticateAdmin(w, r)
	if err != nil {
		return
	}

	page, limit := parsePagination(r)
	resp, err := service.ListDeliveredLogic(r.Context(), ls.Storage, page, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
