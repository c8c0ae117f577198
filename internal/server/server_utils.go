package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/theheadmen/goMeals/internal/dbconnector"
	lederrors "github.com/theheadmen/goMeals/internal/errors"
)

// AuthenticateUser проверяет cookie и ищет пользователя в базе данных.
// При ошибке сам пишет ответ, вызывающему достаточно сделать return.
func (ls *ServerSystem) AuthenticateUser(w http.ResponseWriter, r *http.Request) (dbconnector.User, error) {
	cookie, err := r.Cookie("session_token")
	if err != nil {
		http.Error(w, "User not authenticated", http.StatusUnauthorized)
		return dbconnector.User{}, err
	}

	user, err := ls.Storage.GetUserByEmail(r.Context(), cookie.Value)
	if err != nil {
		http.Error(w, "User not found", http.StatusUnauthorized)
		return dbconnector.User{}, err
	}

	return user, nil
}

// AuthenticateAdmin - как AuthenticateUser, но дополнительно требует роль admin
func (ls *ServerSystem) AuthenticateAdmin(w http.ResponseWriter, r *http.Request) (dbconnector.User, error) {
	user, err := ls.AuthenticateUser(w, r)
	if err != nil {
		return dbconnector.User{}, err
	}
	if user.Role != "admin" {
		http.Error(w, "Access denied. Admins only.", http.StatusForbidden)
		return dbconnector.User{}, lederrors.ErrNotOwner
	}
	return user, nil
}

// statusForError переводит ошибки сервисного слоя в HTTP коды.
// Нехватка средств отдается как 402, чтобы клиент мог показать пополнение.
func statusForError(err error) int {
	switch {
	case errors.Is(err, lederrors.ErrUserNotFound),
		errors.Is(err, lederrors.ErrOrderNotFound),
		errors.Is(err, lederrors.ErrPlanNotFound),
		errors.Is(err, lederrors.ErrFoodNotFound):
		return http.StatusNotFound
	case errors.Is(err, lederrors.ErrInsufficientCredits):
		return http.StatusPaymentRequired
	case errors.Is(err, lederrors.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, lederrors.ErrInvalidTransition),
		errors.Is(err, lederrors.ErrUnknownStatus),
		errors.Is(err, lederrors.ErrInvalidAmount),
		errors.Is(err, lederrors.ErrEmptyProof),
		errors.Is(err, lederrors.ErrEmptyItems),
		errors.Is(err, lederrors.ErrTotalMismatch):
		return http.StatusBadRequest
	case errors.Is(err, lederrors.ErrUploadFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), statusForError(err))
}

func writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func parseUintVar(r *http.Request, name string) (uint, error) {
	raw := mux.Vars(r)[name]
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(value), nil
}

// parsePagination читает page и limit из query, 0 значит "взять дефолт"
func parsePagination(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	return page, limit
}
