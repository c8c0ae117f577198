package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/theheadmen/goMeals/internal/dbconnector"
)

// ---- меню ----

func (ls *ServerSystem) AddFoodHandler(w http.ResponseWriter, r *http.Request) {
	_, err := ls.AuthenticateAdmin(w, r)
	if err != nil {
		return
	}

	var food dbconnector.Food
	if err := json.NewDecoder(r.Body).Decode(&food); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if food.Name == "" || food.Price <= 0 {
		http.Error(w, "Name and price are required", http.StatusBadRequest)
		return
	}
	log.Printf("add food call: %s\n", food.Name)

	if err := ls.Storage.AddFood(r.Context(), &food); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, food)
}

func (ls *ServerSystem) GetFoodsHandler(w http.ResponseWriter, r *http.Request) {
	foods, err := ls.Storage.GetAllFoods(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, foods)
}

func (ls *ServerSystem) GetFoodHandler(w http.ResponseWriter, r *http.Request) {
	foodID, err := parseUintVar(r, "foodId")
	if err != nil {
		http.Error(w, "Food ID is required", http.StatusBadRequest)
		return
	}

	food, err := ls.Storage.GetFoodByID(r.Context(), foodID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, food)
}

func (ls *ServerSystem) DeleteFoodHandler(w http.ResponseWriter, r *http.Request) {
	_, err := ls.AuthenticateAdmin(w, r)
	if err != nil {
		return
	}

	foodID, err := parseUintVar(r, "foodId")
	if err != nil {
		http.Error(w, "Food ID is required", http.StatusBadRequest)
		return
	}
	log.Printf("delete food call: %d\n", foodID)

	if err := ls.Storage.DeleteFood(r.Context(), foodID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
