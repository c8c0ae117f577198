package service

import (
	"context"

	"github.com/theheadmen/goMeals/internal/dbconnector"
	"github.com/theheadmen/goMeals/internal/lifecycle"
)

type Storage interface {
	GetUserByEmail(ctx context.Context, email string) (dbconnector.User, error)
	GetUserByUserID(ctx context.Context, userID uint) (dbconnector.User, error)
	AddUser(ctx context.Context, newUser *dbconnector.User) error
	UpdateUser(ctx context.Context, updUser *dbconnector.User) error
	GetAllUsers(ctx context.Context) ([]dbconnector.User, error)

	CreditTransaction(ctx context.Context, userID uint, txType string, amount float64, description string) (dbconnector.User, error)
	DebitTransaction(ctx context.Context, userID uint, txType string, amount float64, description string) (dbconnector.User, error)
	GetTransactionsByUserID(ctx context.Context, userID uint) ([]dbconnector.Transaction, error)

	AddOrder(ctx context.Context, newOrder *dbconnector.Order) error
	AddOrderWithDebit(ctx context.Context, newOrder *dbconnector.Order, txType string, description string) error
	GetOrderByNumber(ctx context.Context, number string) (dbconnector.Order, error)
	UpdateOrderStatusCAS(ctx context.Context, number string, expected lifecycle.Status, updates map[string]interface{}) (bool, error)
	GetOrdersByUserID(ctx context.Context, userID uint, offset, limit int) ([]dbconnector.Order, int64, error)
	GetAllOrders(ctx context.Context, status lifecycle.Status, offset, limit int) ([]dbconnector.Order, int64, error)
	GetPendingVerificationOrders(ctx context.Context, offset, limit int) ([]dbconnector.Order, int64, error)
	GetInProgressOrders(ctx context.Context, offset, limit int) ([]dbconnector.Order, int64, error)
	GetDeliveredOrders(ctx context.Context, offset, limit int) ([]dbconnector.Order, int64, error)

	AddFood(ctx context.Context, food *dbconnector.Food) error
	GetAllFoods(ctx context.Context) ([]dbconnector.Food, error)
	GetFoodByID(ctx context.Context, foodID uint) (dbconnector.Food, error)
	DeleteFood(ctx context.Context, foodID uint) error

	AddPlan(ctx context.Context, plan *dbconnector.SubscriptionPlan) error
	UpdatePlan(ctx context.Context, plan *dbconnector.SubscriptionPlan) error
	GetPlanByPlanID(ctx context.Context, planID string) (dbconnector.SubscriptionPlan, error)
	GetActivePlans(ctx context.Context) ([]dbconnector.SubscriptionPlan, error)
	GetPlansByType(ctx context.Context, planType string) ([]dbconnector.SubscriptionPlan, error)
	DeactivatePlan(ctx context.Context, planID string) error

	AddSubscriptionOrder(ctx context.Context, newOrder *dbconnector.SubscriptionOrder) error
	AddSubscriptionOrderWithDebit(ctx context.Context, newOrder *dbconnector.SubscriptionOrder, description string) error
	GetSubscriptionOrderByNumber(ctx context.Context, number string) (dbconnector.SubscriptionOrder, error)
	UpdateSubscriptionStatusCAS(ctx context.Context, number string, expected lifecycle.Status, updates map[string]interface{}) (bool, error)
	GetSubscriptionOrdersByUserID(ctx context.Context, userID uint) ([]dbconnector.SubscriptionOrder, error)
	GetAllSubscriptionOrders(ctx context.Context, offset, limit int) ([]dbconnector.SubscriptionOrder, int64, error)
}
