package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/theheadmen/goMeals/internal/dbconnector"
	lederrors "github.com/theheadmen/goMeals/internal/errors"
	"github.com/theheadmen/goMeals/internal/lifecycle"
	"github.com/theheadmen/goMeals/internal/models"
	"github.com/theheadmen/goMeals/internal/uploader"
)

// CreateSubscriptionOrderLogic создает заказ на подписку.
// План обязан существовать, его детали копируются в заказ на момент покупки -
// последующие правки каталога старые подписки не трогают.
func CreateSubscriptionOrderLogic(ctx context.Context, storage Storage, userID uint, req models.CreateSubscriptionRequest) (models.SubscriptionOrderResponse, error) {
	plan, err := storage.GetPlanByPlanID(ctx, req.PlanID)
	if err != nil {
		return models.SubscriptionOrderResponse{}, err
	}

	subtotal := plan.Price
	total := subtotal + req.DeliveryFee + req.Tax

	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = "upi"
	}
	deliveryType := req.DeliveryType
	if deliveryType == "" {
		deliveryType = "subscription"
	}

	order := dbconnector.SubscriptionOrder{
		Number: fmt.Sprintf("SUB-%s", uuid.NewString()),
		UserID: userID,
		PlanID: plan.PlanID,
		PlanDetails: dbconnector.PlanSnapshot{
			Title:       plan.Title,
			PlanType:    plan.PlanType,
			Duration:    plan.Duration,
			Price:       plan.Price,
			NoOfPersons: plan.NoOfPersons,
		},
		Subtotal:        subtotal,
		DeliveryFee:     req.DeliveryFee,
		Tax:             req.Tax,
		Total:           total,
		DeliveryAddress: req.DeliveryAddress,
		PaymentMethod:   paymentMethod,
		OrderNotes:      req.OrderNotes,
		DeliveryType:    deliveryType,
		Pincode:         req.Pincode,
		Status:          lifecycle.StatusPendingPayment,
		IsActive:        true,
		UserDetails:     snapshotUserDetails(ctx, storage, userID),
	}

	if paymentMethod == "credits" {
		// оплата кредитами: подписка сразу подтверждена и запущена
		now := time.Now()
		order.Status = lifecycle.StatusPaymentVerified
		order.PaymentVerifiedAt = &now
		order.SubscriptionStartDate = &now
		order.SubscriptionEndDate = order.CalculateEndDate()
		description := fmt.Sprintf("Subscription payment for plan %s", plan.PlanID)
		if err := storage.AddSubscriptionOrderWithDebit(ctx, &order, description); err != nil {
			return models.SubscriptionOrderResponse{}, err
		}
	} else {
		if err := storage.AddSubscriptionOrder(ctx, &order); err != nil {
			return models.SubscriptionOrderResponse{}, err
		}
	}

	log.Printf("For user %d, saved new subscription order: %s (plan %s)\n", userID, order.Number, plan.PlanID)
	return toSubscriptionResponse(order), nil
}

// SubmitSubscriptionPaymentLogic прикрепляет скриншот оплаты к подписке.
// Дата старта подписки ставится в момент отправки оплаты, дата окончания
// выводится из длительности плана. Загрузка на хостинг здесь best-effort:
// если не получилось - сохраняем исходный proof, а URL остается пустым.
func SubmitSubscriptionPaymentLogic(ctx context.Context, storage Storage, upl uploader.Uploader, userID uint, number, proof string) (models.SubscriptionOrderResponse, error) {
	if proof == "" {
		return models.SubscriptionOrderResponse{}, lederrors.ErrEmptyProof
	}

	order, err := storage.GetSubscriptionOrderByNumber(ctx, number)
	if err != nil {
		return models.SubscriptionOrderResponse{}, err
	}
	if order.UserID != userID {
		return models.SubscriptionOrderResponse{}, lederrors.ErrNotOwner
	}
	if order.Status != lifecycle.StatusPendingPayment {
		return models.SubscriptionOrderResponse{}, lederrors.ErrInvalidTransition
	}

	proofURL := ""
	result, err := upl.Upload(ctx, proof, "subscription_payments")
	if err != nil {
		log.Printf("proof upload failed for subscription %s: %v\n", number, err)
	} else {
		proofURL = result.URL
	}

	now := time.Now()
	order.SubscriptionStartDate = &now
	endDate := order.CalculateEndDate()

	updates := map[string]interface{}{
		"status":                  lifecycle.StatusPaymentSubmitted,
		"payment_proof":           proof,
		"payment_proof_url":       proofURL,
		"payment_submitted_at":    now,
		"subscription_start_date": now,
	}
	if endDate != nil {
		updates["subscription_end_date"] = *endDate
	}

	ok, err := storage.UpdateSubscriptionStatusCAS(ctx, number, lifecycle.StatusPendingPayment, updates)
	if err != nil {
		return models.SubscriptionOrderResponse{}, err
	}
	if !ok {
		return models.SubscriptionOrderResponse{}, lederrors.ErrInvalidTransition
	}

	updated, err := storage.GetSubscriptionOrderByNumber(ctx, number)
	if err != nil {
		return models.SubscriptionOrderResponse{}, err
	}
	return toSubscriptionResponse(updated), nil
}

// VerifySubscriptionPaymentLogic - админ подтверждает оплату подписки.
// Даты старта/окончания добиваются, если их не было (например, админ
// переводит заказ напрямую).
func VerifySubscriptionPaymentLogic(ctx context.Context, storage Storage, number string) (models.SubscriptionOrderResponse, error) {
	order, err := storage.GetSubscriptionOrderByNumber(ctx, number)
	if err != nil {
		return models.SubscriptionOrderResponse{}, err
	}
	if order.Status != lifecycle.StatusPaymentSubmitted {
		return models.SubscriptionOrderResponse{}, lederrors.ErrInvalidTransition
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":              lifecycle.StatusPaymentVerified,
		"payment_verified_at": now,
	}
	if order.SubscriptionStartDate == nil {
		order.SubscriptionStartDate = &now
		updates["subscription_start_date"] = now
	}
	if order.SubscriptionEndDate == nil {
		if endDate := order.CalculateEndDate(); endDate != nil {
			updates["subscription_end_date"] = *endDate
		}
	}

	ok, err := storage.UpdateSubscriptionStatusCAS(ctx, number, lifecycle.StatusPaymentSubmitted, updates)
	if err != nil {
		return models.SubscriptionOrderResponse{}, err
	}
	if !ok {
		return models.SubscriptionOrderResponse{}, lederrors.ErrInvalidTransition
	}

	updated, err := storage.GetSubscriptionOrderByNumber(ctx, number)
	if err != nil {
		return models.SubscriptionOrderResponse{}, err
	}
	return toSubscriptionResponse(updated), nil
}

func UpdateSubscriptionStatusLogic(ctx context.Context, storage Storage, number string, status lifecycle.Status) (models.SubscriptionOrderResponse, error) {
	if !lifecycle.SubscriptionTransitions.Known(status) {
		return models.SubscriptionOrderResponse{}, lederrors.ErrUnknownStatus
	}

	order, err := storage.GetSubscriptionOrderByNumber(ctx, number)
	if err != nil {
		return models.SubscriptionOrderResponse{}, err
	}

	ok, err := storage.UpdateSubscriptionStatusCAS(ctx, number, order.Status, map[string]interface{}{
		"status": status,
	})
	if err != nil {
		return models.SubscriptionOrderResponse{}, err
	}
	if !ok {
		return models.SubscriptionOrderResponse{}, lederrors.ErrInvalidTransition
	}

	updated, err := storage.GetSubscriptionOrderByNumber(ctx, number)
	if err != nil {
		return models.SubscriptionOrderResponse{}, err
	}
	return toSubscriptionResponse(updated), nil
}

// CancelSubscriptionOrderLogic - пользователь отменяет свою подписку.
// После подтверждения оплаты отмена уже невозможна.
func CancelSubscriptionOrderLogic(ctx context.Context, storage Storage, userID uint, number string) (models.SubscriptionOrderResponse, error) {
	order, err := storage.GetSubscriptionOrderByNumber(ctx, number)
	if err != nil {
		return models.SubscriptionOrderResponse{}, err
	}
	if order.UserID != userID {
		return models.SubscriptionOrderResponse{}, lederrors.ErrNotOwner
	}
	if !lifecycle.SubscriptionTransitions.CanCancel(order.Status) {
		return models.SubscriptionOrderResponse{}, lederrors.ErrInvalidTransition
	}

	ok, err := storage.UpdateSubscriptionStatusCAS(ctx, number, order.Status, map[string]interface{}{
		"status":    lifecycle.StatusCancelled,
		"is_active": false,
	})
	if err != nil {
		return models.SubscriptionOrderResponse{}, err
	}
	if !ok {
		return models.SubscriptionOrderResponse{}, lederrors.ErrInvalidTransition
	}

	updated, err := storage.GetSubscriptionOrderByNumber(ctx, number)
	if err != nil {
		return models.SubscriptionOrderResponse{}, err
	}
	return toSubscriptionResponse(updated), nil
}

func GetSubscriptionOrderLogic(ctx context.Context, storage Storage, userID uint, isAdmin bool, number string) (models.SubscriptionOrderResponse, error) {
	order, err := storage.GetSubscriptionOrderByNumber(ctx, number)
	if err != nil {
		return models.SubscriptionOrderResponse{}, err
	}
	if !isAdmin && order.UserID != userID {
		return models.SubscriptionOrderResponse{}, lederrors.ErrNotOwner
	}
	return toSubscriptionResponse(order), nil
}

func ListUserSubscriptionsLogic(ctx context.Context, storage Storage, userID uint) ([]models.SubscriptionOrderResponse, error) {
	orders, err := storage.GetSubscriptionOrdersByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	responses := make([]models.SubscriptionOrderResponse, len(orders))
	for i, order := range orders {
		responses[i] = toSubscriptionResponse(order)
	}
	return responses, nil
}

func ListAllSubscriptionsLogic(ctx context.Context, storage Storage, page, limit int) (models.SubscriptionOrdersPage, error) {
	offset, limit := Paginate(page, limit, DefaultPageLimit)
	orders, total, err := storage.GetAllSubscriptionOrders(ctx, offset, limit)
	if err != nil {
		return models.SubscriptionOrdersPage{}, err
	}
	if page < 1 {
		page = 1
	}
	totalPages, hasMore := TotalPages(total, page, limit)
	responses := make([]models.SubscriptionOrderResponse, len(orders))
	for i, order := range orders {
		responses[i] = toSubscriptionResponse(order)
	}
	return models.SubscriptionOrdersPage{
		Success:    true,
		Count:      len(responses),
		Total:      total,
		Page:       page,
		TotalPages: totalPages,
		HasMore:    hasMore,
		Orders:     responses,
	}, nil
}

func toSubscriptionResponse(order dbconnector.SubscriptionOrder) models.SubscriptionOrderResponse {
	return models.SubscriptionOrderResponse{
		OrderID:               order.Number,
		PlanID:                order.PlanID,
		PlanDetails:           order.PlanDetails,
		Status:                order.Status,
		Subtotal:              order.Subtotal,
		DeliveryFee:           order.DeliveryFee,
		Tax:                   order.Tax,
		Total:                 order.Total,
		DeliveryAddress:       order.DeliveryAddress,
		PaymentMethod:         order.PaymentMethod,
		OrderNotes:            order.OrderNotes,
		Pincode:               order.Pincode,
		PaymentProofURL:       order.PaymentProofURL,
		PaymentSubmittedAt:    order.PaymentSubmittedAt,
		PaymentVerifiedAt:     order.PaymentVerifiedAt,
		SubscriptionStartDate: order.SubscriptionStartDate,
		SubscriptionEndDate:   order.SubscriptionEndDate,
		IsActive:              order.IsActive,
		UserDetails:           order.UserDetails,
		CreatedAt:             order.CreatedAt,
	}
}
