package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/theheadmen/goMeals/internal/dbconnector"
	lederrors "github.com/theheadmen/goMeals/internal/errors"
	"github.com/theheadmen/goMeals/internal/lifecycle"
	"github.com/theheadmen/goMeals/internal/models"
	"github.com/theheadmen/goMeals/internal/uploader"
)

const (
	DefaultPageLimit      = 20
	DefaultAdminPageLimit = 100
	DefaultReferralBonus  = 200
)

// Paginate превращает page/limit в offset/limit для запроса.
// Страницы нумеруются с единицы, некорректные значения заменяются на дефолтные.
func Paginate(page, limit, defaultLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	return (page - 1) * limit, limit
}

// TotalPages считает число страниц и флаг hasMore для ответа
func TotalPages(total int64, page, limit int) (int, bool) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	return totalPages, page < totalPages
}

// ---- кредиты ----

func TopupLogic(ctx context.Context, storage Storage, req models.TopupRequest) (models.CreditsResponse, error) {
	if req.Amount <= 0 {
		return models.CreditsResponse{}, lederrors.ErrInvalidAmount
	}
	description := fmt.Sprintf("Wallet top-up of %.2f", req.Amount)
	user, err := storage.CreditTransaction(ctx, req.UserID, dbconnector.TxTopup, req.Amount, description)
	if err != nil {
		return models.CreditsResponse{}, err
	}
	return creditsResponse(ctx, storage, user)
}

func ReferralLogic(ctx context.Context, storage Storage, req models.ReferralRequest) (models.CreditsResponse, error) {
	amount := req.BonusAmount
	if amount <= 0 {
		amount = DefaultReferralBonus
	}
	description := fmt.Sprintf("Referral bonus of %.2f", amount)
	user, err := storage.CreditTransaction(ctx, req.UserID, dbconnector.TxReferral, amount, description)
	if err != nil {
		return models.CreditsResponse{}, err
	}
	return creditsResponse(ctx, storage, user)
}

func DeductLogic(ctx context.Context, storage Storage, req models.DeductRequest) (models.CreditsResponse, error) {
	if req.Amount <= 0 {
		return models.CreditsResponse{}, lederrors.ErrInvalidAmount
	}
	description := req.Description
	if description == "" {
		description = fmt.Sprintf("Debit of %.2f", req.Amount)
	}
	user, err := storage.DebitTransaction(ctx, req.UserID, dbconnector.TxDebit, req.Amount, description)
	if err != nil {
		return models.CreditsResponse{}, err
	}
	return creditsResponse(ctx, storage, user)
}

func GetCreditsLogic(ctx context.Context, storage Storage, userID uint) (models.CreditsResponse, error) {
	user, err := storage.GetUserByUserID(ctx, userID)
	if err != nil {
		return models.CreditsResponse{}, err
	}
	return creditsResponse(ctx, storage, user)
}

func creditsResponse(ctx context.Context, storage Storage, user dbconnector.User) (models.CreditsResponse, error) {
	transactions, err := storage.GetTransactionsByUserID(ctx, user.ID)
	if err != nil {
		return models.CreditsResponse{}, err
	}
	resp := models.CreditsResponse{
		Credits:      user.Credits,
		Transactions: make([]models.TransactionResponse, len(transactions)),
	}
	for i, tx := range transactions {
		resp.Transactions[i] = models.TransactionResponse{
			Type:        tx.Type,
			Amount:      tx.Amount,
			Description: tx.Description,
			Date:        tx.CreatedAt,
		}
	}
	return resp, nil
}

// ---- обычные заказы ----

// CreateOrderLogic создает заказ в статусе pending_payment.
// Подытог считаем сами по позициям, total из запроса сверяем с суммой.
// Контакты пользователя снимаются best-effort: если пользователя не нашли,
// заказ все равно создается, просто без снимка.
func CreateOrderLogic(ctx context.Context, storage Storage, userID uint, req models.CreateOrderRequest) (models.OrderResponse, error) {
	if len(req.Items) == 0 {
		return models.OrderResponse{}, lederrors.ErrEmptyItems
	}

	var subtotal float64
	items := make([]dbconnector.OrderItem, len(req.Items))
	for i, item := range req.Items {
		if item.Name == "" || item.Price < 0 || item.Quantity < 1 {
			return models.OrderResponse{}, lederrors.ErrEmptyItems
		}
		subtotal += item.Price * float64(item.Quantity)
		items[i] = dbconnector.OrderItem{
			Name:        item.Name,
			Price:       item.Price,
			Image:       item.Image,
			Description: item.Description,
			Type:        item.Type,
			Category:    item.Category,
			Quantity:    item.Quantity,
		}
	}

	total := subtotal + req.DeliveryFee + req.Tax
	if req.Total != 0 && math.Abs(req.Total-total) > 0.01 {
		return models.OrderResponse{}, lederrors.ErrTotalMismatch
	}

	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = "upi"
	}

	order := dbconnector.Order{
		Number:          fmt.Sprintf("ORD-%s", uuid.NewString()),
		UserID:          userID,
		Items:           items,
		Subtotal:        subtotal,
		DeliveryFee:     req.DeliveryFee,
		Tax:             req.Tax,
		Total:           total,
		DeliveryAddress: req.DeliveryAddress,
		PaymentMethod:   paymentMethod,
		OrderNotes:      req.OrderNotes,
		DeliveryType:    req.DeliveryType,
		Pincode:         req.Pincode,
		Status:          lifecycle.StatusPendingPayment,
		UserDetails:     snapshotUserDetails(ctx, storage, userID),
	}

	if paymentMethod == "credits" {
		// оплата кредитами: списание и создание заказа в одной транзакции,
		// заказ сразу считается оплаченным и проверенным
		order.Status = lifecycle.StatusPaymentVerified
		order.IsVerified = true
		description := fmt.Sprintf("Order payment deduction for %s", order.Number)
		if err := storage.AddOrderWithDebit(ctx, &order, dbconnector.TxDeduction, description); err != nil {
			return models.OrderResponse{}, err
		}
	} else {
		if err := storage.AddOrder(ctx, &order); err != nil {
			return models.OrderResponse{}, err
		}
	}

	log.Printf("For user %d, saved new order: %s\n", userID, order.Number)
	return toOrderResponse(order), nil
}

func snapshotUserDetails(ctx context.Context, storage Storage, userID uint) dbconnector.UserDetails {
	user, err := storage.GetUserByUserID(ctx, userID)
	if err != nil {
		log.Printf("can't fetch user %d for order snapshot: %v\n", userID, err)
		return dbconnector.UserDetails{}
	}
	return dbconnector.UserDetails{
		Name:    user.Name,
		Email:   user.Email,
		Contact: user.Contact,
	}
}

// SubmitOrderPaymentLogic прикрепляет скриншот оплаты к заказу.
// Переход pending_payment -> payment_received делается условным обновлением,
// повторная отправка по тому же заказу отклоняется как невалидный переход.
func SubmitOrderPaymentLogic(ctx context.Context, storage Storage, upl uploader.Uploader, userID uint, number, proof string) (models.OrderResponse, error) {
	order, err := storage.GetOrderByNumber(ctx, number)
	if err != nil {
		return models.OrderResponse{}, err
	}
	if order.UserID != userID {
		return models.OrderResponse{}, lederrors.ErrNotOwner
	}
	if order.Status != lifecycle.StatusPendingPayment {
		return models.OrderResponse{}, lederrors.ErrInvalidTransition
	}

	// для обычного заказа неудачная загрузка валит все действие
	proofURL := ""
	if proof != "" {
		result, err := upl.Upload(ctx, proof, "payment_screenshots")
		if err != nil {
			return models.OrderResponse{}, err
		}
		proofURL = result.URL
	}

	now := time.Now()
	ok, err := storage.UpdateOrderStatusCAS(ctx, number, lifecycle.StatusPendingPayment, map[string]interface{}{
		"status":               lifecycle.StatusPaymentReceived,
		"payment_proof":        proofURL,
		"payment_submitted_at": now,
	})
	if err != nil {
		return models.OrderResponse{}, err
	}
	if !ok {
		// кто-то успел поменять статус между чтением и обновлением
		return models.OrderResponse{}, lederrors.ErrInvalidTransition
	}

	updated, err := storage.GetOrderByNumber(ctx, number)
	if err != nil {
		return models.OrderResponse{}, err
	}
	return toOrderResponse(updated), nil
}

// VerifyOrderPaymentLogic - админ подтверждает (или снимает подтверждение) оплату.
// Разрешено только из payment_received.
func VerifyOrderPaymentLogic(ctx context.Context, storage Storage, number string, isVerified bool) (models.OrderResponse, error) {
	order, err := storage.GetOrderByNumber(ctx, number)
	if err != nil {
		return models.OrderResponse{}, err
	}
	if order.Status != lifecycle.StatusPaymentReceived {
		return models.OrderResponse{}, lederrors.ErrInvalidTransition
	}

	status := lifecycle.StatusPaymentReceived
	if isVerified {
		status = lifecycle.StatusPaymentVerified
	}
	ok, err := storage.UpdateOrderStatusCAS(ctx, number, lifecycle.StatusPaymentReceived, map[string]interface{}{
		"status":      status,
		"is_verified": isVerified,
	})
	if err != nil {
		return models.OrderResponse{}, err
	}
	if !ok {
		return models.OrderResponse{}, lederrors.ErrInvalidTransition
	}

	updated, err := storage.GetOrderByNumber(ctx, number)
	if err != nil {
		return models.OrderResponse{}, err
	}
	return toOrderResponse(updated), nil
}

// UpdateOrderStatusLogic - произвольное обновление статуса админом.
// Целевой статус обязан быть из известного набора, но не обязан идти
// по таблице переходов. Если заказ поменялся между чтением и обновлением -
// отказываем, пусть админ повторит с актуальным состоянием.
func UpdateOrderStatusLogic(ctx context.Context, storage Storage, number string, req models.UpdateStatusRequest) (models.OrderResponse, error) {
	order, err := storage.GetOrderByNumber(ctx, number)
	if err != nil {
		return models.OrderResponse{}, err
	}

	updates := map[string]interface{}{}
	if req.Status != "" {
		if !lifecycle.OrderTransitions.Known(req.Status) {
			return models.OrderResponse{}, lederrors.ErrUnknownStatus
		}
		updates["status"] = req.Status
	}
	if req.IsVerified != nil {
		updates["is_verified"] = *req.IsVerified
		// подтверждение оплаты само продвигает заказ в payment_verified
		if *req.IsVerified && req.Status == "" && order.Status == lifecycle.StatusPaymentReceived {
			updates["status"] = lifecycle.StatusPaymentVerified
		}
	}
	if len(updates) == 0 {
		return toOrderResponse(order), nil
	}

	ok, err := storage.UpdateOrderStatusCAS(ctx, number, order.Status, updates)
	if err != nil {
		return models.OrderResponse{}, err
	}
	if !ok {
		return models.OrderResponse{}, lederrors.ErrInvalidTransition
	}

	updated, err := storage.GetOrderByNumber(ctx, number)
	if err != nil {
		return models.OrderResponse{}, err
	}
	return toOrderResponse(updated), nil
}

func CancelOrderLogic(ctx context.Context, storage Storage, userID uint, number string) (models.OrderResponse, error) {
	order, err := storage.GetOrderByNumber(ctx, number)
	if err != nil {
		return models.OrderResponse{}, err
	}
	if order.UserID != userID {
		return models.OrderResponse{}, lederrors.ErrNotOwner
	}
	if !lifecycle.OrderTransitions.CanCancel(order.Status) {
		return models.OrderResponse{}, lederrors.ErrInvalidTransition
	}

	ok, err := storage.UpdateOrderStatusCAS(ctx, number, order.Status, map[string]interface{}{
		"status": lifecycle.StatusCancelled,
	})
	if err != nil {
		return models.OrderResponse{}, err
	}
	if !ok {
		return models.OrderResponse{}, lederrors.ErrInvalidTransition
	}

	updated, err := storage.GetOrderByNumber(ctx, number)
	if err != nil {
		return models.OrderResponse{}, err
	}
	return toOrderResponse(updated), nil
}

func GetOrderLogic(ctx context.Context, storage Storage, userID uint, isAdmin bool, number string) (models.OrderResponse, error) {
	order, err := storage.GetOrderByNumber(ctx, number)
	if err != nil {
		return models.OrderResponse{}, err
	}
	if !isAdmin && order.UserID != userID {
		return models.OrderResponse{}, lederrors.ErrNotOwner
	}
	return toOrderResponse(order), nil
}

func ListUserOrdersLogic(ctx context.Context, storage Storage, userID uint, page, limit int) (models.OrdersPage, error) {
	offset, limit := Paginate(page, limit, DefaultPageLimit)
	orders, total, err := storage.GetOrdersByUserID(ctx, userID, offset, limit)
	if err != nil {
		return models.OrdersPage{}, err
	}
	return buildOrdersPage(orders, total, page, limit), nil
}

func ListAllOrdersLogic(ctx context.Context, storage Storage, status lifecycle.Status, page, limit int) (models.OrdersPage, error) {
	offset, limit := Paginate(page, limit, DefaultAdminPageLimit)
	orders, total, err := storage.GetAllOrders(ctx, status, offset, limit)
	if err != nil {
		return models.OrdersPage{}, err
	}
	return buildOrdersPage(orders, total, page, limit), nil
}

func ListPendingVerificationLogic(ctx context.Context, storage Storage, page, limit int) (models.OrdersPage, error) {
	offset, limit := Paginate(page, limit, DefaultPageLimit)
	orders, total, err := storage.GetPendingVerificationOrders(ctx, offset, limit)
	if err != nil {
		return models.OrdersPage{}, err
	}
	return buildOrdersPage(orders, total, page, limit), nil
}

func ListInProgressLogic(ctx context.Context, storage Storage, page, limit int) (models.OrdersPage, error) {
	offset, limit := Paginate(page, limit, DefaultPageLimit)
	orders, total, err := storage.GetInProgressOrders(ctx, offset, limit)
	if err != nil {
		return models.OrdersPage{}, err
	}
	return buildOrdersPage(orders, total, page, limit), nil
}

func ListDeliveredLogic(ctx context.Context, storage Storage, page, limit int) (models.OrdersPage, error) {
	offset, limit := Paginate(page, limit, DefaultPageLimit)
	orders, total, err := storage.GetDeliveredOrders(ctx, offset, limit)
	if err != nil {
		return models.OrdersPage{}, err
	}
	return buildOrdersPage(orders, total, page, limit), nil
}

func buildOrdersPage(orders []dbconnector.Order, total int64, page, limit int) models.OrdersPage {
	if page < 1 {
		page = 1
	}
	totalPages, hasMore := TotalPages(total, page, limit)
	responses := make([]models.OrderResponse, len(orders))
	for i, order := range orders {
		responses[i] = toOrderResponse(order)
	}
	return models.OrdersPage{
		Success:    true,
		Count:      len(responses),
		Total:      total,
		Page:       page,
		TotalPages: totalPages,
		HasMore:    hasMore,
		Orders:     responses,
	}
}

func toOrderResponse(order dbconnector.Order) models.OrderResponse {
	return models.OrderResponse{
		OrderID:            order.Number,
		Status:             order.Status,
		IsVerified:         order.IsVerified,
		Items:              order.Items,
		Subtotal:           order.Subtotal,
		DeliveryFee:        order.DeliveryFee,
		Tax:                order.Tax,
		Total:              order.Total,
		DeliveryAddress:    order.DeliveryAddress,
		PaymentMethod:      order.PaymentMethod,
		OrderNotes:         order.OrderNotes,
		DeliveryType:       order.DeliveryType,
		Pincode:            order.Pincode,
		PaymentProof:       order.PaymentProof,
		PaymentSubmittedAt: order.PaymentSubmittedAt,
		UserDetails:        order.UserDetails,
		CreatedAt:          order.CreatedAt,
		UpdatedAt:          order.UpdatedAt,
	}
}

// IsNotFound - любая из "не нашли" ошибок хранилища
func IsNotFound(err error) bool {
	return errors.Is(err, lederrors.ErrUserNotFound) ||
		errors.Is(err, lederrors.ErrOrderNotFound) ||
		errors.Is(err, lederrors.ErrPlanNotFound)
}
