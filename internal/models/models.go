package models

import (
	"time"

	"github.com/theheadmen/goMeals/internal/dbconnector"
	"github.com/theheadmen/goMeals/internal/lifecycle"
)

type OrderItemInput struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Image       string  `json:"image,omitempty"`
	Description string  `json:"description,omitempty"`
	Type        string  `json:"type,omitempty"`
	Category    string  `json:"category,omitempty"`
	Quantity    int     `json:"quantity"`
}

type CreateOrderRequest struct {
	Items           []OrderItemInput    `json:"items"`
	DeliveryFee     float64             `json:"deliveryFee"`
	Tax             float64             `json:"tax"`
	Total           float64             `json:"total"`
	DeliveryAddress dbconnector.Address `json:"deliveryAddress"`
	PaymentMethod   string              `json:"paymentMethod"`
	OrderNotes      string              `json:"orderNotes"`
	DeliveryType    string              `json:"deliveryType"`
	Pincode         string              `json:"pincode"`
}

type CreateSubscriptionRequest struct {
	PlanID          string              `json:"planId"`
	DeliveryFee     float64             `json:"deliveryFee"`
	Tax             float64             `json:"tax"`
	DeliveryAddress dbconnector.Address `json:"deliveryAddress"`
	PaymentMethod   string              `json:"paymentMethod"`
	OrderNotes      string              `json:"orderNotes"`
	DeliveryType    string              `json:"deliveryType"`
	Pincode         string              `json:"pincode"`
}

type UpdateProfileRequest struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
}

type SubmitPaymentRequest struct {
	PaymentProof string `json:"paymentProof"`
}

type VerifyPaymentRequest struct {
	IsVerified bool `json:"isVerified"`
}

type UpdateStatusRequest struct {
	Status     lifecycle.Status `json:"status,omitempty"`
	IsVerified *bool            `json:"isVerified,omitempty"`
}

type TopupRequest struct {
	UserID uint    `json:"userId"`
	Amount float64 `json:"amount"`
}

type ReferralRequest struct {
	UserID      uint    `json:"userId"`
	BonusAmount float64 `json:"bonusAmount"`
}

type DeductRequest struct {
	UserID      uint    `json:"userId"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

type TransactionResponse struct {
	Type        string    `json:"type"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
}

type CreditsResponse struct {
	Credits      float64               `json:"credits"`
	Transactions []TransactionResponse `json:"transactions"`
}

type OrderResponse struct {
	OrderID            string                  `json:"orderId"`
	Status             lifecycle.Status        `json:"status"`
	IsVerified         bool                    `json:"isVerified"`
	Items              []dbconnector.OrderItem `json:"items"`
	Subtotal           float64                 `json:"subtotal"`
	DeliveryFee        float64                 `json:"deliveryFee"`
	Tax                float64                 `json:"tax"`
	Total              float64                 `json:"total"`
	DeliveryAddress    dbconnector.Address     `json:"deliveryAddress"`
	PaymentMethod      string                  `json:"paymentMethod"`
	OrderNotes         string                  `json:"orderNotes,omitempty"`
	DeliveryType       string                  `json:"deliveryType,omitempty"`
	Pincode            string                  `json:"pincode,omitempty"`
	PaymentProof       string                  `json:"paymentProof,omitempty"`
	PaymentSubmittedAt *time.Time              `json:"paymentSubmittedAt,omitempty"`
	UserDetails        dbconnector.UserDetails `json:"userDetails"`
	CreatedAt          time.Time               `json:"createdAt"`
	UpdatedAt          time.Time               `json:"updatedAt"`
}

type SubscriptionOrderResponse struct {
	OrderID               string                   `json:"orderId"`
	PlanID                string                   `json:"planId"`
	PlanDetails           dbconnector.PlanSnapshot `json:"planDetails"`
	Status                lifecycle.Status         `json:"status"`
	Subtotal              float64                  `json:"subtotal"`
	DeliveryFee           float64                  `json:"deliveryFee"`
	Tax                   float64                  `json:"tax"`
	Total                 float64                  `json:"total"`
	DeliveryAddress       dbconnector.Address      `json:"deliveryAddress"`
	PaymentMethod         string                   `json:"paymentMethod"`
	OrderNotes            string                   `json:"orderNotes,omitempty"`
	Pincode               string                   `json:"pincode,omitempty"`
	PaymentProofURL       string                   `json:"paymentProofUrl,omitempty"`
	PaymentSubmittedAt    *time.Time               `json:"paymentSubmittedAt,omitempty"`
	PaymentVerifiedAt     *time.Time               `json:"paymentVerifiedAt,omitempty"`
	SubscriptionStartDate *time.Time               `json:"subscriptionStartDate,omitempty"`
	SubscriptionEndDate   *time.Time               `json:"subscriptionEndDate,omitempty"`
	IsActive              bool                     `json:"isActive"`
	UserDetails           dbconnector.UserDetails  `json:"userDetails"`
	CreatedAt             time.Time                `json:"createdAt"`
}

// OrdersPage - единый формат постраничного ответа.
// hasMore = page < totalPages, страница за пределами диапазона
// возвращает пустой список, а не ошибку.
type OrdersPage struct {
	Success    bool            `json:"success"`
	Count      int             `json:"count"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	TotalPages int             `json:"totalPages"`
	HasMore    bool            `json:"hasMore"`
	Orders     []OrderResponse `json:"orders"`
}

type SubscriptionOrdersPage struct {
	Success    bool                        `json:"success"`
	Count      int                         `json:"count"`
	Total      int64                       `json:"total"`
	Page       int                         `json:"page"`
	TotalPages int                         `json:"totalPages"`
	HasMore    bool                        `json:"hasMore"`
	Orders     []SubscriptionOrderResponse `json:"orders"`
}
