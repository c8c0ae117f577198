package dbconnector

import (
	"time"

	"gorm.io/gorm"

	"github.com/theheadmen/goMeals/internal/lifecycle"
)

type User struct {
	gorm.Model
	Name     string  `json:"name" gorm:"not null"`
	Contact  string  `json:"contact"`
	Email    string  `json:"email" gorm:"unique;not null"`
	Password string  `json:"password" gorm:"not null"`
	Role     string  `json:"role" gorm:"default:'user'"`
	Credits  float64 `json:"credits" gorm:"default:0"`
}

// Transaction - одна запись в истории кредитов пользователя.
// Amount хранится всегда положительным, знак определяется типом:
// topup/referral/subscription пополняют баланс, deduction/debit списывают.
type Transaction struct {
	gorm.Model
	UserID      uint    `gorm:"not null;index"`
	Type        string  `gorm:"not null"`
	Amount      float64 `gorm:"not null"`
	Description string
}

const (
	TxTopup        = "topup"
	TxReferral     = "referral"
	TxSubscription = "subscription"
	TxDeduction    = "deduction"
	TxDebit        = "debit"
)

type Address struct {
	AddrID    string  `json:"id"`
	Type      string  `json:"type"`
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// UserDetails - снимок контактов пользователя на момент создания заказа,
// чтобы заказ не менялся вместе с профилем
type UserDetails struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

type OrderItem struct {
	gorm.Model  `json:"-"`
	OrderID     uint    `json:"-" gorm:"index"`
	Name        string  `json:"name" gorm:"not null"`
	Price       float64 `json:"price" gorm:"not null"`
	Image       string  `json:"image"`
	Description string  `json:"description"`
	Type        string  `json:"type"`
	Category    string  `json:"category"`
	Quantity    int     `json:"quantity" gorm:"default:1"`
}

type Order struct {
	gorm.Model
	Number             string           `gorm:"unique;not null"`
	UserID             uint             `gorm:"not null;index"`
	Items              []OrderItem      `gorm:"foreignKey:OrderID"`
	Subtotal           float64          `gorm:"not null"`
	DeliveryFee        float64          `gorm:"default:0"`
	Tax                float64          `gorm:"default:0"`
	Total              float64          `gorm:"not null"`
	DeliveryAddress    Address          `gorm:"embedded;embeddedPrefix:addr_"`
	PaymentMethod      string           `gorm:"default:'upi'"`
	OrderNotes         string
	DeliveryType       string
	Pincode            string
	Status             lifecycle.Status `gorm:"default:'pending_payment'"`
	PaymentProof       string
	PaymentSubmittedAt *time.Time
	IsVerified         bool             `gorm:"default:false"`
	UserDetails        UserDetails      `gorm:"embedded;embeddedPrefix:user_"`
}

// Food - позиция в меню. Заказ хранит собственные копии позиций (OrderItem),
// так что правка меню старые заказы не меняет.
type Food struct {
	gorm.Model
	Name        string  `json:"name" gorm:"not null"`
	Description string  `json:"description"`
	Price       float64 `json:"price" gorm:"not null"`
	Image       string  `json:"image"`
}

type PlanIncludes struct {
	Breakfast         bool `json:"breakfast" gorm:"default:false"`
	Lunch             bool `json:"lunch" gorm:"default:false"`
	Dinner            bool `json:"dinner" gorm:"default:false"`
	FreeDelivery      bool `json:"freeDelivery" gorm:"default:false"`
	NutritionTracking bool `json:"nutritionTracking" gorm:"default:false"`
	PrioritySupport   bool `json:"prioritySupport" gorm:"default:false"`
}

type SubscriptionPlan struct {
	gorm.Model
	PlanID            string       `json:"planId" gorm:"unique;not null"`
	Title             string       `json:"title" gorm:"not null"`
	Subtitle          string       `json:"subtitle"`
	PlanType          string       `json:"planType" gorm:"not null"`
	NoOfPersons       int          `json:"noOfPersons" gorm:"default:1"`
	Duration          string       `json:"duration" gorm:"not null"`
	Price             float64      `json:"price" gorm:"not null"`
	OriginalPrice     float64      `json:"originalPrice"`
	SavingsPercentage float64      `json:"savingsPercentage" gorm:"default:0"`
	IsPopular         bool         `json:"isPopular" gorm:"default:false"`
	Features          []string     `json:"features" gorm:"serializer:json"`
	Includes          PlanIncludes `json:"includes" gorm:"embedded;embeddedPrefix:inc_"`
	IsActive          bool         `json:"isActive" gorm:"default:true"`
}

// PlanSnapshot - копия деталей плана на момент покупки.
// Храним прямо в заказе, чтобы правка каталога не трогала старые подписки.
type PlanSnapshot struct {
	Title       string  `json:"title"`
	PlanType    string  `json:"planType"`
	Duration    string  `json:"duration"`
	Price       float64 `json:"price"`
	NoOfPersons int     `json:"noOfPersons"`
}

type SubscriptionOrder struct {
	gorm.Model
	Number                string           `gorm:"unique;not null"`
	UserID                uint             `gorm:"not null;index"`
	PlanID                string           `gorm:"not null"`
	PlanDetails           PlanSnapshot     `gorm:"embedded;embeddedPrefix:plan_"`
	Subtotal              float64          `gorm:"default:0"`
	DeliveryFee           float64          `gorm:"default:0"`
	Tax                   float64          `gorm:"default:0"`
	Total                 float64          `gorm:"not null"`
	DeliveryAddress       Address          `gorm:"embedded;embeddedPrefix:addr_"`
	PaymentMethod         string           `gorm:"default:'upi'"`
	OrderNotes            string
	DeliveryType          string           `gorm:"default:'subscription'"`
	Pincode               string
	Status                lifecycle.Status `gorm:"default:'pending_payment'"`
	PaymentProof          string
	PaymentProofURL       string
	PaymentSubmittedAt    *time.Time
	PaymentVerifiedAt     *time.Time
	SubscriptionStartDate *time.Time
	SubscriptionEndDate   *time.Time
	IsActive              bool             `gorm:"default:true"`
	UserDetails           UserDetails      `gorm:"embedded;embeddedPrefix:user_"`
}

// CalculateEndDate выводит дату окончания подписки из даты старта и
// длительности плана. Если дата старта не выставлена или длительность
// не распознана - возвращаем nil.
func (so *SubscriptionOrder) CalculateEndDate() *time.Time {
	if so.SubscriptionStartDate == nil {
		return nil
	}
	days := lifecycle.DurationDays(so.PlanDetails.Duration)
	if days == 0 {
		return nil
	}
	end := so.SubscriptionStartDate.AddDate(0, 0, days)
	return &end
}
