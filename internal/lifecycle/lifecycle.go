package lifecycle

type Status string

// Статусы обычного заказа
const (
	StatusPendingPayment  Status = "pending_payment"
	StatusPaymentReceived Status = "payment_received"
	StatusPaymentVerified Status = "payment_verified"
	StatusPreparing       Status = "preparing"
	StatusOutForDelivery  Status = "out_for_delivery"
	StatusDelivered       Status = "delivered"
	StatusCancelled       Status = "cancelled"
)

// Статусы подписки (частично совпадают с заказом)
const (
	StatusPaymentSubmitted Status = "payment_submitted"
	StatusActive           Status = "active"
	StatusExpired          Status = "expired"
	StatusPaymentFailed    Status = "payment_failed"
)

// Transitions описывает какие переходы допустимы из каждого статуса.
// Обе таблицы используются через один и тот же CanTransition/Known,
// чтобы не дублировать логику для двух видов заказов.
type Transitions map[Status][]Status

var OrderTransitions = Transitions{
	StatusPendingPayment:  {StatusPaymentReceived, StatusCancelled},
	StatusPaymentReceived: {StatusPaymentVerified, StatusCancelled},
	StatusPaymentVerified: {StatusPreparing},
	StatusPreparing:       {StatusOutForDelivery},
	StatusOutForDelivery:  {StatusDelivered},
	StatusDelivered:       {},
	StatusCancelled:       {},
}

var SubscriptionTransitions = Transitions{
	StatusPendingPayment:   {StatusPaymentSubmitted, StatusCancelled},
	StatusPaymentSubmitted: {StatusPaymentVerified, StatusCancelled, StatusPaymentFailed},
	StatusPaymentVerified:  {StatusActive, StatusExpired},
	StatusActive:           {StatusExpired},
	StatusCancelled:        {},
	StatusExpired:          {},
	StatusPaymentFailed:    {},
}

// CanTransition проверяет что переход from -> to есть в таблице
func (t Transitions) CanTransition(from, to Status) bool {
	for _, next := range t[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Known проверяет что статус вообще существует для этого вида заказа.
// Админ может выставить любой известный статус, не только следующий по таблице.
func (t Transitions) Known(s Status) bool {
	_, ok := t[s]
	return ok
}

// CanCancel - отменить можно только пока платеж не подтвержден
func (t Transitions) CanCancel(from Status) bool {
	return t.CanTransition(from, StatusCancelled)
}
