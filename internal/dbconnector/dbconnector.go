package dbconnector

import (
	"context"
	"errors"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	lederrors "github.com/theheadmen/goMeals/internal/errors"
	"github.com/theheadmen/goMeals/internal/lifecycle"
)

type DBConnector struct {
	DB *gorm.DB
}

func OpenDBConnect(dsn string) (*DBConnector, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	return &DBConnector{DB: db}, err
}

func (dbConnector *DBConnector) DBInitialize() error {
	return dbConnector.DB.AutoMigrate(
		&User{},
		&Transaction{},
		&Food{},
		&Order{},
		&OrderItem{},
		&SubscriptionPlan{},
		&SubscriptionOrder{},
	)
}

func (dbConnector *DBConnector) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	result := dbConnector.DB.WithContext(ctx).Where("email = ?", email).First(&user)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return user, lederrors.ErrUserNotFound
	}
	return user, result.Error
}

func (dbConnector *DBConnector) GetUserByUserID(ctx context.Context, userID uint) (User, error) {
	var user User
	result := dbConnector.DB.WithContext(ctx).First(&user, userID)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return user, lederrors.ErrUserNotFound
	}
	return user, result.Error
}

func (dbConnector *DBConnector) AddUser(ctx context.Context, newUser *User) error {
	return dbConnector.DB.WithContext(ctx).Create(newUser).Error
}

func (dbConnector *DBConnector) UpdateUser(ctx context.Context, updUser *User) error {
	return dbConnector.DB.WithContext(ctx).Save(updUser).Error
}

func (dbConnector *DBConnector) GetAllUsers(ctx context.Context) ([]User, error) {
	var users []User
	result := dbConnector.DB.WithContext(ctx).Order("created_at DESC").Find(&users)
	return users, result.Error
}

// CreditTransaction атомарно пополняет баланс и пишет запись в историю.
// Обновление и запись идут в одной транзакции - либо применяются обе, либо ни одной.
func (dbConnector *DBConnector) CreditTransaction(ctx context.Context, userID uint, txType string, amount float64, description string) (User, error) {
	var user User
	err := dbConnector.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&User{}).
			Where("id = ?", userID).
			UpdateColumn("credits", gorm.Expr("credits + ?", amount))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return lederrors.ErrUserNotFound
		}

		entry := Transaction{
			UserID:      userID,
			Type:        txType,
			Amount:      amount,
			Description: description,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		return tx.First(&user, userID).Error
	})
	return user, err
}

// DebitTransaction атомарно списывает баланс, если средств достаточно.
// Проверка credits >= amount и само списание - одно условное обновление,
// поэтому два конкурентных списания не могут оба пройти по устаревшему балансу.
func (dbConnector *DBConnector) DebitTransaction(ctx context.Context, userID uint, txType string, amount float64, description string) (User, error) {
	var user User
	err := dbConnector.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&User{}).
			Where("id = ? AND credits >= ?", userID, amount).
			UpdateColumn("credits", gorm.Expr("credits - ?", amount))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// различаем "нет пользователя" и "не хватило средств"
			var cnt int64
			if err := tx.Model(&User{}).Where("id = ?", userID).Count(&cnt).Error; err != nil {
				return err
			}
			if cnt == 0 {
				return lederrors.ErrUserNotFound
			}
			return lederrors.ErrInsufficientCredits
		}

		entry := Transaction{
			UserID:      userID,
			Type:        txType,
			Amount:      amount,
			Description: description,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		return tx.First(&user, userID).Error
	})
	return user, err
}

func (dbConnector *DBConnector) GetTransactionsByUserID(ctx context.Context, userID uint) ([]Transaction, error) {
	var transactions []Transaction
	result := dbConnector.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at").
		Find(&transactions)
	return transactions, result.Error
}

func (dbConnector *DBConnector) AddOrder(ctx context.Context, newOrder *Order) error {
	return dbConnector.DB.WithContext(ctx).Create(newOrder).Error
}

// AddOrderWithDebit сохраняет заказ и списывает его стоимость с баланса
// в одной транзакции. Если средств не хватает - заказ не создается.
func (dbConnector *DBConnector) AddOrderWithDebit(ctx context.Context, newOrder *Order, txType string, description string) error {
	return dbConnector.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&User{}).
			Where("id = ? AND credits >= ?", newOrder.UserID, newOrder.Total).
			UpdateColumn("credits", gorm.Expr("credits - ?", newOrder.Total))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var cnt int64
			if err := tx.Model(&User{}).Where("id = ?", newOrder.UserID).Count(&cnt).Error; err != nil {
				return err
			}
			if cnt == 0 {
				return lederrors.ErrUserNotFound
			}
			return lederrors.ErrInsufficientCredits
		}

		entry := Transaction{
			UserID:      newOrder.UserID,
			Type:        txType,
			Amount:      newOrder.Total,
			Description: description,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		return tx.Create(newOrder).Error
	})
}

func (dbConnector *DBConnector) GetOrderByNumber(ctx context.Context, number string) (Order, error) {
	var order Order
	result := dbConnector.DB.WithContext(ctx).Preload("Items").Where("number = ?", number).First(&order)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return order, lederrors.ErrOrderNotFound
	}
	return order, result.Error
}

// UpdateOrderStatusCAS - условное обновление заказа: применяется только если
// текущий статус равен expected. Так конкурентные действия пользователя и
// админа над одним заказом не затирают друг друга.
func (dbConnector *DBConnector) UpdateOrderStatusCAS(ctx context.Context, number string, expected lifecycle.Status, updates map[string]interface{}) (bool, error) {
	result := dbConnector.DB.WithContext(ctx).Model(&Order{}).
		Where("number = ? AND status = ?", number, expected).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (dbConnector *DBConnector) GetOrdersByUserID(ctx context.Context, userID uint, offset, limit int) ([]Order, int64, error) {
	var orders []Order
	var total int64
	query := dbConnector.DB.WithContext(ctx).Model(&Order{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	result := query.Preload("Items").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&orders)
	return orders, total, result.Error
}

func (dbConnector *DBConnector) GetAllOrders(ctx context.Context, status lifecycle.Status, offset, limit int) ([]Order, int64, error) {
	var orders []Order
	var total int64
	query := dbConnector.DB.WithContext(ctx).Model(&Order{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	result := query.Preload("Items").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&orders)
	return orders, total, result.Error
}

// GetPendingVerificationOrders - заказы с присланным, но еще не проверенным платежом
func (dbConnector *DBConnector) GetPendingVerificationOrders(ctx context.Context, offset, limit int) ([]Order, int64, error) {
	var orders []Order
	var total int64
	query := dbConnector.DB.WithContext(ctx).Model(&Order{}).
		Where("status = ? AND is_verified = ?", lifecycle.StatusPaymentReceived, false)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	result := query.Preload("Items").
		Order("payment_submitted_at DESC").
		Offset(offset).Limit(limit).
		Find(&orders)
	return orders, total, result.Error
}

func (dbConnector *DBConnector) GetInProgressOrders(ctx context.Context, offset, limit int) ([]Order, int64, error) {
	var orders []Order
	var total int64
	query := dbConnector.DB.WithContext(ctx).Model(&Order{}).
		Where("is_verified = ? AND status IN ?", true, []lifecycle.Status{lifecycle.StatusPreparing, lifecycle.StatusOutForDelivery})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	result := query.Preload("Items").
		Order("updated_at DESC").
		Offset(offset).Limit(limit).
		Find(&orders)
	return orders, total, result.Error
}

func (dbConnector *DBConnector) GetDeliveredOrders(ctx context.Context, offset, limit int) ([]Order, int64, error) {
	var orders []Order
	var total int64
	query := dbConnector.DB.WithContext(ctx).Model(&Order{}).
		Where("is_verified = ? AND status = ?", true, lifecycle.StatusDelivered)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	result := query.Preload("Items").
		Order("updated_at DESC").
		Offset(offset).Limit(limit).
		Find(&orders)
	return orders, total, result.Error
}

// ---- меню ----

func (dbConnector *DBConnector) AddFood(ctx context.Context, food *Food) error {
	return dbConnector.DB.WithContext(ctx).Create(food).Error
}

func (dbConnector *DBConnector) GetAllFoods(ctx context.Context) ([]Food, error) {
	var foods []Food
	result := dbConnector.DB.WithContext(ctx).Order("created_at DESC").Find(&foods)
	return foods, result.Error
}

func (dbConnector *DBConnector) GetFoodByID(ctx context.Context, foodID uint) (Food, error) {
	var food Food
	result := dbConnector.DB.WithContext(ctx).First(&food, foodID)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return food, lederrors.ErrFoodNotFound
	}
	return food, result.Error
}

func (dbConnector *DBConnector) DeleteFood(ctx context.Context, foodID uint) error {
	result := dbConnector.DB.WithContext(ctx).Delete(&Food{}, foodID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return lederrors.ErrFoodNotFound
	}
	return nil
}

func (dbConnector *DBConnector) AddPlan(ctx context.Context, plan *SubscriptionPlan) error {
	return dbConnector.DB.WithContext(ctx).Create(plan).Error
}

func (dbConnector *DBConnector) UpdatePlan(ctx context.Context, plan *SubscriptionPlan) error {
	return dbConnector.DB.WithContext(ctx).Save(plan).Error
}

func (dbConnector *DBConnector) GetPlanByPlanID(ctx context.Context, planID string) (SubscriptionPlan, error) {
	var plan SubscriptionPlan
	result := dbConnector.DB.WithContext(ctx).Where("plan_id = ?", planID).First(&plan)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return plan, lederrors.ErrPlanNotFound
	}
	return plan, result.Error
}

func (dbConnector *DBConnector) GetActivePlans(ctx context.Context) ([]SubscriptionPlan, error) {
	var plans []SubscriptionPlan
	result := dbConnector.DB.WithContext(ctx).Where("is_active = ?", true).Order("price").Find(&plans)
	return plans, result.Error
}

func (dbConnector *DBConnector) GetPlansByType(ctx context.Context, planType string) ([]SubscriptionPlan, error) {
	var plans []SubscriptionPlan
	result := dbConnector.DB.WithContext(ctx).
		Where("plan_type = ? AND is_active = ?", planType, true).
		Order("price").
		Find(&plans)
	return plans, result.Error
}

// DeactivatePlan - удаление плана из каталога мягкое: план скрывается,
// но старые подписки со снимком этого плана продолжают жить
func (dbConnector *DBConnector) DeactivatePlan(ctx context.Context, planID string) error {
	result := dbConnector.DB.WithContext(ctx).Model(&SubscriptionPlan{}).
		Where("plan_id = ?", planID).
		Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return lederrors.ErrPlanNotFound
	}
	return nil
}

func (dbConnector *DBConnector) AddSubscriptionOrder(ctx context.Context, newOrder *SubscriptionOrder) error {
	return dbConnector.DB.WithContext(ctx).Create(newOrder).Error
}

func (dbConnector *DBConnector) AddSubscriptionOrderWithDebit(ctx context.Context, newOrder *SubscriptionOrder, description string) error {
	return dbConnector.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&User{}).
			Where("id = ? AND credits >= ?", newOrder.UserID, newOrder.Total).
			UpdateColumn("credits", gorm.Expr("credits - ?", newOrder.Total))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var cnt int64
			if err := tx.Model(&User{}).Where("id = ?", newOrder.UserID).Count(&cnt).Error; err != nil {
				return err
			}
			if cnt == 0 {
				return lederrors.ErrUserNotFound
			}
			return lederrors.ErrInsufficientCredits
		}

		entry := Transaction{
			UserID:      newOrder.UserID,
			Type:        TxSubscription,
			Amount:      newOrder.Total,
			Description: description,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		return tx.Create(newOrder).Error
	})
}

func (dbConnector *DBConnector) GetSubscriptionOrderByNumber(ctx context.Context, number string) (SubscriptionOrder, error) {
	var order SubscriptionOrder
	result := dbConnector.DB.WithContext(ctx).Where("number = ?", number).First(&order)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return order, lederrors.ErrOrderNotFound
	}
	return order, result.Error
}

func (dbConnector *DBConnector) UpdateSubscriptionStatusCAS(ctx context.Context, number string, expected lifecycle.Status, updates map[string]interface{}) (bool, error) {
	result := dbConnector.DB.WithContext(ctx).Model(&SubscriptionOrder{}).
		Where("number = ? AND status = ?", number, expected).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (dbConnector *DBConnector) GetSubscriptionOrdersByUserID(ctx context.Context, userID uint) ([]SubscriptionOrder, error) {
	var orders []SubscriptionOrder
	result := dbConnector.DB.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("created_at DESC").
		Find(&orders)
	return orders, result.Error
}

func (dbConnector *DBConnector) GetAllSubscriptionOrders(ctx context.Context, offset, limit int) ([]SubscriptionOrder, int64, error) {
	var orders []SubscriptionOrder
	var total int64
	query := dbConnector.DB.WithContext(ctx).Model(&SubscriptionOrder{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	result := query.Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&orders)
	return orders, total, result.Error
}

// DeleteAllData чистит все таблицы, нужно для интеграционных тестов
func (dbConnector *DBConnector) DeleteAllData(ctx context.Context) error {
	for _, model := range []interface{}{
		&OrderItem{}, &Order{}, &SubscriptionOrder{}, &SubscriptionPlan{}, &Food{}, &Transaction{}, &User{},
	} {
		if err := dbConnector.DB.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}
