package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/theheadmen/goMeals/internal/dbconnector"
	"github.com/theheadmen/goMeals/internal/lifecycle"
	"github.com/theheadmen/goMeals/internal/models"
	"github.com/theheadmen/goMeals/internal/server"
	"github.com/theheadmen/goMeals/internal/uploader"
)

type Config struct {
	Host     string
	Port     uint16
	Username string
	Password string
	DBName   string
}

type MealServiceTestSuite struct {
	suite.Suite
	db           *dbconnector.DBConnector
	ls           *server.ServerSystem
	router       *mux.Router
	postgres     testcontainers.Container
	uploadServer *httptest.Server
	ctx          context.Context
}

func (suite *MealServiceTestSuite) SetupSuite() {
	cfg := &Config{
		Username: "postgres",
		Password: "example",
		DBName:   "godb",
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	suite.ctx = ctx

	postgresContainer, err := tcpostgres.RunContainer(ctx,
		testcontainers.WithImage("docker.io/postgres:latest"),
		tcpostgres.WithDatabase(cfg.DBName),
		tcpostgres.WithUsername(cfg.Username),
		tcpostgres.WithPassword(cfg.Password),
		tcpostgres.WithInitScripts(),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second),
		),
	)

	require.NoError(suite.T(), err)
	suite.postgres = postgresContainer

	host, err := postgresContainer.Host(ctx)
	require.NoError(suite.T(), err)
	port, err := postgresContainer.MappedPort(ctx, "5432")
	require.NoError(suite.T(), err)
	dsn := fmt.Sprintf("host=%s port=%s user=postgres password=example dbname=godb sslmode=disable", host, port.Port())
	db, err := dbconnector.OpenDBConnect(dsn)
	require.NoError(suite.T(), err)
	err = db.DBInitialize()
	require.NoError(suite.T(), err)

	suite.db = db

	// Фейковый хостинг картинок вместо внешнего сервиса
	suite.uploadServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"secure_url":"https://cdn.example.com/proof.png","public_id":"proof"}`))
	}))

	upl := uploader.NewCloudUploader(suite.uploadServer.URL, "test_preset")
	suite.ls = server.NewServerSystem(db, upl)
	suite.router = suite.ls.MakeRouter()
}

func (suite *MealServiceTestSuite) TearDownSuite() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	suite.uploadServer.Close()
	require.NoError(suite.T(), suite.postgres.Terminate(ctx))
}

func (suite *MealServiceTestSuite) doRequest(method, path string, payload interface{}, cookie *http.Cookie) *httptest.ResponseRecorder {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		require.NoError(suite.T(), err)
	}
	req, err := http.NewRequest(method, path, bytes.NewReader(body))
	require.NoError(suite.T(), err)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	suite.router.ServeHTTP(rr, req)
	return rr
}

func (suite *MealServiceTestSuite) addUser(email, role string) dbconnector.User {
	user := dbconnector.User{Name: "Test User", Email: email, Password: "password", Role: role, Contact: "1234567890"}
	err := suite.db.AddUser(suite.ctx, &user)
	require.NoError(suite.T(), err)
	saved, err := suite.db.GetUserByEmail(suite.ctx, email)
	require.NoError(suite.T(), err)
	return saved
}

func cookieFor(email string) *http.Cookie {
	return &http.Cookie{Name: "session_token", Value: email}
}

// RegisterUserHandler + LoginUserHandler
// успешная регистрация, повторная - конфликт, логин с верным и неверным паролем
func (suite *MealServiceTestSuite) TestRegisterAndLogin() {
	if testing.Short() {
		suite.T().Skip("Skipping integration test")
	}
	suite.db.DeleteAllData(suite.ctx)

	user := dbconnector.User{Name: "Test User", Email: "reg@example.com", Password: "password"}
	rr := suite.doRequest("POST", "/api/user/register", user, nil)
	assert.Equal(suite.T(), http.StatusOK, rr.Code)

	// повторная регистрация того же email
	rr = suite.doRequest("POST", "/api/user/register", user, nil)
	assert.Equal(suite.T(), http.StatusConflict, rr.Code)

	// регистрация без пароля
	rr = suite.doRequest("POST", "/api/user/register", dbconnector.User{Email: "nopass@example.com"}, nil)
	assert.Equal(suite.T(), http.StatusBadRequest, rr.Code)

	rr = suite.doRequest("POST", "/api/user/login", dbconnector.User{Email: "reg@example.com", Password: "password"}, nil)
	assert.Equal(suite.T(), http.StatusOK, rr.Code)

	rr = suite.doRequest("POST", "/api/user/login", dbconnector.User{Email: "reg@example.com", Password: "wrong"}, nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, rr.Code)

	suite.db.DeleteAllData(suite.ctx)
}

// TopupHandler, ReferralHandler, DeductHandler, GetCreditsHandler
// пополнение, реферальный бонус по умолчанию, списание, нехватка средств - 402
func (suite *MealServiceTestSuite) TestCreditsFlow() {
	if testing.Short() {
		suite.T().Skip("Skipping integration test")
	}
	suite.db.DeleteAllData(suite.ctx)

	suite.addUser("wallet@example.com", "user")
	cookie := cookieFor("wallet@example.com")

	rr := suite.doRequest("POST", "/api/credits/topup", models.TopupRequest{Amount: 500}, cookie)
	require.Equal(suite.T(), http.StatusOK, rr.Code)
	var resp models.CreditsResponse
	require.NoError(suite.T(), json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(suite.T(), float64(500), resp.Credits)

	// бонус без суммы берет дефолтные 200
	rr = suite.doRequest("POST", "/api/credits/referral", models.ReferralRequest{}, cookie)
	require.Equal(suite.T(), http.StatusOK, rr.Code)
	require.NoError(suite.T(), json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(suite.T(), float64(700), resp.Credits)

	rr = suite.doRequest("POST", "/api/credits/deduct", models.DeductRequest{Amount: 100, Description: "manual adjustment"}, cookie)
	require.Equal(suite.T(), http.StatusOK, rr.Code)
	require.NoError(suite.T(), json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(suite.T(), float64(600), resp.Credits)

	// больше чем есть на счету
	rr = suite.doRequest("POST", "/api/credits/deduct", models.DeductRequest{Amount: 10000}, cookie)
	assert.Equal(suite.T(), http.StatusPaymentRequired, rr.Code)

	// нулевая сумма пополнения
	rr = suite.doRequest("POST", "/api/credits/topup", models.TopupRequest{Amount: 0}, cookie)
	assert.Equal(suite.T(), http.StatusBadRequest, rr.Code)

	// история должна содержать все три операции
	rr = suite.doRequest("GET", "/api/credits", nil, cookie)
	require.Equal(suite.T(), http.StatusOK, rr.Code)
	require.NoError(suite.T(), json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Len(suite.T(), resp.Transactions, 3)

	suite.db.DeleteAllData(suite.ctx)
}

// чужой кошелек без роли admin - 403
func (suite *MealServiceTestSuite) TestCreditsAccessControl() {
	if testing.Short() {
		suite.T().Skip("Skipping integration test")
	}
	suite.db.DeleteAllData(suite.ctx)

	suite.addUser("first@example.com", "user")
	second := suite.addUser("second@example.com", "user")
	admin := suite.addUser("admin@example.com", "admin")

	rr := suite.doRequest("POST", "/api/credits/topup", models.TopupRequest{UserID: second.ID, Amount: 100}, cookieFor("first@example.com"))
	assert.Equal(suite.T(), http.StatusForbidden, rr.Code)

	rr = suite.doRequest("POST", "/api/credits/topup", models.TopupRequest{UserID: second.ID, Amount: 100}, cookieFor(admin.Email))
	assert.Equal(suite.T(), http.StatusOK, rr.Code)

	// история чужих операций доступна только админу
	rr = suite.doRequest("GET", fmt.Sprintf("/api/transactions/%d", second.ID), nil, cookieFor("first@example.com"))
	assert.Equal(suite.T(), http.StatusForbidden, rr.Code)

	rr = suite.doRequest("GET", fmt.Sprintf("/api/transactions/%d", second.ID), nil, cookieFor(admin.Email))
	assert.Equal(suite.T(), http.StatusOK, rr.Code)

	suite.db.DeleteAllData(suite.ctx)
}

// Два конкурентных списания при балансе 100: должно пройти ровно одно
func (suite *MealServiceTestSuite) TestConcurrentDebits() {
	if testing.Short() {
		suite.T().Skip("Skipping integration test")
	}
	suite.db.DeleteAllData(suite.ctx)

	user := suite.addUser("race@example.com", "user")
	_, err := suite.db.CreditTransaction(suite.ctx, user.ID, dbconnector.TxTopup, 100, "initial balance")
	require.NoError(suite.T(), err)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = suite.db.DebitTransaction(context.Background(), user.ID, dbconnector.TxDebit, 60, "concurrent debit")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(suite.T(), 1, succeeded)

	updated, err := suite.db.GetUserByUserID(suite.ctx, user.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), float64(40), updated.Credits)

	suite.db.DeleteAllData(suite.ctx)
}

func orderRequest(total float64) models.CreateOrderRequest {
	return models.CreateOrderRequest{
		Items: []models.OrderItemInput{
			{Name: "Veg Thali", Price: 120, Quantity: 2},
			{Name: "Lassi", Price: 60, Quantity: 1},
		},
		DeliveryFee: 40,
		Tax:         15,
		Total:       total,
		Pincode:     "560001",
	}
}

// CreateOrderHandler
// корректный заказ, пустой список позиций, расхождение суммы
func (suite *MealServiceTestSuite) TestCreateOrder() {
	if testing.Short() {
		suite.T().Skip("Skipping integration test")
	}
	suite.db.DeleteAllData(suite.ctx)

	suite.addUser("buyer@example.com", "user")
	cookie := cookieFor("buyer@example.com")

	// 120*2 + 60 + 40 + 15 = 355
	rr := suite.doRequest("POST", "/api/orders", orderRequest(355), cookie)
	require.Equal(suite.T(), http.StatusCreated, rr.Code)
	var resp models.OrderResponse
	require.NoError(suite.T(), json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(suite.T(), lifecycle.StatusPendingPayment, resp.Status)
	assert.Equal(suite.T(), float64(300), resp.Subtotal)
	assert.Equal(suite.T(), float64(355), resp.Total)
	assert.Equal(suite.T(), "upi", resp.PaymentMethod)
	assert.Equal(suite.T(), "buyer@example.com", resp.UserDetails.Email)
	assert.NotEmpty(suite.T(), resp.OrderID)

	rr = suite.doRequest("POST", "/api/orders", models.CreateOrderRequest{}, cookie)
	assert.Equal(suite.T(), http.StatusBadRequest, rr.Code)

	rr = suite.doRequest("POST", "/api/orders", orderRequest(999), cookie)
	assert.Equal(suite.T(), http.StatusBadRequest, rr.Code)

	suite.db.DeleteAllData(suite.ctx)
}

// Оплата кредитами: заказ сразу payment_verified, баланс уменьшен,
// при нехватке средств - 402 и заказ не создается
func (suite *MealServiceTestSuite) TestCreateOrderWithCredits() {
	if testing.Short() {
		suite.T().Skip("Skipping integration test")
	}
	suite.db.DeleteAllData(suite.ctx)

	user := suite.addUser("credits@example.com", "user")
	_, err := suite.db.CreditTransaction(suite.ctx, user.ID, dbconnector.TxTopup, 400, "initial balance")
	require.NoError(suite.T(), err)
	cookie := cookieFor("credits@example.com")

	req := orderRequest(355)
	req.PaymentMethod = "credits"
	rr := suite.doRequest("POST", "/api/orders", req, cookie)
	require.Equal(suite.T(), http.StatusCreated, rr.Code)
	var resp models.OrderResponse
	require.NoError(suite.T(), json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(suite.T(), lifecycle.StatusPaymentVerified, resp.Status)
	assert.True(suite.T(), resp.IsVerified)

	updated, err := suite.db.GetUserByUserID(suite.ctx, user.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), float64(45), updated.Credits)

	// на второй такой же заказ денег уже не хватает
	rr = suite.doRequest("POST", "/api/orders", req, cookie)
	assert.Equal(suite.T(), http.StatusPaymentRequired, rr.Code)

	suite.db.DeleteAllData(suite.ctx)
}

// SubmitOrderPaymentHandler + VerifyOrderPaymentHandler
// полный путь: создание, отправка скриншота, повторная отправка - отказ,
// подтверждение админом, подтверждение не из того статуса - отказ
func (suite *MealServiceTestSuite) TestOrderPaymentFlow() {
	if testing.Short() {
		suite.T().Skip("Skipping integration test")
	}
	suite.db.DeleteAllData(suite.ctx)

	suite.addUser("flow@example.com", "user")
	suite.addUser("flowadmin@example.com", "admin")
	cookie := cookieFor("flow@example.com")
	adminCookie := cookieFor("flowadmin@example.com")

	rr := suite.doRequest("POST", "/api/orders", orderRequest(355), cookie)
	require.Equal(suite.T(), http.StatusCreated, rr.Code)
	var order models.OrderResponse
	require.NoError(suite.T(), json.Unmarshal(rr.Body.Bytes(), &order))

	proof := models.SubmitPaymentRequest{PaymentProof: "data:image/png;base64,iVBORw0KGgo="}
	rr = suite.doRequest("POST", "/api/orders/"+order.OrderID+"/payment", proof, cookie)
	require.Equal(suite.T(), http.StatusOK, rr.Code)
	require.NoError(suite.T(), json.Unmarshal(rr.Body.Bytes(), &order))
	assert.Equal(suite.T(), lifecycle.StatusPaymentReceived, order.Status)
	assert.Equal(suite.T(), "https://cdn.example.com/proof.png", order.PaymentProof)
	assert.NotNil(suite.T(), order.PaymentSubmittedAt)

	// повторная отправка по тому же заказу
	rr = suite.doRequest("POST", "/api/orders/"+order.OrderID+"/payment", proof, cookie)
	assert.Equal(suite.T(), http.StatusBadRequest, rr.Code)

	// подтверждение не админом
	rr = suite.doRequest("PUT", "/api/orders/"+order.OrderID+"/verify", models.VerifyPaymentRequest{IsVerified: true}, cookie)
	assert.Equal(suite.T(), http.StatusForbidden, rr.Code)

	rr = suite.doRequest("PUT", "/api/orders/"+order.OrderID+"/verify", models.VerifyPaymentRequest{IsVerified: true}, adminCookie)
	require.Equal(suite.T(), http.StatusOK, rr.Code)
	require.NoError(suite.T(), json.Unmarshal(rr.Body.Bytes(), &order))
	assert.Equal(suite.T(), lifecycle.StatusPaymentVerified, order.Status)
	assert.True(suite.T(), order.IsVerified)

	// повторное подтверждение уже подтвержденного
	rr = suite.doRequest("PUT", "/api/orders/"+order.OrderID+"/verify", models.VerifyPaymentRequest{IsVerified: true}, adminCookie)
	assert.Equal(suite.T(), http.StatusBadRequest, rr.Code)

	suite.db.DeleteAllData(suite.ctx)
}

// UpdateOrderStatusHandler
// продвижение по статусам, неизвестный статус - 400
func (suite *MealServiceTestSuite) TestUpdateOrderStatus() {
	if testing.Short() {
		suite.T().Skip("Skipping integration test")
	}
	suite.db.DeleteAllData(suite.ctx)

	user := suite.addUser("status@example.com", "user")
	suite.addUser("statusadmin@example.com", "admin")
	adminCookie := cookieFor("statusadmin@example.com")

	order := dbconnector.Order{Number: "ORD-status-test", UserID: user.ID, Status: lifecycle.StatusPaymentVerified, IsVerified: true}
	require.NoError(suite.T(), suite.db.AddOrder(suite.ctx, &order))

	rr := suite.doRequest("PUT", "/api/orders/ORD-status-test/status", models.UpdateStatusRequest{Status: lifecycle.StatusPreparing}, adminCookie)
	require.Equal(suite.T(), http.StatusOK, rr.Code)
	var resp models.OrderResponse
	require.NoError(suite.T(), json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(suite.T(), lifecycle.StatusPreparing, resp.Status)

	rr = suite.doRequest("PUT", "/api/orders/ORD-status-test/status", models.UpdateStatusRequest{Status: lifecycle.Status("shipped")}, adminCookie)
	assert.Equal(suite.T(), http.StatusBadRequest, rr.Code)

	// несуществующий заказ
	rr = suite.doRequest("PUT", "/api/orders/ORD-missing/status", models.UpdateStatusRequest{Status: lifecycle.StatusPreparing}, adminCookie)
	assert.Equal(suite.T(), http.StatusNotFound, rr.Code)

	suite.db.DeleteAllData(suite.ctx)
}

// CancelOrderHandler
// своя отмена до подтверждения, чужая - 403, после подтверждения - 400
func (suite *MealServiceTestSuite) TestCancelOrder() {
	if testing.Short() {
		suite.T().Skip("Skipping integration test")
	}
	suite.db.DeleteAllData(suite.ctx)

	user := suite.addUser("owner@example.com", "user")
	suite.addUser("other@example.com", "user")

	order := dbconnector.Order{Number: "ORD-cancel-test", UserID: user.ID, Status: lifecycle.StatusPendingPayment}
	require.NoError(suite.T(), suite.db.AddOrder(suite.ctx, &order))

	rr := suite.doRequest("POST", "/api/orders/ORD-cancel-test/cancel", nil, cookieFor("other@example.com"))
	assert.Equal(suite.T(), http.StatusForbidden, rr.Code)

	rr = suite.doRequest("POST", "/api/orders/ORD-cancel-test/cancel", nil, cookieFor("owner@example.com"))
	require.Equal(suite.T(), http.StatusOK, rr.Code)
	var resp models.OrderResponse
	require.NoError(suite.T(), json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(suite.T(), lifecycle.StatusCancelled, resp.Status)

	// после подтверждения оплаты отменить нельзя
	verified := dbconnector.Order{Number: "ORD-verified-test", UserID: user.ID, Status: lifecycle.StatusPaymentVerified, IsVerified: true}
	require.NoError(suite.T(), suite.db.AddOrder(suite.ctx, &verified))
	rr = suite.doRequest("POST", "/api/orders/ORD-verified-test/cancel", nil, cookieFor("owner@example.com"))
	assert.Equal(suite.T(), http.StatusBadRequest, rr.Code)

	suite.db.DeleteAllData(suite.ctx)
}

// GetOrdersHandler
// 45 заказов, limit 20: страницы 1 и 2 полные, 3 неполная, 4 пустая
func (suite *MealServiceTestSuite) TestOrdersPagination() {
	if testing.Short() {
		suite.T().Skip("Skipping integration test")
	}
	suite.db.DeleteAllData(suite.ctx)

	user := suite.addUser("pager@example.com", "user")
	for i := 0; i < 45; i++ {
		order := dbconnector.Order{Number: fmt.Sprintf("ORD-page-%d", i), UserID: user.ID, Status: lifecycle.StatusPendingPayment}
		require.NoError(suite.T(), suite.db.AddOrder(suite.ctx, &order))
	}
	cookie := cookieFor("pager@example.com")

	testCases := []struct {
		name            string
		page            int
		expectedCount   int
		expectedHasMore bool
	}{
		{"first page", 1, 20, true},
		{"second page", 2, 20, true},
		{"last partial page", 3, 5, false},
		{"past the end", 4, 0, false},
	}

	for _, tc := range testCases {
		suite.T().Run(tc.name, func(t *testing.T) {
			rr := suite.doRequest("GET", fmt.Sprintf("/api/orders?page=%d&limit=20", tc.page), nil, cookie)
			require.Equal(t, http.StatusOK, rr.Code)
			var page models.OrdersPage
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
			assert.True(t, page.Success)
			assert.Equal(t, tc.expectedCount, page.Count)
			assert.Equal(t, int64(45), page.Total)
			assert.Equal(t, 3, page.TotalPages)
			assert.Equal(t, tc.expectedHasMore, page.HasMore)
			assert.Len(t, page.Orders, tc.expectedCount)
		})
	}

	suite.db.DeleteAllData(suite.ctx)
}

// Админские выборки: pending verification, in progress, delivered
func (suite *MealServiceTestSuite) TestAdminOrderQueues() {
	if testing.Short() {
		suite.T().Skip("Skipping integration test")
	}
	suite.db.DeleteAllData(suite.ctx)

	user := suite.addUser("queues@example.com", "user")
	suite.addUser("queuesadmin@example.com", "admin")
	adminCookie := cookieFor("queuesadmin@example.com")

	now := time.Now()
	orders := []dbconnector.Order{
		{Number: "ORD-q-pending", UserID: user.ID, Status: lifecycle.StatusPaymentReceived, PaymentSubmittedAt: &now},
		{Number: "ORD-q-preparing", UserID: user.ID, Status: lifecycle.StatusPreparing, IsVerified: true},
		{Number: "ORD-q-delivery", UserID: user.ID, Status: lifecycle.StatusOutForDelivery, IsVerified: true},
		{Number: "ORD-q-done", UserID: user.ID, Status: lifecycle.StatusDelivered, IsVerified: true},
	}
	for i := range orders {
		require.NoError(suite.T(), suite.db.AddOrder(suite.ctx, &orders[i]))
	}

	testCases := []struct {
		name          string
		path          string
		expectedCount int
	}{
		{"pending verification", "/api/admin/orders/pending", 1},
		{"in progress", "/api/admin/orders/inprogress", 2},
		{"delivered", "/api/admin/orders/delivered", 1},
		{"all orders", "/api/admin/orders", 4},
		{"filter by status", "/api/admin/orders?status=preparing", 1},
	}

	for _, tc := range testCases {
		suite.T().Run(tc.name, func(t *testing.T) {
			rr := suite.doRequest("GET", tc.path, nil, adminCookie)
			require.Equal(t, http.StatusOK, rr.Code)
			var page models.OrdersPage
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
			assert.Equal(t, tc.expectedCount, page.Count)
		})
	}

	// обычному пользователю сюда нельзя
	rr := suite.doRequest("GET", "/api/admin/orders", nil, cookieFor("queues@example.com"))
	assert.Equal(suite.T(), http.StatusForbidden, rr.Code)

	suite.db.DeleteAllData(suite.ctx)
}

func (suite *MealServiceTestSuite) addPlan(planID, duration string, price float64) {
	plan := dbconnector.SubscriptionPlan{
		PlanID:   planID,
		Title:    "Weekly Veg",
		PlanType: "veg",
		Duration: duration,
		Price:    price,
		IsActive: true,
	}
	require.NoError(suite.T(), suite.db.AddPlan(suite.ctx, &plan))
}

// Подписки: создание, отправка оплаты со скриншотом, даты старта и окончания,
// подтверждение админом, отмена после подтверждения - отказ
func (suite *MealServiceTestSuite) TestSubscriptionFlow() {
	if testing.Short() {
		suite.T().Skip("Skipping integration test")
	}
	suite.db.DeleteAllData(suite.ctx)

	suite.addUser("sub@example.com", "user")
	suite.addUser("subadmin@example.com", "admin")
	cookie := cookieFor("sub@example.com")
	adminCookie := cookieFor("subadmin@example.com")
	suite.addPlan("weekly-veg", "7 days", 1500)

	rr := suite.doRequest("POST", "/api/subscriptions", models.CreateSubscriptionRequest{PlanID: "weekly-veg", DeliveryFee: 100}, cookie)
	require.Equal(suite.T(), http.StatusCreated, rr.Code)
	var sub models.SubscriptionOrderResponse
	require.NoError(suite.T(), json.Unmarshal(rr.Body.Bytes(), &sub))
	assert.Equal(suite.T(), lifecycle.StatusPendingPayment, sub.Status)
	assert.Equal(suite.T(), float64(1600), sub.Total)
	assert.Equal(suite.T(), "Weekly Veg", sub.PlanDetails.Title)
	assert.Nil(suite.T(), sub.SubscriptionStartDate)

	// несуществующий план
	rr = suite.doRequest("POST", "/api/subscriptions", models.CreateSubscriptionRequest{PlanID: "no-such-plan"}, cookie)
	assert.Equal(suite.T(), http.StatusNotFound, rr.Code)

	// отправка оплаты проставляет даты старта и окончания
	proof := models.SubmitPaymentRequest{PaymentProof: "data:image/png;base64,iVBORw0KGgo="}
	rr = suite.doRequest("POST", "/api/subscriptions/"+sub.OrderID+"/payment", proof, cookie)
	require.Equal(suite.T(), http.StatusOK, rr.Code)
	require.NoError(suite.T(), json.Unmarshal(rr.Body.Bytes(), &sub))
	assert.Equal(suite.T(), lifecycle.StatusPaymentSubmitted, sub.Status)
	assert.Equal(suite.T(), "https://cdn.example.com/proof.png", sub.PaymentProofURL)
	require.NotNil(suite.T(), sub.SubscriptionStartDate)
	require.NotNil(suite.T(), sub.SubscriptionEndDate)
	expectedEnd := sub.SubscriptionStartDate.AddDate(0, 0, 7)
	assert.WithinDuration(suite.T(), expectedEnd, *sub.SubscriptionEndDate, time.Minute)

	// пустой скриншот
	rr = suite.doRequest("POST", "/api/subscriptions/"+sub.OrderID+"/payment", models.SubmitPaymentRequest{}, cookie)
	assert.Equal(suite.T(), http.StatusBadRequest, rr.Code)

	rr = suite.doRequest("PUT", "/api/subscriptions/"+sub.OrderID+"/verify", models.VerifyPaymentRequest{IsVerified: true}, adminCookie)
	require.Equal(suite.T(), http.StatusOK, rr.Code)
	require.NoError(suite.T(), json.Unmarshal(rr.Body.Bytes(), &sub))
	assert.Equal(suite.T(), lifecycle.StatusPaymentVerified, sub.Status)
	assert.NotNil(suite.T(), sub.PaymentVerifiedAt)

	// после подтверждения отмена невозможна
	rr = suite.doRequest("POST", "/api/subscriptions/"+sub.OrderID+"/cancel", nil, cookie)
	assert.Equal(suite.T(), http.StatusBadRequest, rr.Code)

	suite.db.DeleteAllData(suite.ctx)
}

// Отмена подписки до оплаты снимает is_active,
// список своих подписок отмененные не показывает
func (suite *MealServiceTestSuite) TestSubscriptionCancel() {
	if testing.Short() {
		suite.T().Skip("Skipping integration test")
	}
	suite.db.DeleteAllData(suite.ctx)

	suite.addUser("subcancel@example.com", "user")
	cookie := cookieFor("subcancel@example.com")
	suite.addPlan("monthly-veg", "1 month", 5000)

	rr := suite.doRequest("POST", "/api/subscriptions", models.CreateSubscriptionRequest{PlanID: "monthly-veg"}, cookie)
	require.Equal(suite.T(), http.StatusCreated, rr.Code)
	var sub models.SubscriptionOrderResponse
	require.NoError(suite.T(), json.Unmarshal(rr.Body.Bytes(), &sub))

	rr = suite.doRequest("GET", "/api/subscriptions", nil, cookie)
	require.Equal(suite.T(), http.StatusOK, rr.Code)
	var subs []models.SubscriptionOrderResponse
	require.NoError(suite.T(), json.Unmarshal(rr.Body.Bytes(), &subs))
	assert.Len(suite.T(), subs, 1)

	rr = suite.doRequest("POST", "/api/subscriptions/"+sub.OrderID+"/cancel", nil, cookie)
	require.Equal(suite.T(), http.StatusOK, rr.Code)
	require.NoError(suite.T(), json.Unmarshal(rr.Body.Bytes(), &sub))
	assert.Equal(suite.T(), lifecycle.StatusCancelled, sub.Status)
	assert.False(suite.T(), sub.IsActive)

	rr = suite.doRequest("GET", "/api/subscriptions", nil, cookie)
	require.Equal(suite.T(), http.StatusOK, rr.Code)
	require.NoError(suite.T(), json.Unmarshal(rr.Body.Bytes(), &subs))
	assert.Len(suite.T(), subs, 0)

	suite.db.DeleteAllData(suite.ctx)
}

// Оплата подписки кредитами: сразу payment_verified с датами
func (suite *MealServiceTestSuite) TestSubscriptionWithCredits() {
	if testing.Short() {
		suite.T().Skip("Skipping integration test")
	}
	suite.db.DeleteAllData(suite.ctx)

	user := suite.addUser("subcredits@example.com", "user")
	_, err := suite.db.CreditTransaction(suite.ctx, user.ID, dbconnector.TxTopup, 2000, "initial balance")
	require.NoError(suite.T(), err)
	cookie := cookieFor("subcredits@example.com")
	suite.addPlan("weekly-credits", "7 days", 1500)

	req := models.CreateSubscriptionRequest{PlanID: "weekly-credits", PaymentMethod: "credits"}
	rr := suite.doRequest("POST", "/api/subscriptions", req, cookie)
	require.Equal(suite.T(), http.StatusCreated, rr.Code)
	var sub models.SubscriptionOrderResponse
	require.NoError(suite.T(), json.Unmarshal(rr.Body.Bytes(), &sub))
	assert.Equal(suite.T(), lifecycle.StatusPaymentVerified, sub.Status)
	assert.NotNil(suite.T(), sub.SubscriptionStartDate)
	assert.NotNil(suite.T(), sub.SubscriptionEndDate)

	updated, err := suite.db.GetUserByUserID(suite.ctx, user.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), float64(500), updated.Credits)

	suite.db.DeleteAllData(suite.ctx)
}

// Каталог планов: добавление и правка только для админа, список публичный
func (suite *MealServiceTestSuite) TestPlansCatalog() {
	if testing.Short() {
		suite.T().Skip("Skipping integration test")
	}
	suite.db.DeleteAllData(suite.ctx)

	suite.addUser("planuser@example.com", "user")
	suite.addUser("planadmin@example.com", "admin")
	adminCookie := cookieFor("planadmin@example.com")

	plan := dbconnector.SubscriptionPlan{PlanID: "new-plan", Title: "Monthly Deluxe", Duration: "30 days", Price: 6000}
	rr := suite.doRequest("POST", "/api/plans", plan, cookieFor("planuser@example.com"))
	assert.Equal(suite.T(), http.StatusForbidden, rr.Code)

	rr = suite.doRequest("POST", "/api/plans", plan, adminCookie)
	assert.Equal(suite.T(), http.StatusCreated, rr.Code)

	// список доступен без авторизации
	rr = suite.doRequest("GET", "/api/plans", nil, nil)
	require.Equal(suite.T(), http.StatusOK, rr.Code)
	var plans []dbconnector.SubscriptionPlan
	require.NoError(suite.T(), json.Unmarshal(rr.Body.Bytes(), &plans))
	require.Len(suite.T(), plans, 1)
	assert.Equal(suite.T(), "Monthly Deluxe", plans[0].Title)

	plan.Title = "Monthly Deluxe v2"
	rr = suite.doRequest("PUT", "/api/plans/new-plan", plan, adminCookie)
	require.Equal(suite.T(), http.StatusOK, rr.Code)

	rr = suite.doRequest("PUT", "/api/plans/no-such-plan", plan, adminCookie)
	assert.Equal(suite.T(), http.StatusNotFound, rr.Code)

	suite.db.DeleteAllData(suite.ctx)
}

// План по ключу, выборка по типу, мягкое удаление:
// удаленный план пропадает из каталога, но остается в базе
func (suite *MealServiceTestSuite) TestPlanLookupAndDelete() {
	if testing.Short() {
		suite.T().Skip("Skipping integration test")
	}
	suite.db.DeleteAllData(suite.ctx)

	suite.addUser("planlookup@example.com", "user")
	suite.addUser("planlookupadmin@example.com", "admin")
	adminCookie := cookieFor("planlookupadmin@example.com")

	vegPlan := dbconnector.SubscriptionPlan{PlanID: "veg-weekly", Title: "Veg Weekly", PlanType: "veg", Duration: "7 days", Price: 1500, IsActive: true}
	nonvegPlan := dbconnector.SubscriptionPlan{PlanID: "nonveg-weekly", Title: "Non-Veg Weekly", PlanType: "nonveg", Duration: "7 days", Price: 2000, IsActive: true}
	require.NoError(suite.T(), suite.db.AddPlan(suite.ctx, &vegPlan))
	require.NoError(suite.T(), suite.db.AddPlan(suite.ctx, &nonvegPlan))

	rr := suite.doRequest("GET", "/api/plans/veg-weekly", nil, nil)
	require.Equal(suite.T(), http.StatusOK, rr.Code)
	var plan dbconnector.SubscriptionPlan
	require.NoError(suite.T(), json.Unmarshal(rr.Body.Bytes(), &plan))
	assert.Equal(suite.T(), "Veg Weekly", plan.Title)

	rr = suite.doRequest("GET", "/api/plans/no-such-plan", nil, nil)
	assert.Equal(suite.T(), http.StatusNotFound, rr.Code)

	rr = suite.doRequest("GET", "/api/plans/type/veg", nil, nil)
	require.Equal(suite.T(), http.StatusOK, rr.Code)
	var plans []dbconnector.SubscriptionPlan
	require.NoError(suite.T(), json.Unmarshal(rr.Body.Bytes(), &plans))
	require.Len(suite.T(), plans, 1)
	assert.Equal(suite.T(), "veg-weekly", plans[0].PlanID)

	// удаление только для админа
	rr = suite.doRequest("DELETE", "/api/plans/veg-weekly", nil, cookieFor("planlookup@example.com"))
	assert.Equal(suite.T(), http.StatusForbidden, rr.Code)

	rr = suite.doRequest("DELETE", "/api/plans/veg-weekly", nil, adminCookie)
	require.Equal(suite.T(), http.StatusOK, rr.Code)

	// скрытый план не виден ни по ключу, ни в каталоге
	rr = suite.doRequest("GET", "/api/plans/veg-weekly", nil, nil)
	assert.Equal(suite.T(), http.StatusNotFound, rr.Code)
	rr = suite.doRequest("GET", "/api/plans", nil, nil)
	require.Equal(suite.T(), http.StatusOK, rr.Code)
	require.NoError(suite.T(), json.Unmarshal(rr.Body.Bytes(), &plans))
	require.Len(suite.T(), plans, 1)
	assert.Equal(suite.T(), "nonveg-weekly", plans[0].PlanID)

	rr = suite.doRequest("DELETE", "/api/plans/no-such-plan", nil, adminCookie)
	assert.Equal(suite.T(), http.StatusNotFound, rr.Code)

	suite.db.DeleteAllData(suite.ctx)
}

// Меню: добавление и удаление только для админа, список и позиция публичные
func (suite *MealServiceTestSuite) TestFoodCatalog() {
	if testing.Short() {
		suite.T().Skip("Skipping integration test")
	}
	suite.db.DeleteAllData(suite.ctx)

	suite.addUser("fooduser@example.com", "user")
	suite.addUser("foodadmin@example.com", "admin")
	adminCookie := cookieFor("foodadmin@example.com")

	food := dbconnector.Food{Name: "Paneer Tikka", Description: "Grilled paneer", Price: 180}
	rr := suite.doRequest("POST", "/api/foods", food, cookieFor("fooduser@example.com"))
	assert.Equal(suite.T(), http.StatusForbidden, rr.Code)

	rr = suite.doRequest("POST", "/api/foods", food, adminCookie)
	require.Equal(suite.T(), http.StatusCreated, rr.Code)
	var created dbconnector.Food
	require.NoError(suite.T(), json.Unmarshal(rr.Body.Bytes(), &created))
	require.NotZero(suite.T(), created.ID)

	// без имени или цены позицию не создать
	rr = suite.doRequest("POST", "/api/foods", dbconnector.Food{Description: "no name"}, adminCookie)
	assert.Equal(suite.T(), http.StatusBadRequest, rr.Code)

	// список и позиция доступны без авторизации
	rr = suite.doRequest("GET", "/api/foods", nil, nil)
	require.Equal(suite.T(), http.StatusOK, rr.Code)
	var foods []dbconnector.Food
	require.NoError(suite.T(), json.Unmarshal(rr.Body.Bytes(), &foods))
	require.Len(suite.T(), foods, 1)
	assert.Equal(suite.T(), "Paneer Tikka", foods[0].Name)

	rr = suite.doRequest("GET", fmt.Sprintf("/api/foods/%d", created.ID), nil, nil)
	require.Equal(suite.T(), http.StatusOK, rr.Code)

	rr = suite.doRequest("GET", "/api/foods/999999", nil, nil)
	assert.Equal(suite.T(), http.StatusNotFound, rr.Code)

	rr = suite.doRequest("DELETE", fmt.Sprintf("/api/foods/%d", created.ID), nil, cookieFor("fooduser@example.com"))
	assert.Equal(suite.T(), http.StatusForbidden, rr.Code)

	rr = suite.doRequest("DELETE", fmt.Sprintf("/api/foods/%d", created.ID), nil, adminCookie)
	require.Equal(suite.T(), http.StatusOK, rr.Code)

	rr = suite.doRequest("GET", fmt.Sprintf("/api/foods/%d", created.ID), nil, nil)
	assert.Equal(suite.T(), http.StatusNotFound, rr.Code)

	suite.db.DeleteAllData(suite.ctx)
}

// Профиль: правка своих имени и контакта, чужой профиль виден только админу,
// список пользователей только для админа
func (suite *MealServiceTestSuite) TestUserProfileAndAdminUsers() {
	if testing.Short() {
		suite.T().Skip("Skipping integration test")
	}
	suite.db.DeleteAllData(suite.ctx)

	user := suite.addUser("profile@example.com", "user")
	other := suite.addUser("otherprofile@example.com", "user")
	suite.addUser("profileadmin@example.com", "admin")
	cookie := cookieFor("profile@example.com")
	adminCookie := cookieFor("profileadmin@example.com")

	rr := suite.doRequest("PUT", "/api/user/profile", models.UpdateProfileRequest{Name: "Renamed User", Contact: "9999999999"}, cookie)
	require.Equal(suite.T(), http.StatusOK, rr.Code)
	var updated dbconnector.User
	require.NoError(suite.T(), json.Unmarshal(rr.Body.Bytes(), &updated))
	assert.Equal(suite.T(), "Renamed User", updated.Name)
	assert.Equal(suite.T(), "9999999999", updated.Contact)
	assert.Empty(suite.T(), updated.Password)

	// правка сохранилась в базе
	saved, err := suite.db.GetUserByUserID(suite.ctx, user.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Renamed User", saved.Name)

	// свой профиль виден, чужой - только админу
	rr = suite.doRequest("GET", fmt.Sprintf("/api/users/%d", user.ID), nil, cookie)
	assert.Equal(suite.T(), http.StatusOK, rr.Code)
	rr = suite.doRequest("GET", fmt.Sprintf("/api/users/%d", other.ID), nil, cookie)
	assert.Equal(suite.T(), http.StatusForbidden, rr.Code)
	rr = suite.doRequest("GET", fmt.Sprintf("/api/users/%d", other.ID), nil, adminCookie)
	assert.Equal(suite.T(), http.StatusOK, rr.Code)

	rr = suite.doRequest("GET", "/api/admin/users", nil, cookie)
	assert.Equal(suite.T(), http.StatusForbidden, rr.Code)

	rr = suite.doRequest("GET", "/api/admin/users", nil, adminCookie)
	require.Equal(suite.T(), http.StatusOK, rr.Code)
	var users []dbconnector.User
	require.NoError(suite.T(), json.Unmarshal(rr.Body.Bytes(), &users))
	assert.Len(suite.T(), users, 3)
	for _, u := range users {
		assert.Empty(suite.T(), u.Password)
	}

	suite.db.DeleteAllData(suite.ctx)
}

func TestMealServiceTestSuite(t *testing.T) {
	suite.Run(t, new(MealServiceTestSuite))
}
