package order

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	authmw "github.com/techhaven/shop/internal/middleware/auth"
	"github.com/techhaven/shop/internal/models"
	"github.com/techhaven/shop/internal/mykafka"
)

func newOrderHandler(t *testing.T) *OrderHandler {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Product{}, &models.Cart{}, &models.Order{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	return &OrderHandler{DB: db, Producer: &mykafka.Producer{}}
}

func doJSONRequest(t *testing.T, user models.User, method, target string, payload any) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()

	data, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(method, target, bytes.NewReader(data))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	authmw.SetCurrentUser(c, user)
	return rec, c
}

func seedCart(t *testing.T, db *gorm.DB, userID string, items models.CartItems) {
	t.Helper()
	cart := models.Cart{ID: "cart-" + userID, UserID: userID, Items: items, UpdatedAt: time.Now().UTC()}
	require.NoError(t, db.Create(&cart).Error)
}

var (
	buyer = models.User{ID: "u-1", Email: "buyer@example.com", PasswordHash: "x", FullName: "Buyer"}
	admin = models.User{ID: "a-1", Email: "admin@example.com", PasswordHash: "x", FullName: "Admin", IsAdmin: true}
)

func TestCreateOrderSnapshotsCart(t *testing.T) {
	h := newOrderHandler(t)

	product := models.Product{ID: "p-1", Name: "MacBook Pro", Brand: "Apple", Category: "Professional", Price: 100.00}
	require.NoError(t, h.DB.Create(&product).Error)
	seedCart(t, h.DB, buyer.ID, models.CartItems{{ProductID: "p-1", Quantity: 3}})

	rec, c := doJSONRequest(t, buyer, http.MethodPost, "/api/orders", map[string]any{
		"shipping_address": map[string]any{"city": "Almaty", "street": "Abay 1"},
	})
	require.NoError(t, h.CreateOrder(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var order models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	require.Equal(t, 300.00, order.TotalAmount)
	require.Equal(t, models.OrderStatusPending, order.Status)
	require.Len(t, order.Items, 1)
	require.Equal(t, models.OrderItem{ProductID: "p-1", ProductName: "MacBook Pro", Price: 100.00, Quantity: 3}, order.Items[0])
	require.Equal(t, "Almaty", order.ShippingAddress["city"])

	// cart is emptied, not deleted
	var cart models.Cart
	require.NoError(t, h.DB.Where("user_id = ?", buyer.ID).First(&cart).Error)
	require.Empty(t, cart.Items)
}

func TestCreateOrderEmptyCart(t *testing.T) {
	h := newOrderHandler(t)

	// no cart at all
	_, c := doJSONRequest(t, buyer, http.MethodPost, "/api/orders", map[string]any{"shipping_address": map[string]any{}})
	err := h.CreateOrder(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusBadRequest, he.Code)

	// cart present but empty
	seedCart(t, h.DB, buyer.ID, models.CartItems{})
	_, c2 := doJSONRequest(t, buyer, http.MethodPost, "/api/orders", map[string]any{"shipping_address": map[string]any{}})
	err = h.CreateOrder(c2)
	he, ok = err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusBadRequest, he.Code)
}

func TestCreateOrderDropsVanishedProducts(t *testing.T) {
	h := newOrderHandler(t)

	product := models.Product{ID: "p-1", Name: "XPS 13", Brand: "Dell", Category: "Ultrabook", Price: 50.00}
	require.NoError(t, h.DB.Create(&product).Error)
	seedCart(t, h.DB, buyer.ID, models.CartItems{
		{ProductID: "p-1", Quantity: 2},
		{ProductID: "gone", Quantity: 5},
	})

	rec, c := doJSONRequest(t, buyer, http.MethodPost, "/api/orders", map[string]any{"shipping_address": map[string]any{}})
	require.NoError(t, h.CreateOrder(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var order models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	require.Len(t, order.Items, 1)
	require.Equal(t, "p-1", order.Items[0].ProductID)
	require.Equal(t, 100.00, order.TotalAmount)
}

func TestGetOrdersScopedByOwnership(t *testing.T) {
	h := newOrderHandler(t)

	now := time.Now().UTC()
	orders := []models.Order{
		{ID: "o-1", UserID: buyer.ID, Items: models.OrderItems{}, Status: models.OrderStatusPending, CreatedAt: now.Add(-2 * time.Hour), UpdatedAt: now},
		{ID: "o-2", UserID: buyer.ID, Items: models.OrderItems{}, Status: models.OrderStatusPending, CreatedAt: now.Add(-1 * time.Hour), UpdatedAt: now},
		{ID: "o-3", UserID: "someone-else", Items: models.OrderItems{}, Status: models.OrderStatusPending, CreatedAt: now, UpdatedAt: now},
	}
	for i := range orders {
		require.NoError(t, h.DB.Create(&orders[i]).Error)
	}

	rec, c := doJSONRequest(t, buyer, http.MethodGet, "/api/orders", nil)
	require.NoError(t, h.GetOrders(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var own []models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &own))
	require.Len(t, own, 2)
	// newest first
	require.Equal(t, "o-2", own[0].ID)
	require.Equal(t, "o-1", own[1].ID)

	recAdmin, cAdmin := doJSONRequest(t, admin, http.MethodGet, "/api/orders", nil)
	require.NoError(t, h.GetOrders(cAdmin))

	var all []models.Order
	require.NoError(t, json.Unmarshal(recAdmin.Body.Bytes(), &all))
	require.Len(t, all, 3)
	require.Equal(t, "o-3", all[0].ID)
}

func TestGetOrder(t *testing.T) {
	h := newOrderHandler(t)

	now := time.Now().UTC()
	order := models.Order{ID: "o-1", UserID: buyer.ID, Items: models.OrderItems{}, Status: models.OrderStatusPending, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, h.DB.Create(&order).Error)

	rec, c := doJSONRequest(t, buyer, http.MethodGet, "/api/orders/o-1", nil)
	c.SetParamNames("id")
	c.SetParamValues("o-1")
	require.NoError(t, h.GetOrder(c))
	require.Equal(t, http.StatusOK, rec.Code)

	// admin can read anyone's order
	recAdmin, cAdmin := doJSONRequest(t, admin, http.MethodGet, "/api/orders/o-1", nil)
	cAdmin.SetParamNames("id")
	cAdmin.SetParamValues("o-1")
	require.NoError(t, h.GetOrder(cAdmin))
	require.Equal(t, http.StatusOK, recAdmin.Code)

	// another user is rejected
	stranger := models.User{ID: "u-2", Email: "other@example.com", PasswordHash: "x"}
	_, cStranger := doJSONRequest(t, stranger, http.MethodGet, "/api/orders/o-1", nil)
	cStranger.SetParamNames("id")
	cStranger.SetParamValues("o-1")
	err := h.GetOrder(cStranger)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusForbidden, he.Code)

	_, cMissing := doJSONRequest(t, buyer, http.MethodGet, "/api/orders/nope", nil)
	cMissing.SetParamNames("id")
	cMissing.SetParamValues("nope")
	err = h.GetOrder(cMissing)
	he, ok = err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusNotFound, he.Code)
}
