package order

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	authmw "github.com/techhaven/shop/internal/middleware/auth"
	"github.com/techhaven/shop/internal/models"
	"github.com/techhaven/shop/internal/mykafka"
)

const listOrdersLimit = 100

type OrderHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
}

func (h *OrderHandler) publish(c echo.Context, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "order_events", key, event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

// CreateOrder snapshots the cart into an immutable order. Lines whose
// product has vanished are dropped, the total is computed from current
// prices, and the cart is emptied afterwards.
func (h *OrderHandler) CreateOrder(c echo.Context) error {
	user, err := authmw.CurrentUser(c)
	if err != nil {
		return err
	}

	var req struct {
		ShippingAddress models.JSONMap `json:"shipping_address"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var cart models.Cart
	if err := h.DB.Where("user_id = ?", user.ID).First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusBadRequest, "cart is empty")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if len(cart.Items) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "cart is empty")
	}

	orderItems := make(models.OrderItems, 0, len(cart.Items))
	var total float64
	for _, item := range cart.Items {
		var product models.Product
		if err := h.DB.Where("id = ?", item.ProductID).First(&product).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}

		orderItems = append(orderItems, models.OrderItem{
			ProductID:   item.ProductID,
			ProductName: product.Name,
			Price:       product.Price,
			Quantity:    item.Quantity,
		})
		total += product.Price * float64(item.Quantity)
	}

	now := time.Now().UTC()
	order := models.Order{
		ID:              uuid.NewString(),
		UserID:          user.ID,
		Items:           orderItems,
		TotalAmount:     total,
		Status:          models.OrderStatusPending,
		ShippingAddress: req.ShippingAddress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := h.DB.Create(&order).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	cart.Items = models.CartItems{}
	cart.UpdatedAt = now
	if err := h.DB.Save(&cart).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, user.ID, map[string]any{
		"type":    "order_created",
		"userID":  user.ID,
		"orderID": order.ID,
		"total":   order.TotalAmount,
	})

	return c.JSON(http.StatusCreated, order)
}

// GetOrders lists the caller's orders, or every order for an admin.
func (h *OrderHandler) GetOrders(c echo.Context) error {
	user, err := authmw.CurrentUser(c)
	if err != nil {
		return err
	}

	q := h.DB.Model(&models.Order{})
	if !user.IsAdmin {
		q = q.Where("user_id = ?", user.ID)
	}

	var orders []models.Order
	if err := q.Order("created_at DESC").Limit(listOrdersLimit).Find(&orders).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	user, err := authmw.CurrentUser(c)
	if err != nil {
		return err
	}

	var order models.Order
	if err := h.DB.Where("id = ?", c.Param("id")).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if !user.IsAdmin && order.UserID != user.ID {
		return echo.NewHTTPError(http.StatusForbidden, "access denied")
	}

	return c.JSON(http.StatusOK, order)
}
