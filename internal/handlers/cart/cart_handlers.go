package cart

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

type CartHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
}

func (h *CartHandler) publish(c echo.Context, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "cart_events", key, event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

// GetCart returns the user's cart, creating an empty one on first access.
func (h *CartHandler) GetCart(c echo.Context) error {
	user, err := authmw.CurrentUser(c)
	if err != nil {
		return err
	}

	var cart models.Cart
	err = h.DB.Where("user_id = ?", user.ID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cart = models.Cart{
			ID:        uuid.NewString(),
			UserID:    user.ID,
			Items:     models.CartItems{},
			UpdatedAt: time.Now().UTC(),
		}
		if err := h.DB.Create(&cart).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	} else if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, cart)
}

// AddToCart merges by product id: an existing line gains the quantity, a
// new product gets its own line.
func (h *CartHandler) AddToCart(c echo.Context) error {
	user, err := authmw.CurrentUser(c)
	if err != nil {
		return err
	}

	var req struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var cart models.Cart
	err = h.DB.Where("user_id = ?", user.ID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cart = models.Cart{
			ID:     uuid.NewString(),
			UserID: user.ID,
			Items:  models.CartItems{{ProductID: req.ProductID, Quantity: req.Quantity}},
		}
		cart.UpdatedAt = time.Now().UTC()
		if err := h.DB.Create(&cart).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	} else if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	} else {
		merged := false
		for i := range cart.Items {
			if cart.Items[i].ProductID == req.ProductID {
				cart.Items[i].Quantity += req.Quantity
				merged = true
				break
			}
		}
		if !merged {
			cart.Items = append(cart.Items, models.CartItem{ProductID: req.ProductID, Quantity: req.Quantity})
		}
		cart.UpdatedAt = time.Now().UTC()
		if err := h.DB.Save(&cart).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	h.publish(c, user.ID, map[string]any{
		"type":      "cart_item_added",
		"userID":    user.ID,
		"productID": req.ProductID,
		"quantity":  req.Quantity,
	})

	return c.JSON(http.StatusOK, echo.Map{"message": "item added to cart"})
}

// UpdateCart overwrites the quantity of an existing line; a quantity of
// zero or less removes the line. An unknown product id is a no-op.
func (h *CartHandler) UpdateCart(c echo.Context) error {
	user, err := authmw.CurrentUser(c)
	if err != nil {
		return err
	}

	var req struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var cart models.Cart
	if err := h.DB.Where("user_id = ?", user.ID).First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "cart not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	for i := range cart.Items {
		if cart.Items[i].ProductID == req.ProductID {
			if req.Quantity <= 0 {
				cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			} else {
				cart.Items[i].Quantity = req.Quantity
			}
			break
		}
	}

	cart.UpdatedAt = time.Now().UTC()
	if err := h.DB.Save(&cart).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, user.ID, map[string]any{
		"type":      "cart_item_updated",
		"userID":    user.ID,
		"productID": req.ProductID,
		"quantity":  req.Quantity,
	})

	return c.JSON(http.StatusOK, echo.Map{"message": "cart updated"})
}

// RemoveFromCart drops any line matching the product id; absence is not
// an error.
func (h *CartHandler) RemoveFromCart(c echo.Context) error {
	user, err := authmw.CurrentUser(c)
	if err != nil {
		return err
	}

	productID := c.Param("productId")

	var cart models.Cart
	if err := h.DB.Where("user_id = ?", user.ID).First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "cart not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	remaining := make(models.CartItems, 0, len(cart.Items))
	for _, item := range cart.Items {
		if item.ProductID != productID {
			remaining = append(remaining, item)
		}
	}
	cart.Items = remaining

	cart.UpdatedAt = time.Now().UTC()
	if err := h.DB.Save(&cart).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, user.ID, map[string]any{
		"type":      "cart_item_removed",
		"userID":    user.ID,
		"productID": productID,
	})

	return c.JSON(http.StatusOK, echo.Map{"message": "item removed from cart"})
}
