package review

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	authmw "github.com/techhaven/shop/internal/middleware/auth"
	"github.com/techhaven/shop/internal/models"
	"github.com/techhaven/shop/internal/mykafka"
)

const listReviewsLimit = 100

type ReviewHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
}

func (h *ReviewHandler) publish(c echo.Context, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "review_events", key, event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func (h *ReviewHandler) GetProductReviews(c echo.Context) error {
	var reviews []models.Review
	if err := h.DB.Where("product_id = ?", c.Param("id")).
		Order("created_at DESC").
		Limit(listReviewsLimit).
		Find(&reviews).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, reviews)
}

// CreateReview persists one review per (product, user) pair, then
// recomputes the product's mean rating and review count from the full
// review set.
func (h *ReviewHandler) CreateReview(c echo.Context) error {
	user, err := authmw.CurrentUser(c)
	if err != nil {
		return err
	}

	var req struct {
		ProductID string `json:"product_id"`
		Rating    int    `json:"rating"`
		Comment   string `json:"comment"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var product models.Product
	if err := h.DB.Where("id = ?", req.ProductID).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var existing models.Review
	err = h.DB.Where("product_id = ? AND user_id = ?", req.ProductID, user.ID).First(&existing).Error
	if err == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "you have already reviewed this product")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	review := models.Review{
		ID:        uuid.NewString(),
		ProductID: req.ProductID,
		UserID:    user.ID,
		UserName:  user.FullName,
		Rating:    req.Rating,
		Comment:   req.Comment,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.DB.Create(&review).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := h.recomputeRating(req.ProductID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, user.ID, map[string]any{
		"type":      "review_created",
		"userID":    user.ID,
		"productID": req.ProductID,
		"rating":    req.Rating,
	})

	return c.JSON(http.StatusCreated, review)
}

// recomputeRating reads the whole review set for the product and writes
// the mean (1 decimal place) and count back to the product record.
func (h *ReviewHandler) recomputeRating(productID string) error {
	var reviews []models.Review
	if err := h.DB.Where("product_id = ?", productID).Find(&reviews).Error; err != nil {
		return err
	}
	if len(reviews) == 0 {
		return nil
	}

	var sum int
	for _, r := range reviews {
		sum += r.Rating
	}
	avg := math.Round(float64(sum)/float64(len(reviews))*10) / 10

	return h.DB.Model(&models.Product{}).
		Where("id = ?", productID).
		Updates(map[string]any{
			"rating":       avg,
			"review_count": len(reviews),
		}).Error
}
