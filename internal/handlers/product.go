package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/techhaven/shop/internal/logging"
	authmw "github.com/techhaven/shop/internal/middleware/auth"
	"github.com/techhaven/shop/internal/models"
	"github.com/techhaven/shop/internal/mykafka"
)

const DefaultProductLimit = 50

type ProductHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
	ES       *elasticsearch.Client
	Index    string
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func (h *ProductHandler) publish(c echo.Context, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "product_events", key, event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

// index pushes the product document into Elasticsearch, best effort.
func (h *ProductHandler) index(c echo.Context, p *models.Product) {
	if h.ES == nil {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	l := logging.FromContext(c.Request().Context())

	body, err := json.Marshal(p)
	if err != nil {
		l.Error("es index failed", "product_id", p.ID, "error", err)
		return
	}

	res, err := h.ES.Index(
		h.Index,
		bytes.NewReader(body),
		h.ES.Index.WithDocumentID(p.ID),
		h.ES.Index.WithContext(ctx),
	)
	if err != nil {
		l.Error("es index failed", "product_id", p.ID, "error", err)
		return
	}
	defer res.Body.Close()
	if res.IsError() {
		l.Error("es index failed", "product_id", p.ID, "status", res.Status())
	}
}

// GetProducts applies the optional filters conjunctively; search matches a
// case-insensitive substring of name, description or brand.
func (h *ProductHandler) GetProducts(c echo.Context) error {
	q := h.DB.Model(&models.Product{})

	if category := c.QueryParam("category"); category != "" {
		q = q.Where("category = ?", category)
	}
	if brand := c.QueryParam("brand"); brand != "" {
		q = q.Where("brand = ?", brand)
	}
	if minPrice := c.QueryParam("min_price"); minPrice != "" {
		v, err := strconv.ParseFloat(minPrice, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "min_price is not a number")
		}
		q = q.Where("price >= ?", v)
	}
	if maxPrice := c.QueryParam("max_price"); maxPrice != "" {
		v, err := strconv.ParseFloat(maxPrice, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "max_price is not a number")
		}
		q = q.Where("price <= ?", v)
	}
	if search := c.QueryParam("search"); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(brand) LIKE ?", like, like, like)
	}
	if featured := c.QueryParam("featured"); featured != "" {
		v, err := strconv.ParseBool(featured)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "featured is not a boolean")
		}
		q = q.Where("featured = ?", v)
	}

	limit := parseIntDefault(c.QueryParam("limit"), DefaultProductLimit)

	var items []models.Product
	if err := q.Limit(limit).Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, items)
}

func (h *ProductHandler) GetProduct(c echo.Context) error {
	var product models.Product
	if err := h.DB.Where("id = ?", c.Param("id")).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	user, err := authmw.CurrentUser(c)
	if err != nil {
		return err
	}
	if !user.IsAdmin {
		return echo.NewHTTPError(http.StatusForbidden, "admin access required")
	}

	var req struct {
		Name           string            `json:"name"`
		Brand          string            `json:"brand"`
		Category       string            `json:"category"`
		Price          float64           `json:"price"`
		OriginalPrice  *float64          `json:"original_price"`
		Description    string            `json:"description"`
		Specifications models.JSONMap    `json:"specifications"`
		Images         models.StringList `json:"images"`
		Stock          int               `json:"stock"`
		Featured       bool              `json:"featured"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	product := models.Product{
		ID:             uuid.NewString(),
		Name:           req.Name,
		Brand:          req.Brand,
		Category:       req.Category,
		Price:          req.Price,
		OriginalPrice:  req.OriginalPrice,
		Description:    req.Description,
		Specifications: req.Specifications,
		Images:         req.Images,
		Stock:          req.Stock,
		Featured:       req.Featured,
		CreatedAt:      time.Now().UTC(),
	}
	if err := h.DB.Create(&product).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.index(c, &product)

	h.publish(c, product.ID, map[string]any{
		"type":      "product_created",
		"productID": product.ID,
		"name":      product.Name,
		"userID":    user.ID,
	})

	return c.JSON(http.StatusCreated, product)
}

// GetCategories lists the distinct categories and brands currently present.
func (h *ProductHandler) GetCategories(c echo.Context) error {
	var categories []string
	if err := h.DB.Model(&models.Product{}).Distinct().Pluck("category", &categories).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var brands []string
	if err := h.DB.Model(&models.Product{}).Distinct().Pluck("brand", &brands).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"categories": categories,
		"brands":     brands,
	})
}
