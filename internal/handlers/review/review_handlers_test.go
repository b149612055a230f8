package review

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

var reviewer = models.User{ID: "u-1", Email: "user@example.com", PasswordHash: "x", FullName: "Test User"}

func newReviewHandler(t *testing.T) *ReviewHandler {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Product{}, &models.Review{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	product := models.Product{ID: "p-1", Name: "MacBook Pro", Brand: "Apple", Category: "Professional", Price: 2499}
	require.NoError(t, db.Create(&product).Error)

	return &ReviewHandler{DB: db, Producer: &mykafka.Producer{}}
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

func productState(t *testing.T, h *ReviewHandler) models.Product {
	t.Helper()
	var p models.Product
	require.NoError(t, h.DB.Where("id = ?", "p-1").First(&p).Error)
	return p
}

func createReview(t *testing.T, h *ReviewHandler, user models.User, rating int) {
	t.Helper()
	rec, c := doJSONRequest(t, user, http.MethodPost, "/api/reviews", map[string]any{
		"product_id": "p-1",
		"rating":     rating,
		"comment":    "review comment",
	})
	require.NoError(t, h.CreateReview(c))
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateReviewUpdatesProductRating(t *testing.T) {
	h := newReviewHandler(t)

	createReview(t, h, reviewer, 4)

	p := productState(t, h)
	require.Equal(t, 4.0, p.Rating)
	require.Equal(t, 1, p.ReviewCount)

	// 4 and 5 average to 4.5
	other := models.User{ID: "u-2", Email: "other@example.com", PasswordHash: "x", FullName: "Other User"}
	createReview(t, h, other, 5)

	p = productState(t, h)
	require.Equal(t, 4.5, p.Rating)
	require.Equal(t, 2, p.ReviewCount)

	// 4, 5 and 5 average to 4.666..., stored with one decimal place
	third := models.User{ID: "u-3", Email: "third@example.com", PasswordHash: "x", FullName: "Third User"}
	createReview(t, h, third, 5)

	p = productState(t, h)
	require.Equal(t, 4.7, p.Rating)
	require.Equal(t, 3, p.ReviewCount)
}

func TestCreateReviewDenormalizesUserName(t *testing.T) {
	h := newReviewHandler(t)

	createReview(t, h, reviewer, 5)

	var review models.Review
	require.NoError(t, h.DB.Where("product_id = ? AND user_id = ?", "p-1", reviewer.ID).First(&review).Error)
	require.Equal(t, "Test User", review.UserName)
	require.Equal(t, "review comment", review.Comment)
}

func TestCreateReviewDuplicate(t *testing.T) {
	h := newReviewHandler(t)

	createReview(t, h, reviewer, 5)

	_, c := doJSONRequest(t, reviewer, http.MethodPost, "/api/reviews", map[string]any{
		"product_id": "p-1",
		"rating":     1,
		"comment":    "changed my mind",
	})
	err := h.CreateReview(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusBadRequest, he.Code)

	// rating and count are untouched by the rejected duplicate
	p := productState(t, h)
	require.Equal(t, 5.0, p.Rating)
	require.Equal(t, 1, p.ReviewCount)
}

func TestCreateReviewUnknownProduct(t *testing.T) {
	h := newReviewHandler(t)

	_, c := doJSONRequest(t, reviewer, http.MethodPost, "/api/reviews", map[string]any{
		"product_id": "missing",
		"rating":     5,
		"comment":    "great",
	})
	err := h.CreateReview(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusNotFound, he.Code)
}

func TestGetProductReviewsNewestFirst(t *testing.T) {
	h := newReviewHandler(t)

	now := time.Now().UTC()
	reviews := []models.Review{
		{ID: "r-1", ProductID: "p-1", UserID: "u-1", UserName: "A", Rating: 5, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "r-2", ProductID: "p-1", UserID: "u-2", UserName: "B", Rating: 4, CreatedAt: now.Add(-1 * time.Hour)},
		{ID: "r-3", ProductID: "other", UserID: "u-3", UserName: "C", Rating: 3, CreatedAt: now},
	}
	for i := range reviews {
		require.NoError(t, h.DB.Create(&reviews[i]).Error)
	}

	rec, c := doJSONRequest(t, reviewer, http.MethodGet, "/api/products/p-1/reviews", nil)
	c.SetParamNames("id")
	c.SetParamValues("p-1")
	require.NoError(t, h.GetProductReviews(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var listed []models.Review
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 2)
	require.Equal(t, "r-2", listed[0].ID)
	require.Equal(t, "r-1", listed[1].ID)
}
