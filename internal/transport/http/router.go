package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/techhaven/shop/internal/handlers"
	"github.com/techhaven/shop/internal/handlers/cart"
	"github.com/techhaven/shop/internal/handlers/order"
	"github.com/techhaven/shop/internal/handlers/review"
	authmw "github.com/techhaven/shop/internal/middleware/auth"
)

type Deps struct {
	DB             *gorm.DB
	JWTSecret      []byte
	AuthHandler    *handlers.AuthHandler
	ProductHandler *handlers.ProductHandler
	SearchHandler  *handlers.SearchHandler
	CartHandler    *cart.CartHandler
	OrderHandler   *order.OrderHandler
	ReviewHandler  *review.ReviewHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	api := e.Group("/api")
	requireLogin := authmw.RequireLogin(d.DB, d.JWTSecret)

	api.POST("/register", d.AuthHandler.Register)
	api.POST("/login", d.AuthHandler.Login)
	api.GET("/me", d.AuthHandler.Me, requireLogin)

	api.GET("/products", d.ProductHandler.GetProducts)
	api.GET("/products/:id", d.ProductHandler.GetProduct)
	api.POST("/products", d.ProductHandler.CreateProduct, requireLogin)
	api.GET("/categories", d.ProductHandler.GetCategories)
	api.GET("/search", d.SearchHandler.Search)

	cartGroup := api.Group("/cart", requireLogin)
	cartGroup.GET("", d.CartHandler.GetCart)
	cartGroup.POST("/add", d.CartHandler.AddToCart)
	cartGroup.PUT("/update", d.CartHandler.UpdateCart)
	cartGroup.DELETE("/remove/:productId", d.CartHandler.RemoveFromCart)

	orders := api.Group("/orders", requireLogin)
	orders.POST("", d.OrderHandler.CreateOrder)
	orders.GET("", d.OrderHandler.GetOrders)
	orders.GET("/:id", d.OrderHandler.GetOrder)

	api.GET("/products/:id/reviews", d.ReviewHandler.GetProductReviews)
	api.POST("/reviews", d.ReviewHandler.CreateReview, requireLogin)
}
