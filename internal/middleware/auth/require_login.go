package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/techhaven/shop/internal/models"
	"github.com/techhaven/shop/internal/service/token"
)

const userContextKey = "user"

// RequireLogin verifies the bearer token, then re-fetches the user record
// so a token whose subject no longer resolves fails too. Every failure
// mode yields the same 401.
func RequireLogin(db *gorm.DB, jwtSecret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearerToken(c)
			if raw == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "could not validate credentials")
			}

			email, err := token.ParseAccessToken(raw, jwtSecret)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "could not validate credentials")
			}

			var user models.User
			if err := db.Where("email = ?", email).First(&user).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return echo.NewHTTPError(http.StatusUnauthorized, "could not validate credentials")
				}
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}

			c.Set(userContextKey, user)
			return next(c)
		}
	}
}

func AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := CurrentUser(c)
		if err != nil {
			return err
		}
		if !user.IsAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "admin access required")
		}
		return next(c)
	}
}

// CurrentUser returns the user placed in the context by RequireLogin.
func CurrentUser(c echo.Context) (models.User, error) {
	user, ok := c.Get(userContextKey).(models.User)
	if !ok {
		return models.User{}, echo.NewHTTPError(http.StatusUnauthorized, "could not validate credentials")
	}
	return user, nil
}

// SetCurrentUser injects an already-resolved identity, used by tests that
// call handlers without the middleware chain.
func SetCurrentUser(c echo.Context, user models.User) {
	c.Set(userContextKey, user)
}

func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
