// Package middleware holds the Echo middleware of the gateway.
package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-checkout/internal/model"
)

// Context keys set by JWTAuth.
const (
	ctxUserID = "user_id"
	ctxToken  = "token"
)

// JWTAuth validates the booking backend's HS256 access token and stores the
// subject and the raw token in the context.  Browsers cannot set headers on
// a websocket upgrade, so the token is also accepted in the access_token
// query parameter.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearerToken(c)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}

			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}
			sub := subject(claims)
			if sub == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}

			c.Set(ctxUserID, sub)
			c.Set(ctxToken, raw)
			return next(c)
		}
	}
}

// OptionalJWT is JWTAuth for routes that also serve anonymous viewers: a
// missing token passes through, a bad one is still rejected.
func OptionalJWT(secret string) echo.MiddlewareFunc {
	auth := JWTAuth(secret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		withAuth := auth(next)
		return func(c echo.Context) error {
			if bearerToken(c) == "" {
				return next(c)
			}
			return withAuth(c)
		}
	}
}

// Identity returns the authenticated viewer, or nil.
func Identity(c echo.Context) *model.Identity {
	uid, _ := c.Get(ctxUserID).(string)
	if uid == "" {
		return nil
	}
	tok, _ := c.Get(ctxToken).(string)
	return &model.Identity{UserID: uid, Token: tok}
}

func bearerToken(c echo.Context) string {
	if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return c.QueryParam("access_token")
}

// subject reads sub, falling back to user_id.  Numeric ids are accepted.
func subject(claims jwt.MapClaims) string {
	for _, k := range []string{"sub", "user_id"} {
		switch v := claims[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}
