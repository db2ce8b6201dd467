package serverutils

import (
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

func JwtMiddleware(ctx *fiber.Ctx) error {
	authHeader := ctx.Get("Authorization")
	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Missing token"})
	}
	tokenStr := authHeader[7:]

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte(os.Getenv("JWT_SECRET")), nil
	})

	if err != nil || !token.Valid {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid token"})
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid claims"})
	}

	id, ok := claims["user_id"].(string)
	if !ok || id == "" {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid claims"})
	}

	ctx.Locals("user_id", id)
	return ctx.Next()
}

// OptionalJwtMiddleware resolves identity when a valid token is present but
// lets anonymous requests through; the chat surface works signed-out under
// the daily limit.
func OptionalJwtMiddleware(ctx *fiber.Ctx) error {
	authHeader := ctx.Get("Authorization")
	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return ctx.Next()
	}
	tokenStr := authHeader[7:]

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil || !token.Valid {
		return ctx.Next()
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok {
		if id, ok := claims["user_id"].(string); ok {
			ctx.Locals("user_id", id)
		}
	}
	return ctx.Next()
}

// Identity returns the signed-in user id, or "" for anonymous requests.
func Identity(ctx *fiber.Ctx) string {
	if v, ok := ctx.Locals("user_id").(string); ok {
		return v
	}
	return ""
}

// ClientKey identifies the requester for rate limiting: the user id when
// signed in, otherwise a client-supplied id (the browser's persisted one),
// otherwise the remote address.
func ClientKey(ctx *fiber.Ctx) string {
	if id := Identity(ctx); id != "" {
		return id
	}
	if cid := ctx.Get("X-Client-Id"); cid != "" {
		return cid
	}
	return ctx.IP()
}
