package serverutils

import (
	"os"

	"ai-chat-be/internal/pkg/cherr"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

func JwtMiddleware(ctx *fiber.Ctx) error {
	authHeader := ctx.Get("Authorization")
	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return cherr.New(cherr.UnauthorizedChat, "Missing token")
	}
	tokenStr := authHeader[7:]

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte(os.Getenv("JWT_SECRET")), nil
	})

	if err != nil || !token.Valid {
		return cherr.Wrap(cherr.UnauthorizedChat, "Invalid token", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return cherr.New(cherr.UnauthorizedChat, "Invalid claims")
	}
	userId, ok := claims["user_id"].(string)
	if !ok || userId == "" {
		return cherr.New(cherr.UnauthorizedChat, "Invalid claims")
	}

	ctx.Locals("user_id", userId)
	return ctx.Next()
}
