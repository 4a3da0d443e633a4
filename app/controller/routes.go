package controller

import (
	"github.com/labstack/echo/v4"

	"github.com/vibast-solutions/ms-go-todo/app/middleware"
)

func RegisterRoutes(e *echo.Echo, auth *AuthController, todos *TodoController, gate *middleware.AuthMiddleware) {
	authGroup := e.Group("/auth")
	authGroup.POST("/register", auth.Register)
	authGroup.POST("/login", auth.Login)
	authGroup.POST("/activate", auth.Activate)
	authGroup.POST("/request-password-reset", auth.RequestPasswordReset)
	authGroup.POST("/reset-password", auth.ResetPassword)
	authGroup.POST("/resend-activation", auth.ResendActivation)

	authProtected := authGroup.Group("", gate.RequireAuth)
	authProtected.POST("/logout", auth.Logout)
	authProtected.GET("/user", auth.CurrentUser)

	todoGroup := e.Group("/todos", gate.RequireAuth)
	todoGroup.GET("", todos.List)
	todoGroup.POST("", todos.Create)

	owned := todoGroup.Group("/:id", gate.RequireOwnership("id", todos.todoService.OwnerOf))
	owned.GET("", todos.Get)
	owned.DELETE("", todos.Delete)
	owned.PATCH("/items/:itemId", todos.UpdateItem)
}
