package routes

import (
	"github.com/gin-gonic/gin"

	"storegate/internal/authz"
	"storegate/internal/handlers"
	"storegate/internal/middleware"
)

func SetupRoutes(
	r *gin.Engine,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	reportHandler *handlers.ReportHandler,
	jwtKey []byte,
) *gin.Engine {

	// ---- public
	auth := r.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/verify-code", authHandler.VerifyCode)
		auth.POST("/resend-code", authHandler.ResendCode)
		auth.POST("/refresh", authHandler.RefreshToken)
		auth.POST("/register", userHandler.Register)
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ---- protected
	r.Use(middleware.AuthMiddleware(jwtKey))

	users := r.Group("/users", middleware.RequireRoles(authz.RoleAdmin))
	{
		users.GET("/", userHandler.ListUsers)
		users.GET("/:id", userHandler.GetUserByID)
		users.PUT("/:id/role", userHandler.AssignRole)
		users.DELETE("/:id", userHandler.DeleteUser)
	}

	admin := r.Group("/admin", middleware.RequireRoles(authz.RoleAdmin))
	{
		admin.GET("/reports/signins.pdf", reportHandler.SignInReport)
	}

	return r
}
