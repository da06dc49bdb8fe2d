package handler

import (
	"net/http"

	"github.com/Vashist1110/AVS-Bank/shared/auth"
	"github.com/Vashist1110/AVS-Bank/shared/middleware"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Auth  *AuthHandler
	User  *UserHandler
	Admin *AdminHandler
}

// RegisterRoutes mounts the public, user and admin route groups. Every
// protected group goes through the same Authorize policy.
func RegisterRoutes(router gin.IRouter, tokens middleware.Authenticator, h Handlers) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/register", h.User.Register)
	router.POST("/login", h.Auth.Login)
	router.POST("/admin/login", h.Auth.AdminLogin)

	user := router.Group("", middleware.Authorize(tokens, auth.RoleUser))
	{
		user.GET("/profile", h.User.Profile)
		user.POST("/deposit", h.User.Deposit)
		user.POST("/withdraw", h.User.Withdraw)
		user.POST("/transfer", h.User.Transfer)
		user.GET("/transactions", h.User.Transactions)
		user.POST("/request-kyc-update", h.User.RequestKYC)
		user.POST("/request-update", h.User.RequestUpdate)
	}

	admin := router.Group("/admin", middleware.Authorize(tokens, auth.RoleAdmin))
	{
		admin.GET("/dashboard", h.Admin.Dashboard)
		admin.GET("/users", h.Admin.ListUsers)
		admin.POST("/create-user", h.Admin.CreateUser)
		admin.GET("/users/:id", h.Admin.GetUser)
		admin.PUT("/users/:id", h.Admin.UpdateUser)
		admin.DELETE("/users/:id", h.Admin.DeleteUser)
		admin.GET("/users/:id/transactions", h.Admin.UserTransactions)
		admin.GET("/kyc-requests", h.Admin.ListKYCRequests)
		admin.POST("/kyc-requests/:id", h.Admin.ResolveKYC)
		admin.GET("/update-requests", h.Admin.ListUpdateRequests)
		admin.POST("/update-requests/:id", h.Admin.ResolveUpdate)
		admin.GET("/documents/:name", h.Admin.Document)
	}
}
