package http

import (
	"github.com/gin-gonic/gin"

	naimatauth "github.com/amnashah110/naimat-auth"
)

// SetupRouter wires the auth endpoints onto a gin router.
func SetupRouter(engine *naimatauth.Engine) *gin.Engine {
	router := gin.Default()

	handlers := NewAuthHandlers(engine)

	auth := router.Group("/auth")
	{
		auth.POST("/signup/code", handlers.SignupCode)
		auth.POST("/signup/verify", handlers.SignupVerify)
		auth.POST("/login/code", handlers.LoginCode)
		auth.POST("/login/verify", handlers.LoginVerify)
		auth.POST("/refresh", handlers.Refresh)
	}

	api := router.Group("/api")
	api.Use(AuthMiddleware(engine))
	{
		api.GET("/me", handlers.Me)
	}

	return router
}
