package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter wires the REST endpoints and the static front end.
func NewRouter(handler *Handler, frontendDir string) *gin.Engine {
	r := gin.Default()

	if frontendDir != "" {
		r.Static("/static", frontendDir)
		r.GET("/", func(c *gin.Context) {
			c.File(frontendDir + "/index.html")
		})
	} else {
		r.GET("/", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "Welcome to the sentiscope API"})
		})
	}

	r.GET("/healthz", handler.Health)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/users", handler.GetRecentUsers)
		apiGroup.GET("/personality/:handle", handler.GetPersonality)
		apiGroup.GET("/bluesky/user/:handle", handler.GetUserPosts)
		apiGroup.GET("/analyze/bluesky/user/:handle", handler.AnalyzeUser)
	}

	return r
}
