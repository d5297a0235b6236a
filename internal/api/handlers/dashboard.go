package handlers

import (
	_ "embed"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed dashboard.html
var dashboardPage []byte

// Dashboard serves the built-in single page UI. It talks to the same
// /api/v1 endpoints the JSON clients use.
func Dashboard(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", dashboardPage)
}
