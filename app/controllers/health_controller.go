package controllers

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/krishimitra/pkg/ctx"
	"github.com/shashiranjanraj/krishimitra/pkg/database"
)

// Health reports liveness with a database ping.
func Health(db *gorm.DB) ctx.HandlerFunc {
	return func(c *ctx.Context) {
		if err := database.Ping(db); err != nil {
			c.Logger().Error("health: database ping failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
}
