package handler

import "github.com/labstack/echo/v4"

// Register は /api/v1 配下のルートを登録する
func Register(g *echo.Group, health *HealthHandler, seats *SeatHandler, holds *HoldHandler) {
	g.GET("/health", health.Check)

	g.GET("/venue", seats.Venue)
	g.GET("/seats", seats.List)
	g.GET("/seats/available", seats.CountAvailable)

	g.POST("/holds", holds.Create)
	g.GET("/holds/:id", holds.GetByID)
	g.POST("/holds/:id/reserve", holds.Reserve)
}
