package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/matraxtyres/tyre_assistant/config"
	"github.com/matraxtyres/tyre_assistant/models"
	"github.com/matraxtyres/tyre_assistant/utils"
)

func orderEventsHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		events, err := models.ListOrderEvents(c.Request.Context(), app.DB, id)
		if err != nil {
			config.LogError(app.Logger, "opsHandler", "orderEventsHandler", "list events", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, events)
	}
}

// outboxReplayHandler re-queues a DEAD or FAILED event for the dispatcher.
func outboxReplayHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
			return
		}
		event, err := models.ReplayOutboxEvent(c.Request.Context(), app.DB, id)
		if errors.Is(err, utils.ErrorRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no DEAD or FAILED event with this id"})
			return
		}
		if err != nil {
			config.LogError(app.Logger, "opsHandler", "outboxReplayHandler", "replay", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, event)
	}
}
