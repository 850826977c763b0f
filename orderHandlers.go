package main

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/matraxtyres/tyre_assistant/config"
	"github.com/matraxtyres/tyre_assistant/models"
	"github.com/matraxtyres/tyre_assistant/utils"
	"github.com/matraxtyres/tyre_assistant/workflow"
)

const idempotencyKeyHeader = "Idempotency-Key"

type orderStatusRequest struct {
	Status models.OrderStatus `json:"status"`
}

func listOrdersHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		orders, err := app.Orders.List(c.Request.Context())
		if err != nil {
			config.LogError(app.Logger, "orderHandler", "listOrdersHandler", "list orders", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

// getOrderHandler accepts a numeric id or an order code such as MTX-00001.
func getOrderHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		param := strings.TrimSpace(c.Param("id"))

		var (
			order *models.OrderView
			err   error
		)
		if id, convErr := strconv.Atoi(param); convErr == nil {
			order, err = app.Orders.Get(ctx, id)
		} else {
			order, err = app.Orders.GetByCode(ctx, param)
		}
		if errors.Is(err, utils.ErrorRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		if err != nil {
			config.LogError(app.Logger, "orderHandler", "getOrderHandler", "get order", param, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func createOrderHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var input workflow.CreateOrderInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		input.IdempotencyKey = strings.TrimSpace(c.GetHeader(idempotencyKeyHeader))

		result, err := app.Orders.Create(ctx, input)
		if err != nil {
			writeOrderError(c, app, err, input)
			return
		}
		status := http.StatusCreated
		if result.Replayed {
			status = http.StatusOK
		}
		order, err := app.Orders.Get(ctx, result.OrderId)
		if err != nil {
			config.LogError(app.Logger, "orderHandler", "createOrderHandler", "load created order", result.OrderId, err)
			c.JSON(status, result)
			return
		}
		c.JSON(status, order)
	}
}

func writeOrderError(c *gin.Context, app *App, err error, input workflow.CreateOrderInput) {
	var validationErrs validator.ValidationErrors
	var stockErr *workflow.InsufficientStockError
	switch {
	case errors.As(err, &validationErrs):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": utils.ProcessValidationErrors(err)})
	case errors.Is(err, workflow.ErrQuantityTooLarge):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &stockErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":     stockErr.Error(),
			"tyre_id":   stockErr.TyreId,
			"available": stockErr.Available,
			"requested": stockErr.Requested,
		})
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, workflow.ErrIdempotencyInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "a request with this idempotency key is in progress"})
	default:
		config.LogError(app.Logger, "orderHandler", "createOrderHandler", "create order", input, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func updateOrderStatusHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		var req orderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil || !req.Status.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}

		order, err := app.Orders.UpdateStatus(c.Request.Context(), id, req.Status)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, order)
		case errors.Is(err, utils.ErrorRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		case errors.Is(err, workflow.ErrInvalidStatusTransition):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			config.LogError(app.Logger, "orderHandler", "updateOrderStatusHandler", "update status", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
	}
}
