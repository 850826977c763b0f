package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/matraxtyres/tyre_assistant/config"
	"github.com/matraxtyres/tyre_assistant/dialog"
	"github.com/matraxtyres/tyre_assistant/models"
	"github.com/matraxtyres/tyre_assistant/utils"
	"github.com/xuri/excelize/v2"
)

const reorderSheet = "Reorder"

var reorderHeadings = []string{"Brand", "Model", "Size", "Type", "Stock", "Min Stock", "Reorder Qty", "Status", "Unit Price"}

func tyresBySizeHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		size, ok := dialog.NormalizeTyreSize(c.Query("size"))
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "size must look like 225/45R17"})
			return
		}
		tyres, err := app.Inventory.ByExactSize(c.Request.Context(), size)
		if err != nil {
			config.LogError(app.Logger, "inventoryHandler", "tyresBySizeHandler", "by size", size, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, tyres)
	}
}

func getTyreHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Tyre not found"})
			return
		}
		tyre, err := app.Inventory.ById(c.Request.Context(), id)
		if errors.Is(err, utils.ErrorRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Tyre not found"})
			return
		}
		if err != nil {
			config.LogError(app.Logger, "inventoryHandler", "getTyreHandler", "by id", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, tyre)
	}
}

func lowStockHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := app.Inventory.LowStock(c.Request.Context())
		if err != nil {
			config.LogError(app.Logger, "inventoryHandler", "lowStockHandler", "low stock", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

func lowStockExportHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := app.Inventory.LowStock(c.Request.Context())
		if err != nil {
			config.LogError(app.Logger, "inventoryHandler", "lowStockExportHandler", "low stock", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		f, err := buildReorderSheet(items)
		if err != nil {
			config.LogError(app.Logger, "inventoryHandler", "lowStockExportHandler", "build sheet", len(items), err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		defer f.Close()

		filename := fmt.Sprintf("reorder-%s.xlsx", time.Now().Format("2006-01-02"))
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename="+filename)
		c.Status(http.StatusOK)
		if err := f.Write(c.Writer); err != nil {
			config.LogError(app.Logger, "inventoryHandler", "lowStockExportHandler", "write sheet", filename, err)
		}
	}
}

// buildReorderSheet lists every low-stock tyre with the quantity needed to get back to its minimum.
func buildReorderSheet(items []models.LowStockItem) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", reorderSheet); err != nil {
		return nil, err
	}
	for i, h := range reorderHeadings {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(reorderSheet, cell, h); err != nil {
			return nil, err
		}
	}
	for r, item := range items {
		reorder := item.MinStockLevel - item.Stock
		if reorder < 0 {
			reorder = 0
		}
		row := []any{
			item.BrandName, item.Model, item.Size, item.Type,
			item.Stock, item.MinStockLevel, reorder, string(item.Level),
			item.Price.InexactFloat64(),
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(reorderSheet, cell, &row); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func dashboardStatsHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := app.Inventory.Stats(c.Request.Context())
		if err != nil {
			config.LogError(app.Logger, "dashboardHandler", "dashboardStatsHandler", "stats", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}
