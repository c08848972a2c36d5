package httpserver

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"storefront-api/internal/domain"
	orderrepo "storefront-api/internal/repository/order"
	"github.com/gin-gonic/gin"
)

func listOrdersHandler(svc OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := identityFrom(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "not authorized"})
			return
		}
		orders, err := svc.ListForUser(c.Request.Context(), ident)
		if err != nil {
			writeError(c, err)
			return
		}
		if orders == nil {
			orders = []domain.Order{}
		}
		c.JSON(http.StatusOK, orders)
	}
}

func getOrderHandler(svc OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := identityFrom(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "not authorized"})
			return
		}
		order, err := svc.Get(c.Request.Context(), ident, c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func adminListOrdersHandler(svc OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, _ := identityFrom(c)

		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		in := orderrepo.ListAllInput{
			Status: c.Query("status"),
			Page:   page,
			Limit:  limit,
		}

		orders, total, err := svc.ListAll(c.Request.Context(), ident, in)
		if err != nil {
			writeError(c, err)
			return
		}
		if orders == nil {
			orders = []domain.Order{}
		}
		if limit < 1 {
			limit = 20
		}
		pages := (total + int64(limit) - 1) / int64(limit)
		c.JSON(http.StatusOK, gin.H{
			"orders": orders,
			"page":   in.Page,
			"pages":  pages,
			"total":  total,
		})
	}
}

func adminStatsHandler(svc OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, _ := identityFrom(c)

		var in orderrepo.StatsInput
		if v := c.Query("startDate"); v != "" {
			t, err := time.Parse(time.DateOnly, v)
			if err != nil {
				writeError(c, fmt.Errorf("%w: invalid startDate", domain.ErrValidation))
				return
			}
			in.Start = &t
		}
		if v := c.Query("endDate"); v != "" {
			t, err := time.Parse(time.DateOnly, v)
			if err != nil {
				writeError(c, fmt.Errorf("%w: invalid endDate", domain.ErrValidation))
				return
			}
			// Inclusive end of day.
			t = t.Add(24*time.Hour - time.Nanosecond)
			in.End = &t
		}

		stats, err := svc.Stats(c.Request.Context(), ident, in)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func updateOrderStatusHandler(svc OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, _ := identityFrom(c)

		var req updateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, fmt.Errorf("%w: %v", domain.ErrValidation, err))
			return
		}

		order, err := svc.UpdateStatus(c.Request.Context(), ident, c.Param("id"), domain.OrderStatus(req.Status))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}
