package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const lowStockLimit = 10

// Dashboard summarises the store for the admin back-office. Revenue uses
// the same rule as the order statistics.
func Dashboard(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/admin/dashboard"
		defer d.handlePanic(c, route)

		ctx, cancel := d.ctx(c)
		defer cancel()

		users, err := d.Users.Count(ctx)
		if err != nil {
			d.respondError(c, route, err)
			return
		}
		products, err := d.Products.Count(ctx)
		if err != nil {
			d.respondError(c, route, err)
			return
		}
		stats, err := d.Orders.Stats(ctx)
		if err != nil {
			d.respondError(c, route, err)
			return
		}
		lowStock, err := d.Products.LowStock(ctx, d.LowStockThreshold, lowStockLimit)
		if err != nil {
			d.respondError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"totalUsers":       users,
			"totalProducts":    products,
			"totalOrders":      stats.TotalOrders,
			"totalRevenue":     stats.TotalRevenue,
			"grossOrderValue":  stats.GrossOrderValue,
			"ordersByStatus":   stats.OrdersByStatus,
			"recentOrders":     stats.RecentOrders,
			"lowStockProducts": lowStock,
		})
	}
}

func Health(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/health"

		ctx, cancel := d.ctx(c)
		defer cancel()

		if err := d.Health.Ping(ctx); err != nil {
			d.Log.WithField("route", route).WithError(err).Error("database ping failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "up"})
	}
}
