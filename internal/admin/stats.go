package admin

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gigconnect/server/internal/db"
)

// GET /admin/stats
func Stats(c echo.Context) error {
	ctx := context.Background()

	var users, gigs, requirements, proposals, payments, orders int
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&users)
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM gigs`).Scan(&gigs)
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM requirements`).Scan(&requirements)
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM proposals`).Scan(&proposals)
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM payments`).Scan(&payments)
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&orders)

	// Orders by status
	statuses := echo.Map{}
	rows, err := db.Conn.Query(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var status string
			var count int
			if err := rows.Scan(&status, &count); err == nil {
				statuses[status] = count
			}
		}
	}

	// Total paid volume in minor units
	var paidVolume int64
	_ = db.Conn.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE status = 'paid'`).Scan(&paidVolume)

	return c.JSON(http.StatusOK, echo.Map{
		"users":            users,
		"gigs":             gigs,
		"requirements":     requirements,
		"proposals":        proposals,
		"payments":         payments,
		"orders":           orders,
		"orders_by_status": statuses,
		"paid_volume":      paidVolume,
	})
}
