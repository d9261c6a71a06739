package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gigconnect/server/internal/db"
)

type AdminOrder struct {
	ID           string    `json:"id"`
	Type         string    `json:"order_type"`
	Source       string    `json:"order_source"`
	ClientID     string    `json:"client_id"`
	FreelancerID string    `json:"freelancer_id"`
	PaymentID    string    `json:"payment_id"`
	Amount       int64     `json:"amount"`
	Title        string    `json:"title"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// GET /admin/orders
func ListOrders(c echo.Context) error {
	query := `SELECT id, order_type, order_source, client_id, freelancer_id, payment_id, amount, title, status, created_at
	          FROM orders ORDER BY created_at DESC`
	args := []any{}
	if status := c.QueryParam("status"); status != "" {
		query = `SELECT id, order_type, order_source, client_id, freelancer_id, payment_id, amount, title, status, created_at
		         FROM orders WHERE status = $1 ORDER BY created_at DESC`
		args = append(args, status)
	}

	rows, err := db.Conn.Query(context.Background(), query, args...)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch orders"})
	}
	defer rows.Close()

	var orders []AdminOrder
	for rows.Next() {
		var o AdminOrder
		if err := rows.Scan(&o.ID, &o.Type, &o.Source, &o.ClientID, &o.FreelancerID, &o.PaymentID,
			&o.Amount, &o.Title, &o.Status, &o.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read order record"})
		}
		orders = append(orders, o)
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": orders})
}

// GET /admin/payments
func ListPayments(c echo.Context) error {
	rows, err := db.Conn.Query(context.Background(),
		`SELECT id, client_id, reference_kind, reference_id, external_order_id, amount, currency, status, created_at
		 FROM payments ORDER BY created_at DESC`)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch payments"})
	}
	defer rows.Close()

	var payments []echo.Map
	for rows.Next() {
		var id, clientID, kind, refID, extOrderID, currency, status string
		var amount int64
		var createdAt time.Time
		if err := rows.Scan(&id, &clientID, &kind, &refID, &extOrderID, &amount, &currency, &status, &createdAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read payment record"})
		}
		payments = append(payments, echo.Map{
			"id":                id,
			"client_id":         clientID,
			"reference_kind":    kind,
			"reference_id":      refID,
			"external_order_id": extOrderID,
			"amount":            amount,
			"currency":          currency,
			"status":            status,
			"created_at":        createdAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"payments": payments})
}
