package orders

import "context"

// Analytics holds the aggregate counts behind the admin dashboard.
type Analytics struct {
	OrdersByStatus     map[Status]int `json:"orders_by_status"`
	ProductsByCategory map[string]int `json:"products_by_category"`
	TotalOrders        int            `json:"total_orders"`
	TotalProducts      int            `json:"total_products"`
}

func (r *Repo) Analytics(ctx context.Context) (Analytics, error) {
	a := Analytics{
		OrdersByStatus:     map[Status]int{},
		ProductsByCategory: map[string]int{},
	}

	rows, err := r.DB.Query(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return Analytics{}, err
	}
	for rows.Next() {
		var s Status
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			rows.Close()
			return Analytics{}, err
		}
		a.OrdersByStatus[s] = n
		a.TotalOrders += n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Analytics{}, err
	}

	rows, err = r.DB.Query(ctx, `SELECT category, COUNT(*) FROM products GROUP BY category`)
	if err != nil {
		return Analytics{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var c string
		var n int
		if err := rows.Scan(&c, &n); err != nil {
			return Analytics{}, err
		}
		a.ProductsByCategory[c] = n
		a.TotalProducts += n
	}
	return a, rows.Err()
}
