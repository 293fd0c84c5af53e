package model

// Customer is one row of the customer list. JSON names follow the customer
// backend's document format.
type Customer struct {
	ID            string  `json:"_id" db:"id"`
	Name          string  `json:"name" db:"name"`
	Email         string  `json:"email" db:"email"`
	Phone         string  `json:"phone,omitempty" db:"phone"`
	TotalSpend    float64 `json:"totalSpend" db:"total_spend"`
	LastOrderDate *string `json:"lastOrderDate,omitempty" db:"last_order_date"`
	VisitCount    int     `json:"visitCount" db:"visit_count"`
	CreatedAt     *string `json:"createdAt,omitempty" db:"created_at"`
}

// Reachable reports whether the customer can receive a campaign.
func (c Customer) Reachable() bool {
	return c.Email != ""
}
