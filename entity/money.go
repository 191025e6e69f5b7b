package entity

type Money struct {
	Amount   string `json:"amount" db:"price_amount"`
	Currency string `json:"currency" db:"price_currency"`
}
