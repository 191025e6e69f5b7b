package entity

type Payment struct {
	PaymentID        string `json:"payment_id" db:"payment_id"`
	OrderID          string `json:"order_id" db:"order_id"`
	ProviderChargeID string `json:"provider_charge_id" db:"provider_charge_id"`
}
