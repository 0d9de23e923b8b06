// internal/models/price.go
package models

// PriceRecord is one row of the commodity_prices table.
type PriceRecord struct {
	Crop        string  `json:"crop"`
	Market      string  `json:"market"`
	District    string  `json:"district_name"`
	State       string  `json:"state_name"`
	ModalPrice  float64 `json:"modal_price"`
	Unit        string  `json:"unit_of_price"`
	ArrivalDate string  `json:"arrival_date"`
}
