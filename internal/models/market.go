package models

import "time"

// MarketContext — живой срез рынка для скоринга.
type MarketContext struct {
	InstID    string
	Price     float64
	Change24h float64 // percent
	At        time.Time
}

type PriceTick struct {
	InstID    string
	Price     float64
	Change24h float64
	At        time.Time
}
