package models

// Requests for ranking HTTP endpoints. Defined in domain for consistency and reuse.

type RankRequest struct {
	Limit    int    `query:"limit" json:"limit" default:"10" validate:"gte=1,lte=5000"`
	Interval string `query:"interval" json:"interval" default:"1h" validate:"oneof=1m 3m 15m 1h 4h 1d"`
}

type WindowRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required"`
}
