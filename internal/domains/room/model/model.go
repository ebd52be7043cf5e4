package model

import "innkeeper/shared/model"

const (
	TableName  = "rooms"
	EntityName = "room"

	FieldID            = "id"
	FieldName          = "name"
	FieldDescription   = "description"
	FieldPricePerNight = "price_per_night"
	FieldImage         = "image"
	FieldAvailable     = "available"
)

type Room struct {
	ID            string  `db:"id"`
	Name          string  `db:"name"`
	Description   string  `db:"description"`
	PricePerNight float64 `db:"price_per_night"`
	Image         string  `db:"image"`
	Available     bool    `db:"available"`
	model.Metadata
}
