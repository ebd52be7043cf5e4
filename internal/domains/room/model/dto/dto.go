package dto

import (
	"innkeeper/internal/domains/room/model"
	gDto "innkeeper/shared/dto"
)

type RoomResponse struct {
	ID            string  `json:"id"`
	RoomName      string  `json:"roomName"`
	Description   string  `json:"description"`
	PricePerNight float64 `json:"pricePerNight"`
	Image         string  `json:"image"`
	Available     bool    `json:"available"`
	gDto.Metadata
}

func (r *RoomResponse) FromModel(model model.Room) {
	r.ID = model.ID
	r.RoomName = model.Name
	r.Description = model.Description
	r.PricePerNight = model.PricePerNight
	r.Image = model.Image
	r.Available = model.Available
	r.Metadata.FromModel(model.Metadata)
}

func FromModels(models []model.Room) []RoomResponse {
	rooms := make([]RoomResponse, len(models))
	for i, mod := range models {
		rooms[i].FromModel(mod)
	}

	return rooms
}
