package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"innkeeper/internal/handlers/booking"
	"innkeeper/internal/handlers/room"
	"innkeeper/shared/constant"
	"innkeeper/transport/http/response"
)

type DomainHandlers struct {
	Room    room.Handler
	Booking booking.Handler
}

type Router struct {
	DomainHandlers DomainHandlers
}

func (r *Router) SetupRoutes(router chi.Router) {
	router.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		response.WithText(w, http.StatusOK, constant.LivenessMessage)
	})

	r.DomainHandlers.Room.Router(router)
	r.DomainHandlers.Booking.Router(router)
}

func New(domainHandlers DomainHandlers) Router {
	return Router{
		DomainHandlers: domainHandlers,
	}
}
