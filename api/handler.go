package api

import (
	"github.com/gofiber/fiber/v2"
)

type EventHandler interface {
	PostEvent(ctx *fiber.Ctx) error
	PostEventsBulk(ctx *fiber.Ctx) error
	ListEvents(ctx *fiber.Ctx) error
	RecentEvents(ctx *fiber.Ctx) error
}

type DashboardHandler interface {
	GetStats(ctx *fiber.Ctx) error
}
