package httpapi

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-card/internal/location"
	"github.com/i474232898/weather-card/internal/session"
	"github.com/i474232898/weather-card/internal/weather"
)

var validate = validator.New()

// Card is the session surface the handlers need.
type Card interface {
	View() session.View
	Refresh(ctx context.Context) error
	SelectCity(ctx context.Context, name string) error
	SetPage(p session.Page) error
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, card Card) {
	v1 := app.Group("/api/v1")

	v1.Get("/weather", func(c *fiber.Ctx) error {
		return c.JSON(card.View())
	})

	v1.Post("/weather/refresh", func(c *fiber.Ctx) error {
		if err := card.Refresh(c.UserContext()); err != nil {
			return fetchError(err)
		}
		return c.JSON(card.View())
	})

	v1.Get("/locations", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"locations": location.Available(),
		})
	})

	v1.Get("/settings", func(c *fiber.Ctx) error {
		return c.JSON(settingsResponse{City: card.View().City})
	})

	v1.Put("/settings", func(c *fiber.Ctx) error {
		var req settingsRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		req.City = strings.TrimSpace(req.City)
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := card.SelectCity(c.UserContext(), req.City); err != nil {
			if errors.Is(err, location.ErrUnknownCity) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fetchError(err)
		}
		return c.JSON(card.View())
	})

	v1.Put("/page", func(c *fiber.Ctx) error {
		var req pageRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := card.SetPage(session.Page(req.Page)); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.JSON(card.View())
	})
}

// settingsRequest is the body of PUT /settings.
type settingsRequest struct {
	City string `json:"city" validate:"required"`
}

type settingsResponse struct {
	City string `json:"city"`
}

// pageRequest is the body of PUT /page.
type pageRequest struct {
	Page string `json:"page" validate:"required,oneof=weather settings"`
}

// ErrorHandler renders every handler error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var ferr *fiber.Error
	if errors.As(err, &ferr) {
		code = ferr.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// fetchError maps a failed fetch cycle to an HTTP error.
func fetchError(err error) error {
	var (
		nerr *weather.NetworkError
		perr *weather.ParseError
	)
	switch {
	case errors.As(err, &nerr), errors.As(err, &perr):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	case weather.IsSuperseded(err):
		return fiber.NewError(fiber.StatusConflict, "refresh superseded by a newer request")
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.NewError(fiber.StatusGatewayTimeout, "weather fetch timed out")
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather data")
	}
}
