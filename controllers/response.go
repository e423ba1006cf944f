package controllers

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"bominventory-backend/config"
	"bominventory-backend/services"

	"github.com/gofiber/fiber/v2"
)

const dateLayout = "2006-01-02"

// respondError переводит ошибку сервиса в HTTP-статус и ответ {success, message}
func respondError(c *fiber.Ctx, err error) error {
	var (
		validation *services.ValidationError
		notFound   *services.NotFoundError
		stock      *services.InsufficientStockError
		onSite     *services.InsufficientOnSiteError
		duplicate  *services.DuplicateError
		fiberErr   *fiber.Error
	)

	switch {
	case errors.As(err, &validation):
		body := fiber.Map{"success": false, "message": validation.Error()}
		if len(validation.Fields) > 0 {
			body["errors"] = validation.Fields
		}
		return c.Status(fiber.StatusBadRequest).JSON(body)

	case errors.As(err, &notFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": notFound.Error()})

	case errors.As(err, &stock):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success":     false,
			"message":     stock.Error(),
			"part_number": stock.PartNumber,
			"required":    stock.Required,
			"available":   stock.Available,
		})

	case errors.As(err, &onSite):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success":     false,
			"message":     onSite.Error(),
			"part_number": onSite.PartNumber,
			"required":    onSite.Required,
			"remaining":   onSite.Remaining,
		})

	case errors.As(err, &duplicate):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"success": false, "message": duplicate.Error()})

	case errors.Is(err, services.ErrResourceBusy):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"success": false, "message": err.Error()})

	case errors.As(err, &fiberErr):
		return c.Status(fiberErr.Code).JSON(fiber.Map{"success": false, "message": fiberErr.Message})
	}

	config.LogError(config.GetLogger(), "controllers", "respondError", c.Method()+" "+c.Path(), nil, err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"message": "Internal server error",
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": message})
}

func paramID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid ID")
	}
	return uint(id), nil
}

// parseDate разбирает дату YYYY-MM-DD; пустая строка дает нулевое время
func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, &services.ValidationError{Message: "invalid date '" + value + "', expected YYYY-MM-DD"}
	}
	return t, nil
}
