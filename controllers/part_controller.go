package controllers

import (
	"bominventory-backend/services"

	"github.com/gofiber/fiber/v2"
)

// PartController контроллер BOM-каталога
type PartController struct {
	catalog *services.CatalogService
}

// NewPartController создает новый экземпляр PartController
func NewPartController(catalog *services.CatalogService) *PartController {
	return &PartController{catalog: catalog}
}

// ListParts возвращает страницу каталога с поиском и фильтрами
func (pc *PartController) ListParts(c *fiber.Ctx) error {
	page, err := pc.catalog.ListParts(c.UserContext(), services.PartQuery{
		Search:     c.Query("search"),
		Supplier:   c.Query("supplier"),
		Component:  c.Query("component"),
		StockLevel: c.Query("stock_level"),
		Page:       c.QueryInt("page", 1),
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"message":     "Parts retrieved successfully",
		"parts":       page.Parts,
		"total":       page.Total,
		"page":        page.Page,
		"per_page":    page.PerPage,
		"total_pages": page.TotalPages,
	})
}

// GetPart возвращает деталь по ID
func (pc *PartController) GetPart(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return respondError(c, err)
	}
	part, err := pc.catalog.GetPart(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Part retrieved successfully", "part": part})
}

// CreatePart добавляет деталь в каталог
func (pc *PartController) CreatePart(c *fiber.Ctx) error {
	var input services.PartInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Invalid request body")
	}

	part, err := pc.catalog.CreatePart(c.UserContext(), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "message": "Part created", "part": part})
}

// UpdatePart изменяет деталь
func (pc *PartController) UpdatePart(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return respondError(c, err)
	}
	var input services.PartInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Invalid request body")
	}

	part, err := pc.catalog.UpdatePart(c.UserContext(), id, input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Part updated", "part": part})
}

// DeletePart удаляет деталь
func (pc *PartController) DeletePart(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := pc.catalog.DeletePart(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Part deleted"})
}

// Autocomplete подсказки по номеру и названию детали
func (pc *PartController) Autocomplete(c *fiber.Ctx) error {
	parts, err := pc.catalog.Autocomplete(c.UserContext(), c.Query("q"))
	if err != nil {
		return respondError(c, err)
	}

	suggestions := make([]fiber.Map, 0, len(parts))
	for _, p := range parts {
		suggestions = append(suggestions, fiber.Map{
			"id":                p.ID,
			"part_number":       p.PartNumber,
			"part_name":         p.PartName,
			"qty_current_stock": p.QtyCurrentStock,
		})
	}
	return c.JSON(fiber.Map{"success": true, "message": "Suggestions retrieved", "suggestions": suggestions})
}

// Filters списки поставщиков и компонентов для фильтров каталога
func (pc *PartController) Filters(c *fiber.Ctx) error {
	suppliers, err := pc.catalog.Suppliers(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	components, err := pc.catalog.Components(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":    true,
		"message":    "Filters retrieved",
		"suppliers":  suppliers,
		"components": components,
	})
}
