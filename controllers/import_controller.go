package controllers

import (
	"context"
	"io"

	"bominventory-backend/services"

	"github.com/gofiber/fiber/v2"
)

// ImportController загрузка BOM-листов и журналов поставок
type ImportController struct {
	imports *services.ImportService
}

// NewImportController создает новый экземпляр ImportController
func NewImportController(imports *services.ImportService) *ImportController {
	return &ImportController{imports: imports}
}

// ImportBOM принимает файл в поле file; sheet и encoding передаются полями формы
func (ic *ImportController) ImportBOM(c *fiber.Ctx) error {
	return ic.handle(c, ic.imports.ImportBOM)
}

// ImportDeliveries принимает журнал поставок в поле file
func (ic *ImportController) ImportDeliveries(c *fiber.Ctx) error {
	return ic.handle(c, ic.imports.ImportDeliveries)
}

type importFunc func(ctx context.Context, r io.Reader, opts services.ImportOptions) (*services.ImportSummary, error)

func (ic *ImportController) handle(c *fiber.Ctx, run importFunc) error {
	header, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "File is required in form field 'file'")
	}

	file, err := header.Open()
	if err != nil {
		return badRequest(c, "Cannot read uploaded file")
	}
	defer file.Close()

	format := c.FormValue("format")
	if format == "" {
		format = services.FormatFromFilename(header.Filename)
	}

	summary, err := run(c.UserContext(), file, services.ImportOptions{
		Format:   format,
		Sheet:    c.FormValue("sheet"),
		Encoding: c.FormValue("encoding"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Import finished", "data": summary})
}
