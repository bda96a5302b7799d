package api

import (
	"net/http"

	"github.com/fabricahq/fabrica/internal/pill"
	"github.com/labstack/echo/v4"
)

type (
	PillService interface {
		AllPills() []*pill.Pill
	}

	pillsController struct {
		service PillService
	}
)

func newPillsController(service PillService) *pillsController {
	return &pillsController{service: service}
}

func (controller *pillsController) SetRoutes(eg *echo.Group) {
	eg.GET("/", controller.list)
}

// list returns the pills generated this run. Pill documents are already
// JSON-shaped, so they are returned as-is rather than via a DTO.
func (controller *pillsController) list(ec echo.Context) error {
	return ec.JSON(http.StatusOK, controller.service.AllPills())
}
