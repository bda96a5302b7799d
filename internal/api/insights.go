package api

import (
	"net/http"

	"github.com/fabricahq/fabrica/internal/scrape"
	"github.com/fabricahq/fabrica/pkg/logger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type (
	// InsightDto is the response used by endpoints that return the items
	// being scraped (e.g., list, get).
	InsightDto struct {
		Id          uuid.UUID       `json:"id"`
		URL         string          `json:"source_url"`
		State       InsightStateDto `json:"state"`
		Trouble     *TroubleDto     `json:"trouble"`
		Title       string          `json:"title,omitempty"`
		ArtifactKey string          `json:"artifact_key,omitempty"`
	}

	InsightStateDto string
	TroubleTypeDto  string

	TroubleDto struct {
		Type    TroubleTypeDto `json:"type"`
		Message string         `json:"message"`
	}

	InsightService interface {
		AllItems() []*scrape.InsightItem
		Item(uuid.UUID) *scrape.InsightItem
	}

	insightsController struct {
		service InsightService
	}
)

const (
	IDLE     InsightStateDto = "IDLE"
	SCRAPING InsightStateDto = "SCRAPING"
	TROUBLED InsightStateDto = "TROUBLED"
	COMPLETE InsightStateDto = "COMPLETE"

	FETCH_FAILURE      TroubleTypeDto = "FETCH_FAILURE"
	GENERATION_FAILURE TroubleTypeDto = "GENERATION_FAILURE"
	STORAGE_FAILURE    TroubleTypeDto = "STORAGE_FAILURE"
	UNKNOWN_FAILURE    TroubleTypeDto = "UNKNOWN_FAILURE"
)

func newInsightsController(service InsightService) *insightsController {
	return &insightsController{service: service}
}

func (controller *insightsController) SetRoutes(eg *echo.Group) {
	eg.GET("/", controller.list)
	eg.GET("/:id/", controller.get)
}

// list returns all the insight items - represented as DTOs - known to the
// scrape service.
func (controller *insightsController) list(ec echo.Context) error {
	items := controller.service.AllItems()
	dtos := make([]InsightDto, len(items))
	for i, item := range items {
		dtos[i] = newInsightDto(item)
	}

	return ec.JSON(http.StatusOK, dtos)
}

func (controller *insightsController) get(ec echo.Context) error {
	id, err := uuid.Parse(ec.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "insight ID is not a valid UUID")
	}

	item := controller.service.Item(id)
	if item == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no insight found with that ID")
	}

	return ec.JSON(http.StatusOK, newInsightDto(item))
}

func newInsightDto(item *scrape.InsightItem) InsightDto {
	return InsightDto{
		Id:          item.ID,
		URL:         item.URL,
		State:       insightStateToDto(item.State),
		Trouble:     troubleToDto(item.Trouble),
		Title:       item.Title,
		ArtifactKey: item.ArtifactKey,
	}
}

func insightStateToDto(state scrape.InsightItemState) InsightStateDto {
	switch state {
	case scrape.IDLE:
		return IDLE
	case scrape.SCRAPING:
		return SCRAPING
	case scrape.TROUBLED:
		return TROUBLED
	case scrape.COMPLETE:
		return COMPLETE
	}

	log.Emit(logger.WARNING, "insight state %v has no DTO mapping\n", state)
	return InsightStateDto("UNKNOWN")
}

func troubleToDto(trouble *scrape.Trouble) *TroubleDto {
	if trouble == nil {
		return nil
	}

	var troubleType TroubleTypeDto
	switch trouble.Type() {
	case scrape.FETCH_FAILURE:
		troubleType = FETCH_FAILURE
	case scrape.GENERATION_FAILURE:
		troubleType = GENERATION_FAILURE
	case scrape.STORAGE_FAILURE:
		troubleType = STORAGE_FAILURE
	default:
		troubleType = UNKNOWN_FAILURE
	}

	return &TroubleDto{Type: troubleType, Message: trouble.Error()}
}
