package api

import (
	"net/http"

	"github.com/fabricahq/fabrica/internal/script"
	"github.com/fabricahq/fabrica/pkg/logger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type (
	ScriptTaskDto struct {
		Id            uuid.UUID          `json:"id"`
		SourceInsight string             `json:"source_insight"`
		State         ScriptTaskStateDto `json:"state"`
		Trouble       *TroubleDto        `json:"trouble"`
		ScriptKey     string             `json:"script_key,omitempty"`
		VideoKey      string             `json:"video_key,omitempty"`
	}

	ScriptTaskStateDto string

	ScriptService interface {
		AllTasks() []*script.ScriptTask
		Task(uuid.UUID) *script.ScriptTask
	}

	scriptsController struct {
		service ScriptService
	}
)

const (
	WAITING       ScriptTaskStateDto = "WAITING"
	GENERATING    ScriptTaskStateDto = "GENERATING"
	SYNTHESIZING  ScriptTaskStateDto = "SYNTHESIZING"
	TASK_TROUBLED ScriptTaskStateDto = "TROUBLED"
	TASK_COMPLETE ScriptTaskStateDto = "COMPLETE"
)

func newScriptsController(service ScriptService) *scriptsController {
	return &scriptsController{service: service}
}

func (controller *scriptsController) SetRoutes(eg *echo.Group) {
	eg.GET("/", controller.list)
	eg.GET("/:id/", controller.get)
}

func (controller *scriptsController) list(ec echo.Context) error {
	tasks := controller.service.AllTasks()
	dtos := make([]ScriptTaskDto, len(tasks))
	for i, task := range tasks {
		dtos[i] = newScriptTaskDto(task)
	}

	return ec.JSON(http.StatusOK, dtos)
}

func (controller *scriptsController) get(ec echo.Context) error {
	id, err := uuid.Parse(ec.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "script task ID is not a valid UUID")
	}

	task := controller.service.Task(id)
	if task == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no script task found with that ID")
	}

	return ec.JSON(http.StatusOK, newScriptTaskDto(task))
}

func newScriptTaskDto(task *script.ScriptTask) ScriptTaskDto {
	var trouble *TroubleDto
	if err := task.Trouble(); err != nil {
		trouble = &TroubleDto{Type: GENERATION_FAILURE, Message: err.Error()}
	}

	return ScriptTaskDto{
		Id:            task.ID(),
		SourceInsight: task.Insight().Key,
		State:         scriptStateToDto(task.State()),
		Trouble:       trouble,
		ScriptKey:     task.ScriptKey(),
		VideoKey:      task.VideoKey(),
	}
}

func scriptStateToDto(state script.TaskState) ScriptTaskStateDto {
	switch state {
	case script.WAITING:
		return WAITING
	case script.GENERATING:
		return GENERATING
	case script.SYNTHESIZING:
		return SYNTHESIZING
	case script.TROUBLED:
		return TASK_TROUBLED
	case script.COMPLETE:
		return TASK_COMPLETE
	}

	log.Emit(logger.WARNING, "script task state %v has no DTO mapping\n", state)
	return ScriptTaskStateDto("UNKNOWN")
}
