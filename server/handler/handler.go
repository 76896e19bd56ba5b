package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/goto/salt/log"

	"github.com/vigil-dq/vigil/core/job"
	"github.com/vigil-dq/vigil/core/metric"
	"github.com/vigil-dq/vigil/core/schedule"
	"github.com/vigil-dq/vigil/core/timeline"
	"github.com/vigil-dq/vigil/internal/errors"
)

type ScheduleService interface {
	GetSchedule(ctx context.Context, jobName job.Name) (*schedule.Definition, error)
	UpdateSchedule(ctx context.Context, definition *schedule.Definition) error
	DeleteSchedule(ctx context.Context, jobName job.Name) error
	AllSchedules(ctx context.Context) ([]*schedule.Definition, error)
}

type ExecutionService interface {
	Trigger(ctx context.Context, jobName job.Name, trigger schedule.TriggerType) (*schedule.Execution, error)
	GetLatestExecution(ctx context.Context, jobName job.Name) (*schedule.Execution, error)
	GetAllExecutions(ctx context.Context, jobName job.Name) ([]*schedule.Execution, error)
	GetExecution(ctx context.Context, id schedule.ExecutionID) (*schedule.Execution, error)
}

type TimelineService interface {
	GetTimelineData(ctx context.Context, definition *timeline.Definition) (*timeline.Data, error)
	GetMetricParameterSuggestions(ctx context.Context, jobName job.Name, ref metric.Reference) ([]string, error)
	GetTimeline(ctx context.Context, id timeline.Identifier) (*timeline.Definition, error)
	CreateTimeline(ctx context.Context, id timeline.Identifier, definition *timeline.Definition) error
	UpdateTimeline(ctx context.Context, id timeline.Identifier, definition *timeline.Definition) error
	DeleteTimeline(ctx context.Context, id timeline.Identifier) error
	ListTimelines(ctx context.Context, group string) ([]timeline.Identifier, error)
	ListGroups(ctx context.Context) ([]timeline.Group, error)
	CreateGroup(ctx context.Context, group timeline.Group) error
}

// Handler exposes the monitoring core over a small JSON API.
type Handler struct {
	l         log.Logger
	schedules ScheduleService
	runs      ExecutionService
	timelines TimelineService
}

func New(logger log.Logger, schedules ScheduleService, runs ExecutionService, timelines TimelineService) *Handler {
	return &Handler{
		l:         logger,
		schedules: schedules,
		runs:      runs,
		timelines: timelines,
	}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	v1 := router.Group("/v1")

	v1.GET("/schedules", h.listSchedules)
	v1.GET("/jobs/:job/schedule", h.getSchedule)
	v1.PUT("/jobs/:job/schedule", h.updateSchedule)
	v1.DELETE("/jobs/:job/schedule", h.deleteSchedule)

	v1.POST("/jobs/:job/executions", h.triggerExecution)
	v1.GET("/jobs/:job/executions", h.listExecutions)
	v1.GET("/jobs/:job/executions/latest", h.latestExecution)
	v1.GET("/executions/:id", h.getExecution)

	v1.GET("/jobs/:job/metrics/suggestions", h.metricSuggestions)

	v1.POST("/timelines/query", h.queryTimelineData)
	v1.GET("/timelines", h.listTimelines)
	v1.GET("/timelines/:name", h.getTimeline)
	v1.POST("/timelines/:name", h.createTimeline)
	v1.PUT("/timelines/:name", h.updateTimeline)
	v1.DELETE("/timelines/:name", h.deleteTimeline)

	v1.GET("/groups", h.listGroups)
	v1.POST("/groups", h.createGroup)
}

func (h *Handler) listSchedules(c *gin.Context) {
	definitions, err := h.schedules.AllSchedules(c.Request.Context())
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	out := make([]scheduleJSON, 0, len(definitions))
	for _, definition := range definitions {
		out = append(out, fromSchedule(definition))
	}
	c.JSON(http.StatusOK, gin.H{"schedules": out})
}

func (h *Handler) getSchedule(c *gin.Context) {
	jobName, err := job.NameFrom(c.Param("job"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	definition, err := h.schedules.GetSchedule(c.Request.Context(), jobName)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, fromSchedule(definition))
}

func (h *Handler) updateSchedule(c *gin.Context) {
	jobName, err := job.NameFrom(c.Param("job"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	var body scheduleJSON
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid schedule document: " + err.Error()})
		return
	}

	definition := body.toDefinition(jobName)
	if err := h.schedules.UpdateSchedule(c.Request.Context(), definition); err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, fromSchedule(definition))
}

func (h *Handler) deleteSchedule(c *gin.Context) {
	jobName, err := job.NameFrom(c.Param("job"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	if err := h.schedules.DeleteSchedule(c.Request.Context(), jobName); err != nil {
		h.abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) triggerExecution(c *gin.Context) {
	jobName, err := job.NameFrom(c.Param("job"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	execution, err := h.runs.Trigger(c.Request.Context(), jobName, schedule.TriggerManual)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, fromExecution(execution))
}

func (h *Handler) listExecutions(c *gin.Context) {
	jobName, err := job.NameFrom(c.Param("job"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	executions, err := h.runs.GetAllExecutions(c.Request.Context(), jobName)
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	out := make([]executionJSON, 0, len(executions))
	for _, execution := range executions {
		out = append(out, fromExecution(execution))
	}
	c.JSON(http.StatusOK, gin.H{"executions": out})
}

func (h *Handler) latestExecution(c *gin.Context) {
	jobName, err := job.NameFrom(c.Param("job"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	execution, err := h.runs.GetLatestExecution(c.Request.Context(), jobName)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, fromExecution(execution))
}

func (h *Handler) getExecution(c *gin.Context) {
	execution, err := h.runs.GetExecution(c.Request.Context(), schedule.ExecutionID(c.Param("id")))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, fromExecution(execution))
}

func (h *Handler) metricSuggestions(c *gin.Context) {
	jobName, err := job.NameFrom(c.Param("job"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	ref, err := metric.ReferenceFrom(c.Query("descriptor"), c.Query("metric"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	ref = ref.WithInstance(c.Query("instance")).WithColumn(c.Query("column"))

	suggestions, err := h.timelines.GetMetricParameterSuggestions(c.Request.Context(), jobName, ref)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

func (h *Handler) queryTimelineData(c *gin.Context) {
	var body timelineJSON
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid timeline document: " + err.Error()})
		return
	}

	data, err := h.timelines.GetTimelineData(c.Request.Context(), body.toDefinition())
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, fromTimelineData(data))
}

func (h *Handler) listTimelines(c *gin.Context) {
	identifiers, err := h.timelines.ListTimelines(c.Request.Context(), c.Query("group"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	out := make([]gin.H, 0, len(identifiers))
	for _, id := range identifiers {
		out = append(out, gin.H{"name": id.Name, "group": id.Group})
	}
	c.JSON(http.StatusOK, gin.H{"timelines": out})
}

func (h *Handler) getTimeline(c *gin.Context) {
	id, err := timeline.IdentifierFrom(c.Param("name"), c.Query("group"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	definition, err := h.timelines.GetTimeline(c.Request.Context(), id)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, fromTimeline(definition))
}

func (h *Handler) createTimeline(c *gin.Context) {
	h.saveTimeline(c, h.timelines.CreateTimeline, http.StatusCreated)
}

func (h *Handler) updateTimeline(c *gin.Context) {
	h.saveTimeline(c, h.timelines.UpdateTimeline, http.StatusOK)
}

func (h *Handler) saveTimeline(c *gin.Context, save func(context.Context, timeline.Identifier, *timeline.Definition) error, status int) {
	id, err := timeline.IdentifierFrom(c.Param("name"), c.Query("group"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	var body timelineJSON
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid timeline document: " + err.Error()})
		return
	}

	definition := body.toDefinition()
	if err := save(c.Request.Context(), id, definition); err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(status, fromTimeline(definition))
}

func (h *Handler) deleteTimeline(c *gin.Context) {
	id, err := timeline.IdentifierFrom(c.Param("name"), c.Query("group"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	if err := h.timelines.DeleteTimeline(c.Request.Context(), id); err != nil {
		h.abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listGroups(c *gin.Context) {
	groups, err := h.timelines.ListGroups(c.Request.Context())
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	out := make([]gin.H, 0, len(groups))
	for _, group := range groups {
		out = append(out, gin.H{"name": group.Name, "description": group.Description})
	}
	c.JSON(http.StatusOK, gin.H{"groups": out})
}

func (h *Handler) createGroup(c *gin.Context) {
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group document: " + err.Error()})
		return
	}

	group := timeline.Group{Name: body.Name, Description: body.Description}
	if err := h.timelines.CreateGroup(c.Request.Context(), group); err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"name": group.Name, "description": group.Description})
}

func (h *Handler) abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.IsErrorType(err, errors.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.IsErrorType(err, errors.ErrNotFound):
		status = http.StatusNotFound
	case errors.IsErrorType(err, errors.ErrAlreadyExists):
		status = http.StatusConflict
	case errors.IsErrorType(err, errors.ErrFailedPrecondition):
		status = http.StatusPreconditionFailed
	}

	if status == http.StatusInternalServerError {
		h.l.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
