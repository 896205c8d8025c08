// Package api exposes the detection pipeline over HTTP with echo.
package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/securitas/internal/datastore/entities"
	"github.com/tphakala/securitas/internal/detection"
	"github.com/tphakala/securitas/internal/logger"
	"github.com/tphakala/securitas/internal/statistics"
)

const component = "api"

// GetLogger returns the api module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module(component)
}

// Controller serves the detection routes.
type Controller struct {
	detections *detection.Service
	gate       *detection.Gate
	statistics *statistics.Aggregator
	log        logger.Logger
}

// NewController creates a Controller.
func NewController(svc *detection.Service, stats *statistics.Aggregator, log logger.Logger) *Controller {
	if log == nil {
		log = GetLogger()
	}
	return &Controller{
		detections: svc,
		gate:       svc.Gate(),
		statistics: stats,
		log:        log,
	}
}

// RegisterRoutes mounts the detection routes on g.
func (c *Controller) RegisterRoutes(g *echo.Group) {
	d := g.Group("/detections")
	d.GET("", c.ListDetections)
	d.GET("/search", c.SearchDetections)
	d.GET("/statistics", c.GetStatistics)
	d.POST("/incoming", c.IngestDetection)
	d.POST("/approve/bulk", c.BulkApproveDetections)
	d.GET("/:id", c.GetDetection)
	d.PATCH("/:id", c.UpdateDetection)
	d.DELETE("/:id", c.DeleteDetection)
	d.PATCH("/:id/approve", c.ApproveDetection)
}

// IngestDetection handles POST /detections/incoming.
func (c *Controller) IngestDetection(ctx echo.Context) error {
	var req detection.IngestRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, badRequest("invalid request body"), "Invalid request body")
	}
	det, err := c.detections.Ingest(ctx.Request().Context(), &req)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to ingest detection")
	}
	return ctx.JSON(http.StatusCreated, det)
}

// ListDetections handles GET /detections.
func (c *Controller) ListDetections(ctx echo.Context) error {
	q := &queryParser{ctx: ctx}
	filter := q.detectionFilter()
	page := q.Page()
	if q.err != nil {
		return c.HandleError(ctx, q.err, "Invalid query parameters")
	}
	result, err := c.detections.List(ctx.Request().Context(), &filter, page)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list detections")
	}
	return ctx.JSON(http.StatusOK, result)
}

// SearchDetections handles GET /detections/search.
func (c *Controller) SearchDetections(ctx echo.Context) error {
	q := &queryParser{ctx: ctx}
	filter := q.searchFilter()
	page := q.Page()
	if q.err != nil {
		return c.HandleError(ctx, q.err, "Invalid query parameters")
	}
	result, err := c.detections.Search(ctx.Request().Context(), &filter, page)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to search detections")
	}
	return ctx.JSON(http.StatusOK, result)
}

// GetDetection handles GET /detections/:id.
func (c *Controller) GetDetection(ctx echo.Context) error {
	det, err := c.detections.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get detection")
	}
	return ctx.JSON(http.StatusOK, det)
}

// UpdateDetection handles PATCH /detections/:id.
func (c *Controller) UpdateDetection(ctx echo.Context) error {
	var patch detection.Patch
	if err := ctx.Bind(&patch); err != nil {
		return c.HandleError(ctx, badRequest("invalid request body"), "Invalid request body")
	}
	det, err := c.detections.Update(ctx.Request().Context(), ctx.Param("id"), &patch)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to update detection")
	}
	return ctx.JSON(http.StatusOK, det)
}

// DeleteDetection handles DELETE /detections/:id.
func (c *Controller) DeleteDetection(ctx echo.Context) error {
	if err := c.detections.Remove(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return c.HandleError(ctx, err, "Failed to delete detection")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// approveRequest is the body of a single approval. Approved defaults to yes.
type approveRequest struct {
	Approved   string  `json:"approved"`
	ApprovedBy *string `json:"approved_by"`
}

// ApproveDetection handles PATCH /detections/:id/approve.
func (c *Controller) ApproveDetection(ctx echo.Context) error {
	var req approveRequest
	if ctx.Request().ContentLength != 0 {
		if err := ctx.Bind(&req); err != nil {
			return c.HandleError(ctx, badRequest("invalid request body"), "Invalid request body")
		}
	}
	value, err := approvalValue(req.Approved)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid approval value")
	}
	det, err := c.gate.ApproveOne(ctx.Request().Context(), ctx.Param("id"), detection.ApproveOptions{
		Value:      value,
		ApprovedBy: req.ApprovedBy,
	})
	if err != nil {
		return c.HandleError(ctx, err, "Failed to approve detection")
	}
	return ctx.JSON(http.StatusOK, det)
}

// bulkApproveRequest is the body of a bulk approval.
type bulkApproveRequest struct {
	DetectionIDs []string `json:"detection_ids"`
	Approved     string   `json:"approved"`
	ApprovedBy   *string  `json:"approved_by"`
}

// BulkApproveDetections handles POST /detections/approve/bulk.
func (c *Controller) BulkApproveDetections(ctx echo.Context) error {
	var req bulkApproveRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, badRequest("invalid request body"), "Invalid request body")
	}
	value, err := approvalValue(req.Approved)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid approval value")
	}
	dets, err := c.gate.ApproveBulk(ctx.Request().Context(), req.DetectionIDs, value, req.ApprovedBy)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to approve detections")
	}
	return ctx.JSON(http.StatusOK, dets)
}

// approvalValue parses an approval value case-insensitively; empty is yes.
func approvalValue(s string) (entities.ApprovalState, error) {
	if strings.TrimSpace(s) == "" {
		return entities.ApprovalYes, nil
	}
	v, err := entities.ParseApprovalState(s)
	if err != nil {
		return "", badRequest("invalid approval value %q", s)
	}
	return v, nil
}

// GetStatistics handles GET /detections/statistics.
func (c *Controller) GetStatistics(ctx echo.Context) error {
	q := &queryParser{ctx: ctx}
	req := statistics.Request{
		CompanyCode: q.String("company_code"),
		Timezone:    q.String("timezone", "tz"),
		GroupBy:     statistics.GroupBy(q.String("group_by")),
	}
	if from := q.Time("from"); from != nil {
		req.From = *from
	}
	if to := q.Time("to"); to != nil {
		req.To = *to
	}
	if q.err != nil {
		return c.HandleError(ctx, q.err, "Invalid query parameters")
	}

	report, err := c.statistics.Aggregate(ctx.Request().Context(), &req)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to compute statistics")
	}
	return ctx.JSON(http.StatusOK, report)
}
