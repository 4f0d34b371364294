package main

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wms-platform/outbound-fulfillment-service/internal/api/dto"
	"github.com/wms-platform/outbound-fulfillment-service/internal/application"
	"github.com/wms-platform/outbound-fulfillment-service/internal/domain"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/api"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/errors"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/logging"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/middleware"
)

// fulfillmentService is the slice of *application.FulfillmentService the HTTP layer uses
type fulfillmentService interface {
	CreateTaskBased(ctx context.Context, cmd application.CreateTaskBasedCommand) (*application.TaskBasedSummaryDTO, error)
	CreateContainerQuantity(ctx context.Context, cmd application.CreateQuantityBasedCommand) (*application.ReservationSummaryDTO, error)
	CreateLocationQuantity(ctx context.Context, cmd application.CreateQuantityBasedCommand) (*application.ReservationSummaryDTO, error)
	GetFulfillment(ctx context.Context, fulfillmentID string) (*application.FulfillmentDTO, error)
	ListFulfillments(ctx context.Context, q application.ListFulfillmentsQuery) (*application.PagedResult[application.FulfillmentListDTO], error)
	ListByStage(ctx context.Context, q application.StageQuery) (*application.PagedResult[application.FulfillmentListDTO], error)
	StageSummary(ctx context.Context) ([]application.StageCountDTO, error)
	StartPicking(ctx context.Context, fulfillmentID string) (*application.FulfillmentDTO, error)
	PickupDone(ctx context.Context, cmd application.PickupDoneCommand) (*application.PickupDoneSummaryDTO, error)
	PackMoveDone(ctx context.Context, fulfillmentID string) (*application.FulfillmentDTO, error)
	DropAtDispatch(ctx context.Context, cmd application.PackageBarcodesCommand) (*application.FulfillmentDTO, error)
	Load(ctx context.Context, cmd application.PackageBarcodesCommand) (*application.FulfillmentDTO, error)
	MarkGINSent(ctx context.Context, cmd application.MarkGINSentCommand) (*application.FulfillmentDTO, error)
	UpdateStatus(ctx context.Context, cmd application.UpdateStatusCommand) (*application.FulfillmentDTO, error)
	Cancel(ctx context.Context, cmd application.CancelCommand) (*application.FulfillmentDTO, error)
	CurrentSequence(ctx context.Context, name string) (int64, error)
	ResetSequence(ctx context.Context, name string, value int64) error
}

var _ fulfillmentService = (*application.FulfillmentService)(nil)

func registerRoutes(v1 *gin.RouterGroup, service fulfillmentService, logger *logging.Logger) {
	fulfillments := v1.Group("/fulfillments")
	{
		fulfillments.POST("/task-based", createTaskBasedHandler(service, logger))
		fulfillments.POST("/container-quantity", createQuantityBasedHandler(service.CreateContainerQuantity, domain.FulfillmentTypeContainerQuantity, logger))
		fulfillments.POST("/location-quantity", createQuantityBasedHandler(service.CreateLocationQuantity, domain.FulfillmentTypeLocationQuantity, logger))

		fulfillments.GET("", listFulfillmentsHandler(service, logger))
		fulfillments.GET("/stages/summary", stageSummaryHandler(service, logger))
		fulfillments.GET("/stages/:stage", listByStageHandler(service, logger))
		fulfillments.GET("/:fulfillmentId", getFulfillmentHandler(service, logger))

		fulfillments.POST("/:fulfillmentId/start-picking", byIDHandler(service.StartPicking, logger))
		fulfillments.POST("/:fulfillmentId/pickup-done", pickupDoneHandler(service, logger))
		fulfillments.POST("/:fulfillmentId/pack-move-done", byIDHandler(service.PackMoveDone, logger))
		fulfillments.POST("/:fulfillmentId/dispatch", packageBarcodesHandler(service.DropAtDispatch, logger))
		fulfillments.POST("/:fulfillmentId/load", packageBarcodesHandler(service.Load, logger))
		fulfillments.POST("/:fulfillmentId/gin-sent", ginSentHandler(service, logger))
		fulfillments.POST("/:fulfillmentId/status", updateStatusHandler(service, logger))
		fulfillments.POST("/:fulfillmentId/cancel", cancelHandler(service, logger))
	}

	admin := v1.Group("/admin")
	{
		admin.GET("/sequences/:name", currentSequenceHandler(service, logger))
		admin.POST("/sequences/:name/reset", resetSequenceHandler(service, logger))
	}
}

func spanAttributes(c *gin.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(c.Request.Context()).SetAttributes(attrs...)
}

// fulfillmentID reads and checks the path id; it responds and returns false when malformed
func fulfillmentID(c *gin.Context, responder *middleware.ErrorResponder) (string, bool) {
	id := c.Param("fulfillmentId")
	if !middleware.IsFulfillmentID(id) {
		responder.RespondWithAppError(errors.ErrValidationWithFields("invalid fulfillment id", map[string]string{
			"fulfillmentId": "must be a valid fulfillment id (format: OFR-00000000)",
		}))
		return "", false
	}
	spanAttributes(c, attribute.String("fulfillment.id", id))
	return id, true
}

func createTaskBasedHandler(service fulfillmentService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger)

		var req dto.CreateTaskBasedRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		spanAttributes(c,
			attribute.String("account.id", req.AccountID),
			attribute.String("fulfillment.approach", req.ExecutionApproach),
			attribute.Int("fulfillment.lines", len(req.LineItems)),
		)

		result, err := service.CreateTaskBased(c.Request.Context(), req.ToCommand())
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusCreated, result)
	}
}

type quantityCreateFunc func(ctx context.Context, cmd application.CreateQuantityBasedCommand) (*application.ReservationSummaryDTO, error)

func createQuantityBasedHandler(create quantityCreateFunc, fulfillmentType domain.FulfillmentType, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger)

		var req dto.CreateQuantityBasedRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		spanAttributes(c,
			attribute.String("account.id", req.AccountID),
			attribute.String("fulfillment.type", string(fulfillmentType)),
			attribute.Int("fulfillment.lines", len(req.LineItems)),
			attribute.Int("fulfillment.packages", len(req.Packages)),
		)

		result, err := create(c.Request.Context(), req.ToCommand())
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusCreated, result)
	}
}

func getFulfillmentHandler(service fulfillmentService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger)

		id, ok := fulfillmentID(c, responder)
		if !ok {
			return
		}

		ofr, err := service.GetFulfillment(c.Request.Context(), id)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, ofr)
	}
}

func listFulfillmentsHandler(service fulfillmentService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger)
		page := api.ParsePagination(c)

		result, err := service.ListFulfillments(c.Request.Context(), application.ListFulfillmentsQuery{
			AccountID:       c.Query("accountId"),
			Status:          domain.Status(c.Query("status")),
			FulfillmentType: domain.FulfillmentType(c.Query("fulfillmentType")),
			Page:            page.Page,
			PageSize:        page.PageSize,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, dto.ToPageResponse(result))
	}
}

func listByStageHandler(service fulfillmentService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger)

		stage, err := domain.ParseStage(c.Param("stage"))
		if err != nil {
			responder.RespondWithAppError(errors.ErrValidationWithFields("unknown stage", map[string]string{"stage": c.Param("stage")}))
			return
		}

		filter, badField := api.ParseFilter(c)
		if badField != "" {
			responder.RespondWithAppError(errors.ErrValidationWithFields("invalid date", map[string]string{
				badField: "must be RFC3339 or YYYY-MM-DD",
			}))
			return
		}

		spanAttributes(c, attribute.String("fulfillment.stage", string(stage)))

		page := api.ParsePagination(c)
		result, err := service.ListByStage(c.Request.Context(), application.StageQuery{
			Stage:    stage,
			Search:   filter.Search,
			DateFrom: filter.DateFrom,
			DateTo:   filter.DateTo,
			Page:     page.Page,
			PageSize: page.PageSize,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, dto.ToPageResponse(result))
	}
}

func stageSummaryHandler(service fulfillmentService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		counts, err := service.StageSummary(c.Request.Context())
		if err != nil {
			middleware.NewErrorResponder(c, logger).RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, dto.ToStageSummaryResponse(counts))
	}
}

type fulfillmentAction func(ctx context.Context, fulfillmentID string) (*application.FulfillmentDTO, error)

// byIDHandler serves transitions that need nothing but the OFR id
func byIDHandler(action fulfillmentAction, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger)

		id, ok := fulfillmentID(c, responder)
		if !ok {
			return
		}

		ofr, err := action(c.Request.Context(), id)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, ofr)
	}
}

func pickupDoneHandler(service fulfillmentService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger)

		id, ok := fulfillmentID(c, responder)
		if !ok {
			return
		}

		var req dto.PickupDoneRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		spanAttributes(c, attribute.Int("fulfillment.packages", len(req.Packages)))

		result, err := service.PickupDone(c.Request.Context(), req.ToCommand(id))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

type packageAction func(ctx context.Context, cmd application.PackageBarcodesCommand) (*application.FulfillmentDTO, error)

func packageBarcodesHandler(action packageAction, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger)

		id, ok := fulfillmentID(c, responder)
		if !ok {
			return
		}

		var req dto.PackageBarcodesRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		ofr, err := action(c.Request.Context(), req.ToCommand(id))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, ofr)
	}
}

func ginSentHandler(service fulfillmentService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger)

		id, ok := fulfillmentID(c, responder)
		if !ok {
			return
		}

		// the body is optional
		var req dto.GINSentRequest
		if c.Request.ContentLength > 0 {
			if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
				responder.RespondWithAppError(appErr)
				return
			}
		}

		ofr, err := service.MarkGINSent(c.Request.Context(), application.MarkGINSentCommand{
			FulfillmentID: id,
			Recipients:    req.Recipients,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, ofr)
	}
}

func updateStatusHandler(service fulfillmentService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger)

		id, ok := fulfillmentID(c, responder)
		if !ok {
			return
		}

		var req dto.UpdateStatusRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		spanAttributes(c, attribute.String("fulfillment.status", req.Status))

		ofr, err := service.UpdateStatus(c.Request.Context(), application.UpdateStatusCommand{
			FulfillmentID: id,
			Status:        domain.Status(req.Status),
			Reason:        req.Reason,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, ofr)
	}
}

func cancelHandler(service fulfillmentService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger)

		id, ok := fulfillmentID(c, responder)
		if !ok {
			return
		}

		var req dto.CancelRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		ofr, err := service.Cancel(c.Request.Context(), application.CancelCommand{FulfillmentID: id, Reason: req.Reason})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, ofr)
	}
}

func currentSequenceHandler(service fulfillmentService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger)

		name := c.Param("name")
		value, err := service.CurrentSequence(c.Request.Context(), name)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"name": name, "value": value})
	}
}

func resetSequenceHandler(service fulfillmentService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger)

		var req dto.ResetSequenceRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		name := c.Param("name")
		if err := service.ResetSequence(c.Request.Context(), name, *req.Value); err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"name": name, "value": *req.Value})
	}
}
