package api

import (
	"errors"

	"AirPulse/internal/domain/models"
	domrepo "AirPulse/internal/domain/repository"
	"AirPulse/internal/usecase"
	xhttp "AirPulse/pkg/http"
	xlogger "AirPulse/pkg/logger"
	"AirPulse/pkg/util"

	"github.com/labstack/echo/v4"
)

// AnalysisHandler exposes the gap filling and anomaly detection pipeline
// over HTTP.
type AnalysisHandler struct {
	logger  *xlogger.Logger
	gapfill *usecase.GapFillUseCase
	anomaly *usecase.AnomalyUseCase
	ingest  *usecase.IngestUseCase
	storage domrepo.Storage
}

func NewAnalysisHandler(logger *xlogger.Logger, gapfill *usecase.GapFillUseCase, anomaly *usecase.AnomalyUseCase, ingest *usecase.IngestUseCase) *AnalysisHandler {
	return &AnalysisHandler{logger: logger, gapfill: gapfill, anomaly: anomaly, ingest: ingest}
}

func (h *AnalysisHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	g := e.Group("/api")
	g.POST("/gapfill", h.GapFill)
	g.POST("/anomaly", h.Anomaly)
	g.GET("/models", h.Models)
	g.POST("/models/:param/train", h.Train)
	if h.ingest != nil {
		g.POST("/ingest/sync", h.Sync)
		g.GET("/observations", h.Observations)
	}
}

func (h *AnalysisHandler) GapFill(c echo.Context) error {
	req := &models.GapFillRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	points, err := usecase.ReadingsToSeries(req.Records)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}

	param := req.ParamType
	if param == "" {
		param = req.ValueColumn
	}
	res, err := h.gapfill.FillGaps(c.Request().Context(), usecase.GapFillParams{
		Parameter:      param,
		ModelName:      req.ModelName,
		SequenceLength: req.SequenceLength,
		ForceRetrain:   req.ForceRetrain,
		Points:         points,
	})
	if err != nil {
		h.logger.Error("gapfill usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, domainError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalysisHandler) Anomaly(c echo.Context) error {
	req := &models.AnomalyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	points, err := usecase.ReadingsToSeries(req.Records)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}

	param := req.ParamType
	if param == "" {
		param = req.ValueColumn
	}
	res, err := h.anomaly.Detect(c.Request().Context(), usecase.DetectParams{
		Parameter:     param,
		ZThreshold:    req.ZThreshold,
		IQRMultiplier: req.IQRMultiplier,
		Contamination: req.Contamination,
		Points:        points,
	})
	if err != nil {
		h.logger.Error("anomaly usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, domainError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalysisHandler) Models(c echo.Context) error {
	infos := h.gapfill.ListModels()
	return xhttp.ListResponse(c, infos, int64(len(infos)))
}

func (h *AnalysisHandler) Train(c echo.Context) error {
	req := &models.TrainRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	points, err := usecase.ReadingsToSeries(req.Records)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}

	res, err := h.gapfill.Train(c.Request().Context(), usecase.TrainParams{
		Parameter:      c.Param("param"),
		SequenceLength: req.SequenceLength,
		MaxEpochs:      req.MaxEpochs,
		BatchSize:      req.BatchSize,
		Points:         points,
	})
	if err != nil {
		h.logger.Error("train usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, domainError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

type syncRequest struct {
	StationID string `json:"station_id" query:"station_id" validate:"required"`
	Parameter string `json:"parameter" query:"parameter" default:"pm25"`
	DateFrom  string `json:"date_from" query:"date_from" validate:"required"`
	DateTo    string `json:"date_to" query:"date_to" validate:"required"`
}

func (h *AnalysisHandler) Sync(c echo.Context) error {
	req := &syncRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	from, ok := util.ParseTime(req.DateFrom)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("unparsable date_from %q", req.DateFrom))
	}
	to, ok := util.ParseTime(req.DateTo)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("unparsable date_to %q", req.DateTo))
	}

	res, err := h.ingest.Sync(c.Request().Context(), req.StationID, req.Parameter, from, to)
	if err != nil {
		h.logger.Error("ingest sync error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, domainError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalysisHandler) Observations(c echo.Context) error {
	req := &syncRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	from, ok := util.ParseTime(req.DateFrom)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("unparsable date_from %q", req.DateFrom))
	}
	to, ok := util.ParseTime(req.DateTo)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("unparsable date_to %q", req.DateTo))
	}
	limit := util.ParseIntDefault(c.QueryParam("limit"), 0)

	points, err := h.ingest.Series(c.Request().Context(), req.StationID, req.Parameter, from, to, limit)
	if err != nil {
		h.logger.Error("observations query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, domainError(err))
	}
	return xhttp.ListResponse(c, points, int64(len(points)))
}

// domainError maps pipeline sentinels onto HTTP application errors.
func domainError(err error) error {
	switch {
	case errors.Is(err, models.ErrNoValidData),
		errors.Is(err, models.ErrInsufficientData):
		return xhttp.UnprocessableError(err.Error())
	case errors.Is(err, models.ErrDuplicateTimestamp):
		return xhttp.BadRequestError(err.Error())
	case errors.Is(err, models.ErrModelNotReady):
		return xhttp.NotFoundError(err.Error())
	case errors.Is(err, models.ErrModelMismatch):
		return xhttp.ConflictError(err.Error())
	default:
		return err
	}
}
