package periodontics

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/MatiGranjero/MuelitaSys/internal/platform/auth"
	"github.com/MatiGranjero/MuelitaSys/pkg/fdi"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole("dentist", "assistant"))
	read.GET("/patients/:id/periodontogram", h.GetGrid)
	read.GET("/patients/:id/periodontogram/metrics", h.GetMetrics)
	read.GET("/patients/:id/periodontogram/export", h.ExportGrid)

	write := api.Group("", auth.RequireRole("dentist"))
	write.PUT("/patients/:id/periodontogram", h.PutGrid)
	write.POST("/patients/:id/periodontogram/measurements", h.RecordMeasurement)
	write.POST("/patients/:id/periodontogram/clear", h.ClearGrid)
	write.POST("/periodontogram/import", h.ImportGrid)
}

type gridResponse struct {
	PatientID uuid.UUID     `json:"patient_id"`
	Scheme    fdi.Scheme    `json:"scheme"`
	Layout    Layout        `json:"layout"`
	Sites     []string      `json:"sites"`
	Cells     []Measurement `json:"cells"`
	Metrics   Metrics       `json:"metrics"`
}

func (h *Handler) gridJSON(c echo.Context, patientID uuid.UUID, grid *Grid) error {
	return c.JSON(http.StatusOK, gridResponse{
		PatientID: patientID,
		Scheme:    grid.Scheme(),
		Layout:    grid.Layout(),
		Sites:     Sites(grid.Layout()),
		Cells:     grid.All(),
		Metrics:   grid.Metrics(),
	})
}

func (h *Handler) GetGrid(c echo.Context) error {
	patientID, err := patientParam(c)
	if err != nil {
		return err
	}
	grid, err := h.svc.Load(c.Request().Context(), patientID)
	if err != nil {
		return gridError(err, http.StatusInternalServerError)
	}
	return h.gridJSON(c, patientID, grid)
}

func (h *Handler) GetMetrics(c echo.Context) error {
	patientID, err := patientParam(c)
	if err != nil {
		return err
	}
	metrics, err := h.svc.Metrics(c.Request().Context(), patientID)
	if err != nil {
		return gridError(err, http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, metrics)
}

func (h *Handler) ExportGrid(c echo.Context) error {
	patientID, err := patientParam(c)
	if err != nil {
		return err
	}
	doc, err := h.svc.Export(c.Request().Context(), patientID)
	if err != nil {
		return gridError(err, http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, doc)
}

type gridRequest struct {
	Cells []Measurement `json:"cells"`
}

func (h *Handler) PutGrid(c echo.Context) error {
	patientID, err := patientParam(c)
	if err != nil {
		return err
	}
	var req gridRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	grid, err := h.svc.Replace(c.Request().Context(), patientID, req.Cells)
	if err != nil {
		return gridError(err, http.StatusBadRequest)
	}
	return h.gridJSON(c, patientID, grid)
}

type measurementRequest struct {
	Tooth string `json:"tooth"`
	Site  string `json:"site"`
	Input
}

func (h *Handler) RecordMeasurement(c echo.Context) error {
	patientID, err := patientParam(c)
	if err != nil {
		return err
	}
	var req measurementRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m, err := h.svc.Record(c.Request().Context(), patientID, req.Tooth, req.Site, req.Input)
	if err != nil {
		return gridError(err, http.StatusBadRequest)
	}
	return c.JSON(http.StatusOK, m)
}

type clearRequest struct {
	Tooth string `json:"tooth"`
	All   bool   `json:"all"`
}

func (h *Handler) ClearGrid(c echo.Context) error {
	patientID, err := patientParam(c)
	if err != nil {
		return err
	}
	var req clearRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var grid *Grid
	if req.All {
		grid, err = h.svc.ClearAll(c.Request().Context(), patientID)
	} else {
		grid, err = h.svc.ClearTooth(c.Request().Context(), patientID, req.Tooth)
	}
	if err != nil {
		return gridError(err, http.StatusBadRequest)
	}
	return h.gridJSON(c, patientID, grid)
}

// ImportGrid replaces the grid of the patient named inside the document.
// The patient comes from the document body, not the URL, so exported files
// round trip unchanged.
func (h *Handler) ImportGrid(c echo.Context) error {
	var doc Document
	if err := c.Bind(&doc); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	grid, err := h.svc.Import(c.Request().Context(), &doc)
	if err != nil {
		return gridError(err, http.StatusBadRequest)
	}
	return h.gridJSON(c, doc.Patient, grid)
}

func patientParam(c echo.Context) (uuid.UUID, error) {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	return patientID, nil
}

// gridError maps the clinical error taxonomy onto HTTP statuses. Store
// failures surface as 503 so the client can re-invoke explicitly; rejected
// input is a 400; anything else takes the endpoint's fallback status.
func gridError(err error, fallback int) error {
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, storeErr.Error())
	}
	var measureErr *InvalidMeasurementError
	if errors.As(err, &measureErr) {
		return echo.NewHTTPError(http.StatusBadRequest, measureErr.Error())
	}
	var toothErr *fdi.InvalidToothError
	if errors.As(err, &toothErr) {
		return echo.NewHTTPError(http.StatusBadRequest, toothErr.Error())
	}
	if errors.Is(err, ErrNoPatient) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(fallback, err.Error())
}
