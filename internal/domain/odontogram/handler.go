package odontogram

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
	read.GET("/dentition/:scheme", h.GetDentition)
	read.GET("/patients/:id/odontogram/:scheme", h.GetChart)

	write := api.Group("", auth.RequireRole("dentist"))
	write.PUT("/patients/:id/odontogram/:scheme", h.PutChart)
	write.POST("/patients/:id/odontogram/:scheme/operations", h.ApplyOperation)
}

type dentitionResponse struct {
	Scheme   fdi.Scheme `json:"scheme"`
	Upper    []string   `json:"upper"`
	Lower    []string   `json:"lower"`
	Surfaces []Surface  `json:"surfaces"`
	Statuses []Status   `json:"statuses"`
	Cycle    []Status   `json:"cycle"`
}

// GetDentition serves the render metadata a chart client needs: tooth rows
// in display order plus the surface and status vocabularies.
func (h *Handler) GetDentition(c echo.Context) error {
	scheme, err := fdi.ParseScheme(c.Param("scheme"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, dentitionResponse{
		Scheme:   scheme,
		Upper:    fdi.UpperRow(scheme),
		Lower:    fdi.LowerRow(scheme),
		Surfaces: Surfaces(),
		Statuses: Statuses(h.svc.ExtendedStatuses()),
		Cycle:    CycleOrder(),
	})
}

type chartResponse struct {
	PatientID uuid.UUID  `json:"patient_id"`
	Scheme    fdi.Scheme `json:"scheme"`
	Entries   Snapshot   `json:"entries"`
}

type chartRequest struct {
	Entries Snapshot `json:"entries"`
}

func (h *Handler) GetChart(c echo.Context) error {
	patientID, scheme, err := chartParams(c)
	if err != nil {
		return err
	}
	chart, err := h.svc.Load(c.Request().Context(), patientID, scheme)
	if err != nil {
		return chartError(err, http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, chartResponse{PatientID: patientID, Scheme: scheme, Entries: chart.Snapshot()})
}

func (h *Handler) PutChart(c echo.Context) error {
	patientID, scheme, err := chartParams(c)
	if err != nil {
		return err
	}
	var req chartRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	chart, err := h.svc.Replace(c.Request().Context(), patientID, scheme, req.Entries)
	if err != nil {
		return chartError(err, http.StatusBadRequest)
	}
	return c.JSON(http.StatusOK, chartResponse{PatientID: patientID, Scheme: scheme, Entries: chart.Snapshot()})
}

func (h *Handler) ApplyOperation(c echo.Context) error {
	patientID, scheme, err := chartParams(c)
	if err != nil {
		return err
	}
	var op Operation
	if err := c.Bind(&op); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	result, err := h.svc.Apply(c.Request().Context(), patientID, scheme, op)
	if err != nil {
		return chartError(err, http.StatusBadRequest)
	}
	return c.JSON(http.StatusOK, result)
}

func chartParams(c echo.Context) (uuid.UUID, fdi.Scheme, error) {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, "", echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	scheme, err := fdi.ParseScheme(c.Param("scheme"))
	if err != nil {
		return uuid.Nil, "", echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return patientID, scheme, nil
}

// chartError maps the clinical error taxonomy onto HTTP statuses. Store
// failures surface as 503 so the client can re-invoke explicitly; rejected
// input is a 400; anything else takes the endpoint's fallback status.
func chartError(err error, fallback int) error {
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, storeErr.Error())
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
