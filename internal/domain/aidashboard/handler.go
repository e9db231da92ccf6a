package aidashboard

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/meditrack/emr/internal/domain/patient"
	"github.com/meditrack/emr/internal/platform/auth"
	"github.com/meditrack/emr/pkg/pagination"
)

// Handler serves the AI dashboard endpoints.
type Handler struct {
	orch     *Orchestrator
	agg      *Aggregator
	patients patient.Repository
	logger   zerolog.Logger
}

func NewHandler(orch *Orchestrator, agg *Aggregator, patients patient.Repository, logger zerolog.Logger) *Handler {
	return &Handler{orch: orch, agg: agg, patients: patients, logger: logger}
}

// RegisterRoutes mounts the dashboard under /ai-dashboard, restricted to
// clinical roles.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	dash := g.Group("/ai-dashboard", auth.RequireRole("physician", "nurse"))
	dash.GET("/overview", h.GetOverview)
	dash.POST("/bulk-assess", h.BulkAssess)
	dash.GET("/patients/:id/risk", h.GetPatientRisk)
	dash.POST("/patients/:id/assess", h.AssessPatient)
}

// GetOverview returns population risk statistics and the filtered patient
// list. Read-only: it serves whatever assessments are currently stored and
// never triggers recomputation.
func (h *Handler) GetOverview(c echo.Context) error {
	ctx := c.Request().Context()

	filter := Filter{
		Search:    c.QueryParam("search"),
		RiskLevel: RiskLevel(c.QueryParam("riskLevel")),
	}
	if filter.RiskLevel != "" && !filter.RiskLevel.ValidFilter() {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid riskLevel filter")
	}

	population, err := h.patients.ListActive(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load patients")
	}

	now := h.agg.now()
	refs := make([]patient.Ref, len(population))
	ids := make([]uuid.UUID, len(population))
	for i, p := range population {
		refs[i] = patient.NewRef(p, now)
		ids[i] = p.ID
	}

	assessments, err := h.orch.Cached(ctx, ids)
	if err != nil {
		return httpError(err)
	}

	overview := h.agg.Summarize(refs, assessments, filter)

	// Pagination applies to the patient list only; the stats cover the whole
	// filtered population.
	params := pagination.FromContext(c)
	overview.Patients = page(overview.Patients, params)

	return c.JSON(http.StatusOK, overview)
}

type bulkAssessRequest struct {
	PatientIDs    []uuid.UUID `json:"patientIds"`
	ForceReassess bool        `json:"forceReassess"`
}

type failureBody struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

type bulkAssessResponse struct {
	Results  map[string]*RiskAssessment `json:"results"`
	Failures map[string]failureBody     `json:"failures"`
}

// BulkAssess recomputes assessments for a set of patients. Per-patient
// failures are reported in the failures map; only a store failure aborts the
// batch.
func (h *Handler) BulkAssess(c echo.Context) error {
	var req bulkAssessRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.PatientIDs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "patientIds is required")
	}

	results, failures, err := h.orch.AssessMany(c.Request().Context(), req.PatientIDs, req.ForceReassess)
	if err != nil {
		h.logger.Error().Err(err).Int("requested", len(req.PatientIDs)).Msg("bulk assessment aborted")
		return httpError(err)
	}

	resp := bulkAssessResponse{
		Results:  make(map[string]*RiskAssessment, len(results)),
		Failures: make(map[string]failureBody, len(failures)),
	}
	for id, r := range results {
		resp.Results[id.String()] = r.Assessment
	}
	for id, e := range failures {
		resp.Failures[id.String()] = failureBody{Code: e.Code, Message: e.Message}
	}

	return c.JSON(http.StatusOK, resp)
}

// GetPatientRisk returns one patient's demographics and current assessment.
// DiabetesRisk is null when the patient has never been assessed.
func (h *Handler) GetPatientRisk(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}

	ctx := c.Request().Context()
	p, err := h.patients.GetByID(ctx, id)
	if err != nil {
		if err == patient.ErrNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load patient")
	}

	assessments, err := h.orch.Cached(ctx, []uuid.UUID{id})
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, PatientRisk{
		ID:           p.ID,
		Demographics: patient.NewRef(p, h.agg.now()),
		DiabetesRisk: assessments[id],
	})
}

type assessRequest struct {
	ForceReassess bool `json:"forceReassess"`
}

// AssessPatient assesses a single patient, recomputing when the stored
// assessment is missing, stale, or the caller forces it.
func (h *Handler) AssessPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}

	var req assessRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	assessment, err := h.orch.Assess(c.Request().Context(), id, req.ForceReassess)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, assessment)
}

// httpError maps the assessment error taxonomy onto HTTP statuses.
func httpError(err error) *echo.HTTPError {
	e := AsError(err)
	switch e.Code {
	case CodeInvalidInput:
		return echo.NewHTTPError(http.StatusUnprocessableEntity, e.Message)
	case CodeSignalUnavailable:
		return echo.NewHTTPError(http.StatusBadGateway, e.Message)
	case CodeStoreUnavailable:
		return echo.NewHTTPError(http.StatusServiceUnavailable, e.Message)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, e.Message)
	}
}

func page(rows []PatientRisk, params pagination.Params) []PatientRisk {
	if params.Offset >= len(rows) {
		return []PatientRisk{}
	}
	end := params.Offset + params.Limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[params.Offset:end]
}
