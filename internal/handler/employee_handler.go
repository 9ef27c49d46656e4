package handler

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/locvowork/employee_directory/internal/domain"
	"github.com/locvowork/employee_directory/internal/logger"
	"github.com/locvowork/employee_directory/pkg/xlsxexport"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// EmployeeService is what the handlers need from the service layer.
type EmployeeService interface {
	domain.EmployeeRepository
	Summary(ctx context.Context) (*domain.Summary, error)
}

type EmployeeHandler struct {
	svc      EmployeeService
	exporter *xlsxexport.Exporter
	now      func() time.Time
}

// NewEmployeeHandler creates the employee routes. A nil exporter uses the default columns.
func NewEmployeeHandler(svc EmployeeService, exporter *xlsxexport.Exporter) *EmployeeHandler {
	if exporter == nil {
		// the default config is always valid
		exporter, _ = xlsxexport.NewExporter(xlsxexport.DefaultEmployeeConfig())
	}
	return &EmployeeHandler{svc: svc, exporter: exporter, now: time.Now}
}

// Register mounts the routes on g. Fixed paths come before /:id.
func (h *EmployeeHandler) Register(g *echo.Group) {
	g.GET("", h.ListHandler)
	g.POST("", h.CreateHandler)
	g.GET("/stats/summary", h.SummaryHandler)
	g.GET("/export", h.ExportHandler)
	g.GET("/:id", h.GetHandler)
	g.PUT("/:id", h.UpdateHandler)
	g.DELETE("/:id", h.DeleteHandler)
}

func (h *EmployeeHandler) ListHandler(c echo.Context) error {
	page := positiveInt(c.QueryParam("page"), DefaultPage)
	limit := positiveInt(c.QueryParam("limit"), DefaultLimit)
	if limit > MaxLimit {
		limit = MaxLimit
	}
	// keep (page-1)*limit representable
	if maxPage := math.MaxInt / limit; page > maxPage {
		page = maxPage
	}

	q := listQuery(c)
	q.Skip = (page - 1) * limit
	q.Limit = limit

	res, err := h.svc.Find(c.Request().Context(), q)
	if err != nil {
		return ResponseDomainError(c, err)
	}

	employees := res.Employees
	if employees == nil {
		employees = []domain.Employee{}
	}

	return c.JSON(http.StatusOK, ListEmployeesResponse{
		Employees: employees,
		Pagination: Pagination{
			CurrentPage:    page,
			TotalPages:     int(math.Ceil(float64(res.Total) / float64(limit))),
			TotalEmployees: res.Total,
			HasNext:        int64(q.Skip+len(employees)) < res.Total,
			HasPrev:        page > 1,
		},
	})
}

func (h *EmployeeHandler) GetHandler(c echo.Context) error {
	emp, err := h.svc.FindByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return ResponseDomainError(c, err)
	}
	return c.JSON(http.StatusOK, emp)
}

func (h *EmployeeHandler) CreateHandler(c echo.Context) error {
	var req domain.EmployeeInput
	if err := c.Bind(&req); err != nil {
		return ResponseError(c, http.StatusBadRequest, MsgInvalidBody)
	}

	emp, err := h.svc.Create(c.Request().Context(), req)
	if err != nil {
		return ResponseDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, emp)
}

func (h *EmployeeHandler) UpdateHandler(c echo.Context) error {
	var req domain.EmployeeInput
	if err := c.Bind(&req); err != nil {
		return ResponseError(c, http.StatusBadRequest, MsgInvalidBody)
	}

	emp, err := h.svc.Update(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return ResponseDomainError(c, err)
	}
	return c.JSON(http.StatusOK, emp)
}

func (h *EmployeeHandler) DeleteHandler(c echo.Context) error {
	if _, err := h.svc.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return ResponseDomainError(c, err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: MsgEmployeeDeleted})
}

func (h *EmployeeHandler) SummaryHandler(c echo.Context) error {
	summary, err := h.svc.Summary(c.Request().Context())
	if err != nil {
		return ResponseDomainError(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}

// ExportHandler streams every matching employee as an xlsx workbook.
func (h *EmployeeHandler) ExportHandler(c echo.Context) error {
	ctx := c.Request().Context()

	res, err := h.svc.Find(ctx, listQuery(c))
	if err != nil {
		return ResponseDomainError(c, err)
	}

	excelBytes, err := h.exporter.ToBytes(res.Employees)
	if err != nil {
		logger.ErrorLog(ctx, "Failed to generate Excel file: %v", err)
		return ResponseError(c, http.StatusInternalServerError, MsgInternal)
	}
	logger.InfoLog(ctx, "Exported %d employees", len(res.Employees))

	c.Response().Header().Set("Content-Type", xlsxexport.ContentType)
	c.Response().Header().Set("Content-Disposition", `attachment; filename="`+xlsxexport.FileName("employees", h.now())+`"`)
	c.Response().Header().Set("Content-Length", strconv.Itoa(len(excelBytes)))
	c.Response().WriteHeader(http.StatusOK)

	_, err = c.Response().Write(excelBytes)
	return err
}

// listQuery reads search and sort parameters; pagination is left to the caller.
func listQuery(c echo.Context) domain.ListQuery {
	dir := domain.SortAscending
	if strings.EqualFold(c.QueryParam("sortOrder"), "desc") {
		dir = domain.SortDescending
	}
	return domain.ListQuery{
		Search:        strings.TrimSpace(c.QueryParam("search")),
		SortField:     c.QueryParam("sortBy"),
		SortDirection: dir,
	}
}

func positiveInt(raw string, fallback int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
