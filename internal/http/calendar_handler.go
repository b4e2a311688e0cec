package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/shift-scheduler/internal/application"
	"github.com/example/shift-scheduler/internal/calendar"
)

type monthGridService interface {
	MonthGrid(ctx context.Context, params application.MonthGridParams) (calendar.Grid, error)
	Today() calendar.Date
}

// CalendarHandler renders the month grid with per-day shift counts.
type CalendarHandler struct {
	service   monthGridService
	responder responder
	logger    *slog.Logger
}

func NewCalendarHandler(service monthGridService, logger *slog.Logger) *CalendarHandler {
	base := defaultLogger(logger)
	return &CalendarHandler{service: service, responder: newResponder(base), logger: base}
}

// Month answers GET /calendar?year=&month=&selected=. Year and month default
// to the current month.
func (h *CalendarHandler) Month(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	today := h.service.Today()
	year, month := today.Year, today.Month

	if value := strings.TrimSpace(query.Get("year")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidQuery)
			return
		}
		year = parsed
	}
	if value := strings.TrimSpace(query.Get("month")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidQuery)
			return
		}
		month = time.Month(parsed)
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := handlerLogger(r.Context(), h.logger, "CalendarHandler", "Month", "year", year, "month", int(month))

	grid, err := h.service.MonthGrid(r.Context(), application.MonthGridParams{
		Principal: principal,
		Year:      year,
		Month:     month,
		Selected:  strings.TrimSpace(query.Get("selected")),
	})
	if err != nil {
		logFailure(r.Context(), logger, "month grid failed", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toGridDTO(grid))
}

type dayCellDTO struct {
	Date           string `json:"date"`
	Weekday        int    `json:"weekday"`
	InCurrentMonth bool   `json:"in_current_month"`
	IsToday        bool   `json:"is_today"`
	IsSelected     bool   `json:"is_selected"`
	ShiftCount     int    `json:"shift_count"`
}

type gridDTO struct {
	Year      int            `json:"year"`
	Month     int            `json:"month"`
	WeekStart int            `json:"week_start"`
	Start     string         `json:"start"`
	End       string         `json:"end"`
	Weeks     [][]dayCellDTO `json:"weeks"`
}

func toGridDTO(grid calendar.Grid) gridDTO {
	dto := gridDTO{
		Year:      grid.Year,
		Month:     int(grid.Month),
		WeekStart: int(grid.WeekStart),
		Start:     grid.Start.String(),
		End:       grid.End.String(),
	}
	for _, week := range grid.Weeks() {
		row := make([]dayCellDTO, 0, len(week))
		for _, cell := range week {
			row = append(row, dayCellDTO{
				Date:           cell.Date.String(),
				Weekday:        int(cell.Date.Weekday()),
				InCurrentMonth: cell.InCurrentMonth,
				IsToday:        cell.IsToday,
				IsSelected:     cell.IsSelected,
				ShiftCount:     cell.ShiftCount,
			})
		}
		dto.Weeks = append(dto.Weeks, row)
	}
	return dto
}
