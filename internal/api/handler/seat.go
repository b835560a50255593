package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/venue-ticket-service/internal/domain/seat"
	"github.com/sanosuguru/venue-ticket-service/internal/domain/venue"
)

type SeatHandler struct {
	service SeatServiceInterface
	venue   *venue.Configuration
}

func NewSeatHandler(s SeatServiceInterface, v *venue.Configuration) *SeatHandler {
	return &SeatHandler{service: s, venue: v}
}

type SeatResponse struct {
	Key    string `json:"key" example:"L1-R1-S1"`
	Level  int    `json:"level" example:"1"`
	Row    int    `json:"row" example:"1"`
	Number int    `json:"number" example:"1"`
	Score  int    `json:"score" example:"1"`
	Status string `json:"status" example:"available"`
}

type CountResponse struct {
	Count int `json:"count" example:"100"`
}

type LevelResponse struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Rows        int    `json:"rows"`
	SeatsPerRow int    `json:"seats_per_row"`
	Price       int    `json:"price"`
	TotalSeats  int    `json:"total_seats"`
}

type VenueResponse struct {
	HoldLimitSeconds int             `json:"hold_limit_seconds"`
	TotalSeats       int             `json:"total_seats"`
	Levels           []LevelResponse `json:"levels"`
}

func toSeatResponse(s seat.Seat) SeatResponse {
	return SeatResponse{
		Key: s.Key.String(), Level: s.LevelID, Row: s.Row, Number: s.Number,
		Score: s.Score, Status: string(s.Status),
	}
}

// List godoc
// @Summary 座席一覧を取得
// @Description レベル・レベル範囲・状態で絞り込んだ座席一覧を返します
// @Tags seats
// @Produce json
// @Param level query int false "レベルID"
// @Param min_level query int false "最小レベルID（max_levelと同時に指定）"
// @Param max_level query int false "最大レベルID（min_levelと同時に指定）"
// @Param status query string false "available, held, reserved"
// @Success 200 {array} SeatResponse
// @Failure 400 {object} api.ErrorResponse
// @Router /seats [get]
func (h *SeatHandler) List(c echo.Context) error {
	q, err := parseSeatQuery(c)
	if err != nil {
		return err
	}
	seats, err := h.service.ListSeats(c.Request().Context(), q)
	if err != nil {
		return err
	}
	resp := make([]SeatResponse, len(seats))
	for i, s := range seats {
		resp[i] = toSeatResponse(s)
	}
	return c.JSON(http.StatusOK, resp)
}

// CountAvailable godoc
// @Summary 空席数を取得
// @Description 会場全体またはレベル単位の空席数を返します
// @Tags seats
// @Produce json
// @Param level query int false "レベルID"
// @Success 200 {object} CountResponse
// @Failure 400 {object} api.ErrorResponse
// @Router /seats/available [get]
func (h *SeatHandler) CountAvailable(c echo.Context) error {
	level, err := optionalInt(c, "level")
	if err != nil {
		return err
	}
	n, err := h.service.CountAvailable(c.Request().Context(), level)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, CountResponse{Count: n})
}

// Venue godoc
// @Summary 会場設定を取得
// @Tags seats
// @Produce json
// @Success 200 {object} VenueResponse
// @Router /venue [get]
func (h *SeatHandler) Venue(c echo.Context) error {
	levels := h.venue.Levels()
	resp := VenueResponse{
		HoldLimitSeconds: h.venue.HoldLimitSeconds(),
		TotalSeats:       h.venue.TotalSeats(),
		Levels:           make([]LevelResponse, len(levels)),
	}
	for i, l := range levels {
		resp.Levels[i] = LevelResponse{
			ID: l.ID, Name: l.Name, Rows: l.Rows, SeatsPerRow: l.SeatsPerRow,
			Price: l.Price, TotalSeats: l.TotalSeats(),
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func parseSeatQuery(c echo.Context) (seat.Query, error) {
	var q seat.Query

	level, err := optionalInt(c, "level")
	if err != nil {
		return q, err
	}
	if level != nil {
		q.LevelID = *level
	}

	minLevel, err := optionalInt(c, "min_level")
	if err != nil {
		return q, err
	}
	maxLevel, err := optionalInt(c, "max_level")
	if err != nil {
		return q, err
	}
	switch {
	case minLevel != nil && maxLevel != nil:
		q.Range = &seat.LevelRange{Min: *minLevel, Max: *maxLevel}
	case minLevel != nil || maxLevel != nil:
		return q, echo.NewHTTPError(http.StatusBadRequest, "min_level と max_level は同時に指定してください")
	}

	if s := c.QueryParam("status"); s != "" {
		status, err := seat.ParseStatus(s)
		if err != nil {
			return q, err
		}
		q.Status = status
	}
	return q, nil
}

func optionalInt(c echo.Context, name string) (*int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, name+" は整数である必要があります")
	}
	return &v, nil
}
