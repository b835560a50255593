package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/venue-ticket-service/internal/application"
	"github.com/sanosuguru/venue-ticket-service/internal/domain/seathold"
)

type HoldHandler struct {
	service   HoldServiceInterface
	holdLimit time.Duration
}

func NewHoldHandler(s HoldServiceInterface, holdLimit time.Duration) *HoldHandler {
	return &HoldHandler{service: s, holdLimit: holdLimit}
}

type CreateHoldRequest struct {
	NumSeats      int    `json:"num_seats" validate:"required,min=1" example:"2"`
	MinLevel      *int   `json:"min_level,omitempty" validate:"omitempty,min=1" example:"1"`
	MaxLevel      *int   `json:"max_level,omitempty" validate:"omitempty,min=1" example:"3"`
	CustomerEmail string `json:"customer_email" validate:"required,email" example:"tanaka@example.com"`
}

type ReserveRequest struct {
	CustomerEmail string `json:"customer_email" validate:"required,email" example:"tanaka@example.com"`
}

type HoldResponse struct {
	ID               int64          `json:"id" example:"1"`
	CustomerEmail    string         `json:"customer_email" example:"tanaka@example.com"`
	Status           string         `json:"status" example:"held"`
	Seats            []SeatResponse `json:"seats"`
	CreatedAt        time.Time      `json:"created_at"`
	ExpiresAt        *time.Time     `json:"expires_at,omitempty"`
	ConfirmationCode string         `json:"confirmation_code,omitempty"`
}

type ReserveResponse struct {
	ConfirmationCode string `json:"confirmation_code" example:"hQzWkRmTxa"`
}

func toHoldResponse(h *seathold.SeatHold, holdLimit time.Duration) HoldResponse {
	resp := HoldResponse{
		ID:               h.ID,
		CustomerEmail:    h.Customer,
		Status:           "held",
		Seats:            make([]SeatResponse, len(h.Seats)),
		CreatedAt:        h.CreatedAt,
		ConfirmationCode: h.ConfirmationCode,
	}
	for i, s := range h.Seats {
		resp.Seats[i] = toSeatResponse(s)
	}
	if h.IsReservation() {
		resp.Status = "reserved"
	} else {
		expiresAt := h.ExpiresAt(holdLimit)
		resp.ExpiresAt = &expiresAt
	}
	return resp
}

// Create godoc
// @Summary 座席を仮押さえ
// @Description 条件に合う最良の空席を指定数だけ仮押さえします
// @Tags holds
// @Accept json
// @Produce json
// @Param request body CreateHoldRequest true "仮押さえ条件"
// @Success 201 {object} HoldResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse "空席が不足"
// @Router /holds [post]
func (h *HoldHandler) Create(c echo.Context) error {
	var req CreateHoldRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	hold, err := h.service.FindAndHold(c.Request().Context(), application.FindAndHoldInput{
		NumSeats: req.NumSeats,
		MinLevel: req.MinLevel,
		MaxLevel: req.MaxLevel,
		Customer: req.CustomerEmail,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toHoldResponse(hold, h.holdLimit))
}

// GetByID godoc
// @Summary 仮押さえを取得
// @Tags holds
// @Produce json
// @Param id path int true "仮押さえID"
// @Success 200 {object} HoldResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /holds/{id} [get]
func (h *HoldHandler) GetByID(c echo.Context) error {
	id, err := holdID(c)
	if err != nil {
		return err
	}
	hold, err := h.service.GetSeatHold(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toHoldResponse(hold, h.holdLimit))
}

// Reserve godoc
// @Summary 予約を確定
// @Description 仮押さえを予約確定し、確認コードを返します
// @Tags holds
// @Accept json
// @Produce json
// @Param id path int true "仮押さえID"
// @Param request body ReserveRequest true "顧客情報"
// @Success 200 {object} ReserveResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse "仮押さえが存在しないか期限切れ"
// @Router /holds/{id}/reserve [post]
func (h *HoldHandler) Reserve(c echo.Context) error {
	id, err := holdID(c)
	if err != nil {
		return err
	}
	var req ReserveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	code, err := h.service.Reserve(c.Request().Context(), id, req.CustomerEmail)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ReserveResponse{ConfirmationCode: code})
}

func holdID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "仮押さえIDは整数である必要があります")
	}
	return id, nil
}
