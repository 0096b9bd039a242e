package handler

import (
	"errors"
	"net/http"
	"strings"

	"coffeeshop/internal/config"
	"coffeeshop/internal/middleware"
	"coffeeshop/internal/usecase"

	"github.com/labstack/echo/v4"
)

type OrderHandler struct {
	orders *usecase.OrderUsecase
	carts  *usecase.CartUsecase
}

func NewOrderHandler(orders *usecase.OrderUsecase, carts *usecase.CartUsecase) *OrderHandler {
	return &OrderHandler{orders: orders, carts: carts}
}

type CheckoutRequest struct {
	CustomerInfo usecase.CustomerInfo `json:"customer_info"`
}

type DirectOrderRequest struct {
	CustomerInfo usecase.CustomerInfo `json:"customer_info"`
	Lines        []usecase.OrderLine  `json:"lines"`
}

// 注文確定のレスポンス。失敗時もsuccess:falseで同じ形を返す
type OrderResult struct {
	Success    bool     `json:"success"`
	GuestID    string   `json:"guest_id,omitempty"`
	OrderIDs   []string `json:"order_ids,omitempty"`
	Error      string   `json:"error,omitempty"`
	Fields     []string `json:"fields,omitempty"`
	MissingIDs []string `json:"missing_ids,omitempty"`
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/orders")

	g.POST("", h.checkout, middleware.CartSession(cfg))
	g.POST("/direct", h.direct)
	g.GET("/confirmation", h.confirmation)
	g.GET("/guest/:guestId", h.byGuest)
}

// セッションのカートから注文
func (h *OrderHandler) checkout(c echo.Context) error {
	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, OrderResult{Error: "invalid body"})
	}

	out, err := h.carts.Checkout(c.Request().Context(), middleware.CartSessionID(c), req.CustomerInfo)
	return writeOrderResult(c, out, err)
}

// カートを通さずに明細を直接渡す
func (h *OrderHandler) direct(c echo.Context) error {
	var req DirectOrderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, OrderResult{Error: "invalid body"})
	}

	out, err := h.orders.Submit(c.Request().Context(), usecase.SubmitInput{
		Customer: req.CustomerInfo,
		Lines:    req.Lines,
	})
	return writeOrderResult(c, out, err)
}

// ?ids=a,b,c
func (h *OrderHandler) confirmation(c echo.Context) error {
	ids := strings.Split(c.QueryParam("ids"), ",")

	out, err := h.orders.GetConfirmation(c.Request().Context(), ids)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) byGuest(c echo.Context) error {
	out, err := h.orders.GetByGuestID(c.Request().Context(), c.Param("guestId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func writeOrderResult(c echo.Context, out usecase.SubmitOutput, err error) error {
	if err == nil {
		return c.JSON(http.StatusCreated, OrderResult{
			Success:  true,
			GuestID:  out.GuestID,
			OrderIDs: out.OrderIDs,
		})
	}

	if ve, ok := usecase.AsValidationError(err); ok {
		return c.JSON(http.StatusBadRequest, OrderResult{Error: "missing required fields", Fields: ve.Fields})
	}
	if pe, ok := usecase.AsProductsNotFoundError(err); ok {
		return c.JSON(http.StatusNotFound, OrderResult{Error: "products not found", MissingIDs: pe.IDs})
	}
	if errors.Is(err, usecase.ErrEmptyCart) {
		return c.JSON(http.StatusBadRequest, OrderResult{Error: usecase.ErrEmptyCart.Error()})
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		return c.JSON(he.Status, OrderResult{Error: he.Message})
	}

	//原因はusecase側でログ済み
	return c.JSON(http.StatusInternalServerError, OrderResult{Error: usecase.ErrSubmissionFailed.Error()})
}
