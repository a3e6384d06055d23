package api

import (
	"net/http"
	"strconv"

	"storefront/internal/models"
	"storefront/internal/service"
	"storefront/internal/store"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Handler exposes the order, catalog and auth services over HTTP.
type Handler struct {
	orders  *service.OrderService
	catalog *service.CatalogService
	auth    *service.AuthService
	store   store.Store
}

// NewHandler creates the HTTP handler.
func NewHandler(orders *service.OrderService, catalog *service.CatalogService, auth *service.AuthService, st store.Store) *Handler {
	return &Handler{orders: orders, catalog: catalog, auth: auth, store: st}
}

// RegisterRoutes mounts all routes on the echo instance.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	e.GET("/ready", h.Ready)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := e.Group("/api/v1")

	orders := v1.Group("/orders")
	orders.POST("", h.CreateOrder)
	orders.GET("", h.ListOrders)
	orders.GET("/:id", h.GetOrder)
	orders.GET("/tracking/:trackingNumber", h.TrackOrder)
	orders.PUT("/:id/status", h.UpdateOrderStatus)
	orders.POST("/:id/confirm-payment", h.ConfirmPayment)
	orders.GET("/:id/events", h.ListOrderEvents)

	products := v1.Group("/products")
	products.GET("", h.ListProducts)
	products.GET("/:id", h.GetProduct)
	products.POST("/:id/stock", h.AdjustStock)

	auth := v1.Group("/auth")
	auth.POST("/register", h.Register)
	auth.POST("/login", h.Login)
	auth.POST("/verify-token", h.VerifyToken)
	auth.POST("/refresh-token", h.RefreshToken)

	users := v1.Group("/users", RequireAuth(h.auth))
	users.GET("/profile", h.GetProfile)
	users.PUT("/profile", h.UpdateProfile)
	users.PUT("/change-password", h.ChangePassword)
}

// Health reports liveness and which store adapter is active.
func (h *Handler) Health(c echo.Context) error {
	return ok(c, http.StatusOK, map[string]string{
		"status": "ok",
		"store":  h.store.Name(),
	})
}

// Ready reports readiness to take traffic.
func (h *Handler) Ready(c echo.Context) error {
	return ok(c, http.StatusOK, map[string]string{
		"status": "ready",
		"store":  h.store.Name(),
	})
}

func (h *Handler) CreateOrder(c echo.Context) error {
	var req service.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "malformed request body")
	}

	summary, err := h.orders.CreateOrder(c.Request().Context(), &req)
	if err != nil {
		return fail(c, err)
	}
	return okMessage(c, http.StatusCreated, summary, "Order created successfully")
}

func (h *Handler) ListOrders(c echo.Context) error {
	status := c.QueryParam("status")
	limit := intQuery(c, "limit", 0)
	offset := intQuery(c, "offset", 0)

	entries, total, err := h.orders.ListOrders(c.Request().Context(), status, limit, offset)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, map[string]interface{}{
		"orders": entries,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *Handler) GetOrder(c echo.Context) error {
	order, items, err := h.orders.GetOrder(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, map[string]interface{}{
		"order": order,
		"items": items,
	})
}

func (h *Handler) TrackOrder(c echo.Context) error {
	view, err := h.orders.GetOrderByTracking(c.Request().Context(), c.Param("trackingNumber"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, view)
}

func (h *Handler) UpdateOrderStatus(c echo.Context) error {
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "malformed request body")
	}

	order, err := h.orders.UpdateStatus(c.Request().Context(), c.Param("id"), body.Status)
	if err != nil {
		return fail(c, err)
	}
	return okMessage(c, http.StatusOK, order, "Order status updated")
}

func (h *Handler) ConfirmPayment(c echo.Context) error {
	order, err := h.orders.ConfirmPayment(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return okMessage(c, http.StatusOK, order, "Payment confirmed")
}

func (h *Handler) ListOrderEvents(c echo.Context) error {
	events, err := h.orders.ListOrderEvents(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, map[string]interface{}{"events": events})
}

func (h *Handler) ListProducts(c echo.Context) error {
	filter := store.ProductFilter{
		Category: c.QueryParam("category"),
		AgeGroup: c.QueryParam("ageGroup"),
		InStock:  c.QueryParam("inStock") == "true",
		Limit:    intQuery(c, "limit", 0),
		Offset:   intQuery(c, "offset", 0),
	}
	if v := c.QueryParam("minPrice"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return badRequest(c, "minPrice must be a number")
		}
		filter.MinPrice = &d
	}
	if v := c.QueryParam("maxPrice"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return badRequest(c, "maxPrice must be a number")
		}
		filter.MaxPrice = &d
	}

	products, total, err := h.catalog.ListProducts(c.Request().Context(), filter)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, map[string]interface{}{
		"products": products,
		"total":    total,
		"limit":    filter.Limit,
		"offset":   filter.Offset,
	})
}

func (h *Handler) GetProduct(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return badRequest(c, "product id must be an integer")
	}

	product, err := h.catalog.GetProduct(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, product)
}

func (h *Handler) AdjustStock(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return badRequest(c, "product id must be an integer")
	}

	var body struct {
		Delta int `json:"delta"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "malformed request body")
	}
	if body.Delta == 0 {
		return badRequest(c, "delta must be non-zero")
	}

	product, err := h.catalog.AdjustStock(c.Request().Context(), id, body.Delta)
	if err != nil {
		return fail(c, err)
	}
	return okMessage(c, http.StatusOK, product, "Stock adjusted")
}

func (h *Handler) Register(c echo.Context) error {
	var req service.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "malformed request body")
	}

	result, err := h.auth.Register(c.Request().Context(), &req)
	if err != nil {
		return fail(c, err)
	}
	return okMessage(c, http.StatusCreated, result, "Account created successfully")
}

func (h *Handler) Login(c echo.Context) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "malformed request body")
	}

	result, err := h.auth.Login(c.Request().Context(), body.Email, body.Password)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, result)
}

// VerifyToken accepts the token either as a bearer header or in the body.
func (h *Handler) VerifyToken(c echo.Context) error {
	token := bearerToken(c)
	if token == "" {
		var body struct {
			Token string `json:"token"`
		}
		if err := c.Bind(&body); err == nil {
			token = body.Token
		}
	}
	if token == "" {
		return badRequest(c, "token is required")
	}

	user, err := h.auth.VerifyToken(token)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, map[string]interface{}{"valid": true, "user": user})
}

func (h *Handler) RefreshToken(c echo.Context) error {
	token := bearerToken(c)
	if token == "" {
		var body struct {
			Token string `json:"token"`
		}
		if err := c.Bind(&body); err == nil {
			token = body.Token
		}
	}
	if token == "" {
		return badRequest(c, "token is required")
	}

	result, err := h.auth.RefreshToken(token)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, result)
}

func (h *Handler) GetProfile(c echo.Context) error {
	return ok(c, http.StatusOK, currentUser(c))
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	var body struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Phone     string `json:"phone"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "malformed request body")
	}

	user, err := h.auth.UpdateProfile(currentUser(c).ID, body.FirstName, body.LastName, body.Phone)
	if err != nil {
		return fail(c, err)
	}
	return okMessage(c, http.StatusOK, user, "Profile updated")
}

func (h *Handler) ChangePassword(c echo.Context) error {
	var body struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "malformed request body")
	}

	if err := h.auth.ChangePassword(currentUser(c).ID, body.CurrentPassword, body.NewPassword); err != nil {
		return fail(c, err)
	}
	return okMessage(c, http.StatusOK, nil, "Password changed successfully")
}

func currentUser(c echo.Context) *models.User {
	user, _ := c.Get(userContextKey).(*models.User)
	return user
}

func intQuery(c echo.Context, name string, fallback int) int {
	v := c.QueryParam(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
