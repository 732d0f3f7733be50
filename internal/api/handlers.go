package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"globalprice/internal/service"
	"globalprice/internal/version"
)

type favoriteRequest struct {
	ID string `json:"id" validate:"required"`
}

type alertRequest struct {
	Email       string  `json:"email" validate:"required,email"`
	ProductID   string  `json:"product_id" validate:"required"`
	TargetPrice float64 `json:"target_price" validate:"required,gt=0"`
}

type alertCreated struct {
	Success bool   `json:"success"`
	AlertID string `json:"alertId"`
}

type successResponse struct {
	Success bool `json:"success"`
}

type checkResponse struct {
	Ran bool `json:"ran"`
}

type ratesResponse struct {
	Pivot     string                     `json:"pivot"`
	Source    string                     `json:"source"`
	UpdatedAt time.Time                  `json:"updatedAt"`
	Rates     map[string]decimal.Decimal `json:"rates"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (s *Server) routes(e *echo.Echo) {
	e.GET("/healthz", s.health)

	g := e.Group("/api")
	g.GET("/countries", s.listCountries)
	g.GET("/search", s.searchProducts)
	g.GET("/products/:id", s.getProduct)
	g.GET("/deals/:countryCode", s.listDeals)
	g.GET("/favorites", s.listFavorites)
	g.POST("/favorites", s.addFavorite)
	g.DELETE("/favorites/:id", s.removeFavorite)
	g.GET("/alerts", s.listAlerts)
	g.POST("/alerts", s.createAlert)
	g.DELETE("/alerts/:id", s.deleteAlert)
	g.POST("/alerts/check", s.checkAlerts)
	g.GET("/rates", s.rates)
}

func (s *Server) origin(c echo.Context) string {
	origin := strings.ToUpper(strings.TrimSpace(c.QueryParam("origin")))
	if origin == "" {
		return s.opts.HomeCountry
	}
	return origin
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{Status: "ok", Version: version.Version})
}

func (s *Server) listCountries(c echo.Context) error {
	return c.JSON(http.StatusOK, s.svc.Search().Countries())
}

func (s *Server) searchProducts(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("q"))
	results, err := s.svc.Search().Search(c.Request().Context(), query, s.origin(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, results)
}

func (s *Server) getProduct(c echo.Context) error {
	result, err := s.svc.Search().Get(c.Request().Context(), c.Param("id"), s.origin(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) listDeals(c echo.Context) error {
	code := strings.ToUpper(c.Param("countryCode"))
	return c.JSON(http.StatusOK, s.svc.Search().Deals(code))
}

func (s *Server) listFavorites(c echo.Context) error {
	products, err := s.svc.Favorites(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, products)
}

func (s *Server) addFavorite(c echo.Context) error {
	var req favoriteRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := s.svc.AddFavorite(c.Request().Context(), req.ID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, successResponse{Success: true})
}

func (s *Server) removeFavorite(c echo.Context) error {
	if err := s.svc.RemoveFavorite(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, successResponse{Success: true})
}

func (s *Server) listAlerts(c echo.Context) error {
	alerts, err := s.svc.ListAlerts(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, alerts)
}

func (s *Server) createAlert(c echo.Context) error {
	var req alertRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	alert, err := s.svc.CreateAlert(c.Request().Context(), service.AlertRequest{
		ProductID:   req.ProductID,
		Contact:     req.Email,
		TargetPrice: decimal.NewFromFloat(req.TargetPrice),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, alertCreated{Success: true, AlertID: alert.ID})
}

func (s *Server) deleteAlert(c echo.Context) error {
	if err := s.svc.DeleteAlert(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, successResponse{Success: true})
}

func (s *Server) checkAlerts(c echo.Context) error {
	ran, err := s.svc.CheckAlerts(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, checkResponse{Ran: ran})
}

func (s *Server) rates(c echo.Context) error {
	table := s.svc.Search().Rates()
	return c.JSON(http.StatusOK, ratesResponse{
		Pivot:     table.Pivot(),
		Source:    table.Source(),
		UpdatedAt: table.UpdatedAt(),
		Rates:     table.Values(),
	})
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	return nil
}
