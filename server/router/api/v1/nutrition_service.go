package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/healthlog/plugin/nutrition"
)

// LookupNutrition resolves the calories of a food name.
// A food that cannot be found is a 200 with found=false.
func (s *APIV1Service) LookupNutrition(c echo.Context) error {
	if s.Nutrition == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "calorie lookup is not configured")
	}

	start := time.Now()
	result, err := s.Nutrition.Lookup(c.Request().Context(), c.QueryParam("food"))
	switch {
	case errors.Is(err, nutrition.ErrEmptyQuery):
		return echo.NewHTTPError(http.StatusBadRequest, "food is required")
	case err != nil:
		s.Metrics.RecordNutritionLookup("error", time.Since(start))
		return echo.NewHTTPError(http.StatusBadGateway, "calorie lookup failed").SetInternal(err)
	case result.Found:
		s.Metrics.RecordNutritionLookup("found", time.Since(start))
	default:
		s.Metrics.RecordNutritionLookup("not_found", time.Since(start))
	}
	return c.JSON(http.StatusOK, result)
}
