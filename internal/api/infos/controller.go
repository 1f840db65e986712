package infos

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/davnau/medialens/internal/file"
	"github.com/davnau/medialens/internal/mediainfo"
)

type (
	// Service is the extraction pipeline as this controller needs it.
	Service interface {
		Describe(ctx context.Context, fileKey string) (*mediainfo.Report, error)
		Dismiss(fileKey string)
	}

	InfoController struct {
		service Service
	}
)

func New(service Service) *InfoController {
	return &InfoController{service: service}
}

func (controller *InfoController) SetRoutes(group *echo.Group) {
	group.GET("/:key/info/", controller.getInfo)
	group.DELETE("/:key/info/", controller.dismissInfo)
}

// getInfo returns the media-info report for a file key. A missing file
// is the only user-visible failure; extraction trouble is absorbed in to
// a heuristic report by the pipeline before it reaches this layer.
func (controller *InfoController) getInfo(ec echo.Context) error {
	report, err := controller.service.Describe(ec.Request().Context(), ec.Param("key"))
	if err != nil {
		if errors.Is(err, file.ErrFileNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "file not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "could not extract media information")
	}

	return ec.JSON(http.StatusOK, NewDto(report))
}

// dismissInfo drops the cached result for a file key in response to the
// user closing the displayed report.
func (controller *InfoController) dismissInfo(ec echo.Context) error {
	controller.service.Dismiss(ec.Param("key"))
	return ec.NoContent(http.StatusNoContent)
}
