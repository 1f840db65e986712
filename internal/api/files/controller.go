package files

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/davnau/medialens/internal/file"
)

type (
	// Service is the file record management surface this controller
	// fronts.
	Service interface {
		Register(record *file.Record) error
		Lookup(fileKey string) (*file.Record, error)
	}

	FileController struct {
		service  Service
		validate *validator.Validate
	}
)

func New(service Service) *FileController {
	return &FileController{service: service, validate: validator.New()}
}

func (controller *FileController) SetRoutes(group *echo.Group) {
	group.POST("/", controller.register)
	group.GET("/:key/", controller.get)
}

// register upserts a file record on behalf of the sharing platform.
// Re-registering an existing key (a re-upload) replaces the stored
// details.
func (controller *FileController) register(ec echo.Context) error {
	dto := RegisterDto{}
	if err := ec.Bind(&dto); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "request body is malformed")
	}

	if err := controller.validate.Struct(dto); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	record := dto.ToRecord()
	if err := controller.service.Register(record); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to save file record")
	}

	return ec.JSON(http.StatusCreated, NewRecordDto(record))
}

func (controller *FileController) get(ec echo.Context) error {
	record, err := controller.service.Lookup(ec.Param("key"))
	if err != nil {
		if errors.Is(err, file.ErrFileNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "file not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to find file record")
	}

	return ec.JSON(http.StatusOK, NewRecordDto(record))
}
