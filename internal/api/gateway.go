package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/davnau/medialens/internal/api/files"
	"github.com/davnau/medialens/internal/api/infos"
	"github.com/davnau/medialens/pkg/logger"
)

var log = logger.Get("API")

type (
	RestConfig struct {
		HostAddr string `yaml:"host_address" env:"API_HOST_ADDR" env-default:"0.0.0.0:8080"`

		// EnableMediaInfo gates the media-info routes entirely. The
		// extraction pipeline itself carries no enable/disable state;
		// the toggle lives here at the transport boundary.
		EnableMediaInfo bool `yaml:"enable_media_info" env:"ENABLE_MEDIA_INFO" env-default:"true"`
	}

	controller interface {
		SetRoutes(*echo.Group)
	}

	// The RestGateway is a thin wrapper around the Echo HTTP router. Its
	// sole responsibility is to expose the media-info routes to whatever
	// transport fronts this service (bot, web UI); rendering and
	// auto-removal of the displayed result are that transport's concern.
	RestGateway struct {
		config         *RestConfig
		ec             *echo.Echo
		fileController controller
		infoController controller
	}
)

// NewRestGateway constructs the Echo router and populates it with the
// routes defined by the controllers.
func NewRestGateway(config *RestConfig, fileService files.Service, infoService infos.Service) *RestGateway {
	ec := echo.New()
	ec.OnAddRouteHandler = func(host string, route echo.Route, handler echo.HandlerFunc, middleware []echo.MiddlewareFunc) {
		log.Emit(logger.DEBUG, "Registered new route %s %s\n", route.Method, route.Path)
	}
	ec.HidePort = true
	ec.HideBanner = true

	gateway := &RestGateway{
		config:         config,
		ec:             ec,
		fileController: files.New(fileService),
		infoController: infos.New(infoService),
	}

	ec.Use(middleware.Recover())
	ec.Pre(middleware.AddTrailingSlash())

	gateway.fileController.SetRoutes(ec.Group("/api/medialens/v1/files"))

	// The info routes are feature-gated; file record management is not,
	// since the sharing platform registers records regardless.
	if config.EnableMediaInfo {
		gateway.infoController.SetRoutes(ec.Group("/api/medialens/v1/files"))
	} else {
		log.Emit(logger.STOP, "Media info feature is disabled by configuration; info routes not registered\n")
	}

	ec.GET("/api/medialens/v1/health/", func(ec echo.Context) error {
		return ec.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	return gateway
}

// Run starts the HTTP server and blocks until the provided context is
// cancelled, at which point the server is drained and shut down.
func (gateway *RestGateway) Run(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		log.Emit(logger.NEW, "Starting REST gateway on %s\n", gateway.config.HostAddr)
		if err := gateway.ec.Start(gateway.config.HostAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return gateway.ec.Shutdown(shutdownCtx)
	}
}
