package api

import (
	"context"
	"net/http"
	"sync"

	"github.com/fabricahq/fabrica/pkg/logger"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

var log = logger.Get("API")

type (
	RestConfig struct {
		HostAddr string `yaml:"host_address" env:"API_HOST_ADDR" env-default:"0.0.0.0:8080"`
	}

	controller interface {
		SetRoutes(*echo.Group)
	}

	// The RestGateway is a thin wrapper around the Echo HTTP router. Its
	// sole responsibility is to expose a read-only view of the pipeline:
	// the insights being scraped, the script tasks and the pills generated
	// from them.
	RestGateway struct {
		config             *RestConfig
		ec                 *echo.Echo
		insightsController controller
		scriptsController  controller
		pillsController    controller
	}
)

// NewRestGateway constructs the Echo router and populates it with the
// routes defined by the various controllers.
func NewRestGateway(
	config *RestConfig,
	insightService InsightService,
	scriptService ScriptService,
	pillService PillService,
) *RestGateway {
	ec := echo.New()
	ec.OnAddRouteHandler = func(host string, route echo.Route, handler echo.HandlerFunc, middleware []echo.MiddlewareFunc) {
		log.Emit(logger.DEBUG, "Registered new route %s %s\n", route.Method, route.Path)
	}
	ec.HidePort = true
	ec.HideBanner = true

	gateway := &RestGateway{
		config:             config,
		ec:                 ec,
		insightsController: newInsightsController(insightService),
		scriptsController:  newScriptsController(scriptService),
		pillsController:    newPillsController(pillService),
	}

	ec.Use(middleware.Logger())
	ec.Use(middleware.Recover())
	ec.Pre(middleware.AddTrailingSlash())

	ec.GET("/api/fabrica/v1/ping/", func(ec echo.Context) error {
		return ec.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	insights := ec.Group("/api/fabrica/v1/insights")
	gateway.insightsController.SetRoutes(insights)

	scripts := ec.Group("/api/fabrica/v1/scripts")
	gateway.scriptsController.SetRoutes(scripts)

	pills := ec.Group("/api/fabrica/v1/pills")
	gateway.pillsController.SetRoutes(pills)

	return gateway
}

func (gateway *RestGateway) Run(parentCtx context.Context) error {
	ctx, ctxCancel := context.WithCancelCause(parentCtx)
	wg := &sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := gateway.ec.Start(gateway.config.HostAddr); err != nil {
			ctxCancel(err)
		}
	}()

	go func(ec *echo.Echo) {
		<-ctx.Done()
		ec.Close()
	}(gateway.ec)

	wg.Wait()

	// Return cancellation cause if any, otherwise nil as parent context
	// cancellation is not an error case we should report.
	if cause := context.Cause(ctx); cause != ctx.Err() {
		return cause
	}

	return nil
}
