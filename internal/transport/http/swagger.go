package http

import (
	"net/http"
	"os"
	"sync"

	"github.com/ghodss/yaml"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/njprem/accountd/internal/util"
)

// RegisterSwagger serves the OpenAPI document at specPath as JSON together
// with the Swagger UI under /swagger. The document is converted once.
func RegisterSwagger(e *echo.Echo, specPath string) {
	load := sync.OnceValues(func() ([]byte, error) {
		data, err := os.ReadFile(specPath)
		if err != nil {
			return nil, err
		}
		return yaml.YAMLToJSON(data)
	})

	e.GET("/swagger/doc.json", func(c echo.Context) error {
		spec, err := load()
		if err != nil {
			c.Logger().Errorf("load swagger spec: %v", err)
			return c.JSON(http.StatusInternalServerError, util.Error("unable to load swagger spec"))
		}
		return c.Blob(http.StatusOK, echo.MIMEApplicationJSONCharsetUTF8, spec)
	})
	e.GET("/swagger/*", echoSwagger.WrapHandler)
}
