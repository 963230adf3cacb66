package api

import (
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/labstack/echo/v4"
)

const apiPrefix = "/api/"

var echoPathParams = strings.NewReplacer("{", ":", "}", "")

func outsideAPI(c echo.Context) bool {
	return !strings.HasPrefix(c.Request().URL.Path, apiPrefix)
}

// securedRoutes matches operations whose effective security requirement in
// the OpenAPI document is non-empty. Operations without their own
// requirement inherit the document-level one.
func securedRoutes(swagger *openapi3.T) func(echo.Context) bool {
	secured := make(map[string]struct{})
	for path, item := range swagger.Paths.Map() {
		for method, op := range item.Operations() {
			reqs := swagger.Security
			if op.Security != nil {
				reqs = *op.Security
			}
			if len(reqs) > 0 {
				secured[method+" "+echoPathParams.Replace(path)] = struct{}{}
			}
		}
	}

	return func(c echo.Context) bool {
		_, ok := secured[c.Request().Method+" "+c.Path()]
		return ok
	}
}
