package server

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/raysh454/pageshot/docs/swagger" // registers the generated spec
)

//go:generate swag init -g internal/server/swagger.go -o docs/swagger

// @title Pageshot API
// @version 1.0
// @description Captures full-page PNG screenshots of public URLs with a headless browser.
// @contact.name Pageshot Maintainers
// @contact.url https://github.com/raysh454/pageshot
// @BasePath /

func (s *Server) swaggerHandler() http.HandlerFunc {
	return httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json"))
}
