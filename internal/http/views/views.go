// Package views holds the HTML templates rendered by the request handlers.
package views

import (
	"embed"
	"net/http"

	"github.com/gofiber/template/html/v2"
)

//go:embed *.html layouts/*.html
var files embed.FS

// Layout wraps every page.
const Layout = "layouts/main"

// New returns a Fiber views engine over the embedded templates.
func New() *html.Engine {
	return html.NewFileSystem(http.FS(files), ".html")
}
