package web

import (
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/fun-declaration-game/internal/auth"
)

//go:embed templates/*.html
var templateFS embed.FS

// AppName は画面に表示するアプリケーション名です。
const AppName = "Fun Declaration Game"

// Page は全テンプレートが受け取るビューモデルです。
type Page struct {
	AppName     string
	Title       string
	CurrentUser *auth.SessionUser
	PrevURL     string
	CSRFToken   string
	CSRFField   string
	Error       string
	Data        any
}

func loadTemplates() (*template.Template, error) {
	funcs := template.FuncMap{
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Local().Format("2006-01-02 15:04")
		},
	}
	return template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
}

func newPage(c *gin.Context, title string, data any) Page {
	locals := LocalsFrom(c)
	return Page{
		AppName:     AppName,
		Title:       title,
		CurrentUser: locals.CurrentUser,
		PrevURL:     locals.PrevURL,
		CSRFToken:   locals.CSRFToken,
		CSRFField:   auth.CSRFFormField(),
		Data:        data,
	}
}

func render(c *gin.Context, status int, name, title string, data any) {
	c.HTML(status, name, newPage(c, title, data))
}

func renderWithError(c *gin.Context, status int, name, title, message string, data any) {
	page := newPage(c, title, data)
	page.Error = message
	c.HTML(status, name, page)
}

func renderNotFound(c *gin.Context) {
	render(c, http.StatusNotFound, "404.html", "Not Found", nil)
}

func renderError(c *gin.Context, status int, message string) {
	renderWithError(c, status, "error.html", http.StatusText(status), message, nil)
}
