package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/fun-declaration-game/internal/appdb"
)

type adminData struct {
	Users  []appdb.User
	Series []appdb.Series
}

func (h *handlers) mountAdmin(g *gin.RouterGroup) {
	g.GET("", h.adminIndex)
	// 閲覧はログインユーザー全員、作成は管理者のみ
	g.POST("/users", h.auth.RequireAdmin(), h.adminCreateUser)
	g.POST("/series", h.auth.RequireAdmin(), h.adminCreateSeries)
}

func (h *handlers) adminIndex(c *gin.Context) {
	h.renderAdmin(c, http.StatusOK, "")
}

func (h *handlers) renderAdmin(c *gin.Context, status int, message string) {
	ctx := c.Request.Context()
	users, err := h.db.ListUsers(ctx)
	if err != nil {
		h.internalError(c, err)
		return
	}
	series, err := h.db.ListSeries(ctx)
	if err != nil {
		h.internalError(c, err)
		return
	}
	renderWithError(c, status, "admin.html", "Admin", message, adminData{Users: users, Series: series})
}

func (h *handlers) adminCreateUser(c *gin.Context) {
	isAdmin := strings.EqualFold(c.PostForm("is_admin"), "true")
	_, err := h.db.CreateUser(c.Request.Context(), c.PostForm("username"), c.PostForm("password"), isAdmin)
	switch {
	case err == nil:
		c.Redirect(http.StatusFound, "/admin")
	case errors.Is(err, appdb.ErrUserExists):
		h.renderAdmin(c, http.StatusConflict, "That username is already taken.")
	case errors.Is(err, appdb.ErrInvalidInput):
		h.renderAdmin(c, http.StatusBadRequest, validationMessage(err))
	default:
		h.internalError(c, err)
	}
}

func (h *handlers) adminCreateSeries(c *gin.Context) {
	var createdBy int64
	if user := LocalsFrom(c).CurrentUser; user != nil {
		createdBy = user.ID
	}
	_, err := h.db.CreateSeries(c.Request.Context(), c.PostForm("title"), c.PostForm("description"), createdBy)
	switch {
	case err == nil:
		c.Redirect(http.StatusFound, "/admin")
	case errors.Is(err, appdb.ErrInvalidInput):
		h.renderAdmin(c, http.StatusBadRequest, validationMessage(err))
	default:
		h.internalError(c, err)
	}
}

// validationMessage は "invalid input: xxx" から利用者向けの部分を取り出します。
func validationMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ": "); i >= 0 {
		msg = msg[i+2:]
	}
	if msg == "" {
		return "Invalid input."
	}
	return strings.ToUpper(msg[:1]) + msg[1:] + "."
}
