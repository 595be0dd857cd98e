package web

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/fun-declaration-game/internal/auth"
)

func (h *handlers) mountAuth(g *gin.RouterGroup) {
	g.GET("/login", h.loginPage)
	g.POST("/login", h.login)
	g.POST("/logout", h.auth.VerifyCSRF(), h.logout)
}

func (h *handlers) loginPage(c *gin.Context) {
	if LocalsFrom(c).CurrentUser != nil {
		c.Redirect(http.StatusFound, "/dashboard")
		return
	}
	render(c, http.StatusOK, "login.html", "Log in", nil)
}

// login はセッション未生成の状態で呼ばれるため CSRF 検証は行いません。
func (h *handlers) login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")
	if username == "" || password == "" {
		renderWithError(c, http.StatusBadRequest, "login.html", "Log in", "Enter your username and password.", nil)
		return
	}

	if _, err := h.auth.SignIn(c, username, password); err != nil {
		var loginErr *auth.LoginError
		if !errors.As(err, &loginErr) {
			h.internalError(c, err)
			return
		}
		switch loginErr.Code {
		case auth.CodeTooManyAttempts:
			c.Header("Retry-After", strconv.FormatInt(int64(math.Ceil(loginErr.RetryAfter.Seconds())), 10))
			renderWithError(c, http.StatusTooManyRequests, "login.html", "Log in",
				"Too many failed attempts. Please try again later.", nil)
		default:
			message := "Invalid username or password."
			if loginErr.RemainingAttempts > 0 {
				message = fmt.Sprintf("Invalid username or password. %d attempts remaining.", loginErr.RemainingAttempts)
			}
			renderWithError(c, http.StatusUnauthorized, "login.html", "Log in", message, nil)
		}
		return
	}

	c.Redirect(http.StatusFound, "/dashboard")
}

func (h *handlers) logout(c *gin.Context) {
	if err := h.auth.SignOut(c); err != nil {
		h.internalError(c, err)
		return
	}
	c.Redirect(http.StatusFound, auth.LoginPath)
}
