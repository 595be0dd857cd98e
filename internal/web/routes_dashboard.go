package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/fun-declaration-game/internal/appdb"
)

const dashboardRecentSeries = 5

type dashboardData struct {
	SeriesCount int
	Recent      []appdb.Series
}

func (h *handlers) mountDashboard(g *gin.RouterGroup) {
	g.GET("", h.dashboard)
}

func (h *handlers) dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	count, err := h.db.CountSeries(ctx)
	if err != nil {
		h.internalError(c, err)
		return
	}
	list, err := h.db.ListSeries(ctx)
	if err != nil {
		h.internalError(c, err)
		return
	}
	if len(list) > dashboardRecentSeries {
		list = list[:dashboardRecentSeries]
	}
	render(c, http.StatusOK, "dashboard.html", "Dashboard", dashboardData{SeriesCount: count, Recent: list})
}
