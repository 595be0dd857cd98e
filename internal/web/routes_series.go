package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/fun-declaration-game/internal/appdb"
)

func (h *handlers) mountSeries(g *gin.RouterGroup) {
	g.GET("", h.listSeries)
	g.GET("/:id", h.showSeries)
}

func (h *handlers) listSeries(c *gin.Context) {
	list, err := h.db.ListSeries(c.Request.Context())
	if err != nil {
		h.internalError(c, err)
		return
	}
	render(c, http.StatusOK, "series_list.html", "Series", list)
}

func (h *handlers) showSeries(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		renderNotFound(c)
		return
	}
	series, err := h.db.GetSeries(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, appdb.ErrNotFound) {
			renderNotFound(c)
			return
		}
		h.internalError(c, err)
		return
	}
	render(c, http.StatusOK, "series_show.html", series.Title, series)
}
