package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"beaconattend/internal/directory"
)

func (h *Handler) registerDirectory(g *gin.RouterGroup, kind directory.Kind) {
	g.POST("", h.createIdentity(kind))
	g.GET("", h.listIdentities(kind))
	g.GET("/:id", h.getIdentity(kind))
	g.PUT("/:id", h.updateIdentity(kind))
	g.DELETE("/:id", h.deleteIdentity(kind))
}

func (h *Handler) createIdentity(kind directory.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in directory.Input
		if err := c.ShouldBindJSON(&in); err != nil {
			h.fail(c, badJSON(err))
			return
		}
		ident, err := h.directory.Create(c.Request.Context(), kind, in)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, ident)
	}
}

func (h *Handler) listIdentities(kind directory.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := h.directory.List(c.Request.Context(), kind)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func (h *Handler) getIdentity(kind directory.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, err := h.directory.Get(c.Request.Context(), kind, c.Param("id"))
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, ident)
	}
}

func (h *Handler) updateIdentity(kind directory.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in directory.Input
		if err := c.ShouldBindJSON(&in); err != nil {
			h.fail(c, badJSON(err))
			return
		}
		ident, err := h.directory.Update(c.Request.Context(), kind, c.Param("id"), in)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, ident)
	}
}

func (h *Handler) deleteIdentity(kind directory.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.directory.Delete(c.Request.Context(), kind, c.Param("id")); err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": string(kind) + " deleted"})
	}
}
