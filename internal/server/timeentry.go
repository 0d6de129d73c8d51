package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	timeentrydomain "github.com/stefanratchev/Veda-Legal-sub000/internal/timeentry/domain"
)

func (s *Server) CreateTimeEntry(c *gin.Context) {
	var req timeentrydomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	entry, err := s.timeEntrySvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": entry})
}

func (s *Server) GetTimeEntry(c *gin.Context) {
	entry, err := s.timeEntrySvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entry})
}

func (s *Server) ListTimeEntries(c *gin.Context) {
	var req timeentrydomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.timeEntrySvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.TimeEntries})
}
