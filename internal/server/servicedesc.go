package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/stefanratchev/Veda-Legal-sub000/internal/authorization"
	"github.com/stefanratchev/Veda-Legal-sub000/internal/billing"
	sddomain "github.com/stefanratchev/Veda-Legal-sub000/internal/servicedesc/domain"
)

func (s *Server) CreateServiceDescription(c *gin.Context) {
	var req sddomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	doc, err := s.serviceDescSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": doc})
}

func (s *Server) GetServiceDescription(c *gin.Context) {
	view, err := s.serviceDescSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": view})
}

func (s *Server) ListServiceDescriptions(c *gin.Context) {
	var req sddomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.serviceDescSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.ServiceDescriptions})
}

func (s *Server) UpdateServiceDescriptionStatus(c *gin.Context) {
	var req sddomain.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	action := authorization.ActionFinalize
	if req.Status == sddomain.DocumentStatusDraft {
		action = authorization.ActionUnlock
	}
	actorID := c.GetString(contextActorIDKey)
	actorRole := c.GetString(contextActorRoleKey)
	if err := s.authzSvc.Authorize(c.Request.Context(), actorID, actorRole, authorization.ObjectServiceDescription, action); err != nil {
		AbortWithError(c, err)
		return
	}

	doc, err := s.serviceDescSvc.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": doc})
}

func (s *Server) UpdateServiceDescriptionDiscount(c *gin.Context) {
	var patch billing.DiscountPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	doc, err := s.serviceDescSvc.UpdateDiscount(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": doc})
}

func (s *Server) UpdateServiceDescriptionRetainer(c *gin.Context) {
	var patch sddomain.RetainerPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	doc, err := s.serviceDescSvc.UpdateRetainer(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": doc})
}

func (s *Server) DeleteServiceDescription(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	result, err := s.serviceDescSvc.Delete(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
