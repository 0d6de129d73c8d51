package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	sddomain "github.com/stefanratchev/Veda-Legal-sub000/internal/servicedesc/domain"
)

func (s *Server) AddTopic(c *gin.Context) {
	var req sddomain.TopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	topic, err := s.serviceDescSvc.AddTopic(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": topic})
}

func (s *Server) UpdateTopic(c *gin.Context) {
	var req sddomain.UpdateTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	topic, err := s.serviceDescSvc.UpdateTopic(c.Request.Context(), c.Param("id"), c.Param("topicId"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": topic})
}

func (s *Server) DeleteTopic(c *gin.Context) {
	result, err := s.serviceDescSvc.DeleteTopic(c.Request.Context(), c.Param("id"), c.Param("topicId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) ReorderTopics(c *gin.Context) {
	var req sddomain.ReorderTopicsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	topics, err := s.serviceDescSvc.ReorderTopics(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": topics})
}
