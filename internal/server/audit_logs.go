package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	auditdomain "github.com/stefanratchev/Veda-Legal-sub000/internal/audit/domain"
)

type listAuditLogsQuery struct {
	Action     string     `form:"action"`
	TargetType string     `form:"targetType"`
	TargetID   string     `form:"targetId"`
	StartAt    *time.Time `form:"startAt"`
	EndAt      *time.Time `form:"endAt"`
}

func (s *Server) ListAuditLogs(c *gin.Context) {
	var q listAuditLogsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.auditSvc.List(c.Request.Context(), auditdomain.ListFilter{
		Action:     q.Action,
		TargetType: q.TargetType,
		TargetID:   q.TargetID,
		StartAt:    q.StartAt,
		EndAt:      q.EndAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.AuditLogs})
}
