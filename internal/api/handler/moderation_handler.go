package handler

import (
	"Agora/internal/api/dto"
	"Agora/internal/pkg/response"
	"Agora/internal/service"

	"github.com/gin-gonic/gin"
)

type ModerationHandler struct {
	moderationSvc service.ModerationService
}

func NewModerationHandler(moderationSvc service.ModerationService) *ModerationHandler {
	return &ModerationHandler{moderationSvc: moderationSvc}
}

func (s *ModerationHandler) CreateKeyword(c *gin.Context) {
	var req dto.KeywordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	keyword, err := s.moderationSvc.CreateKeyword(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, keyword)
}

func (s *ModerationHandler) SetKeywordActive(c *gin.Context) {
	keywordID, err := paramID(c, "keyword_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.KeywordActiveReq
	if err = c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if err = s.moderationSvc.SetKeywordActive(c.Request.Context(), keywordID, req.Active); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *ModerationHandler) ListKeywords(c *gin.Context) {
	page, pageSize := getPagination(c)
	list, err := s.moderationSvc.ListKeywords(c.Request.Context(), page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}
