package handler

import (
	"Agora/internal/api/dto"
	"Agora/internal/pkg/response"
	"Agora/internal/service"

	"github.com/gin-gonic/gin"
)

type SocialGraphHandler struct {
	graphSvc service.SocialGraphService
}

func NewSocialGraphHandler(graphSvc service.SocialGraphService) *SocialGraphHandler {
	return &SocialGraphHandler{graphSvc: graphSvc}
}

func (s *SocialGraphHandler) Follow(c *gin.Context) {
	targetID, err := paramID(c, "user_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	res, err := s.graphSvc.Follow(c.Request.Context(), c.GetUint64("user_id"), targetID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *SocialGraphHandler) Unfollow(c *gin.Context) {
	targetID, err := paramID(c, "user_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	res, err := s.graphSvc.Unfollow(c.Request.Context(), c.GetUint64("user_id"), targetID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *SocialGraphHandler) Block(c *gin.Context) {
	targetID, err := paramID(c, "user_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.BlockReq
	if c.Request.ContentLength > 0 {
		if err = c.ShouldBindJSON(&req); err != nil {
			response.Error(c, service.ErrParamInvalid)
			return
		}
	}
	if err = s.graphSvc.Block(c.Request.Context(), c.GetUint64("user_id"), targetID, req.Reason); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *SocialGraphHandler) Unblock(c *gin.Context) {
	targetID, err := paramID(c, "user_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err = s.graphSvc.Unblock(c.Request.Context(), c.GetUint64("user_id"), targetID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// GetProfile 社区主页信息
func (s *SocialGraphHandler) GetProfile(c *gin.Context) {
	targetID, err := paramID(c, "user_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	profile, err := s.graphSvc.GetProfile(c.Request.Context(), c.GetUint64("user_id"), targetID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, profile)
}

func (s *SocialGraphHandler) GetFollowers(c *gin.Context) {
	targetID, err := paramID(c, "user_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	page, pageSize := getPagination(c)
	list, err := s.graphSvc.ListFollowers(c.Request.Context(), targetID, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}

func (s *SocialGraphHandler) GetFollowing(c *gin.Context) {
	targetID, err := paramID(c, "user_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	page, pageSize := getPagination(c)
	list, err := s.graphSvc.ListFollowing(c.Request.Context(), targetID, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}

// GetBlocked 只能查看自己的屏蔽列表
func (s *SocialGraphHandler) GetBlocked(c *gin.Context) {
	page, pageSize := getPagination(c)
	list, err := s.graphSvc.ListBlocked(c.Request.Context(), c.GetUint64("user_id"), page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}
