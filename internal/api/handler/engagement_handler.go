package handler

import (
	"Agora/internal/api/dto"
	"Agora/internal/pkg/response"
	"Agora/internal/repository"
	"Agora/internal/service"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

type EngagementHandler struct {
	engagementSvc service.EngagementService
}

func NewEngagementHandler(engagementSvc service.EngagementService) *EngagementHandler {
	return &EngagementHandler{engagementSvc: engagementSvc}
}

// LikePost 点赞/取消点赞帖子
func (s *EngagementHandler) LikePost(c *gin.Context) {
	postID, err := paramID(c, "post_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.LikeReq
	if err = c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	userID := c.GetUint64("user_id")
	var state *dto.LikeStateDTO
	if req.Action == 1 {
		state, err = s.engagementSvc.LikePost(c.Request.Context(), userID, postID)
	} else {
		state, err = s.engagementSvc.UnlikePost(c.Request.Context(), userID, postID)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, state)
}

// LikeComment 点赞/取消点赞评论
func (s *EngagementHandler) LikeComment(c *gin.Context) {
	commentID, err := paramID(c, "comment_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.LikeReq
	if err = c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	userID := c.GetUint64("user_id")
	var state *dto.LikeStateDTO
	if req.Action == 1 {
		state, err = s.engagementSvc.LikeComment(c.Request.Context(), userID, commentID)
	} else {
		state, err = s.engagementSvc.UnlikeComment(c.Request.Context(), userID, commentID)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, state)
}

func (s *EngagementHandler) SharePost(c *gin.Context) {
	postID, err := paramID(c, "post_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	res, err := s.engagementSvc.SharePost(c.Request.Context(), c.GetUint64("user_id"), postID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// GetPostLikeState 帖子点赞数与当前用户是否已赞
func (s *EngagementHandler) GetPostLikeState(c *gin.Context) {
	postID, err := paramID(c, "post_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	userID := c.GetUint64("user_id")

	state := &dto.LikeStateDTO{}
	g, gCtx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		var err error
		state.Count, err = s.engagementSvc.CurrentCount(gCtx, repository.TargetPost, postID)
		return err
	})
	g.Go(func() error {
		var err error
		state.Liked, err = s.engagementSvc.IsLiked(gCtx, repository.TargetPost, postID, userID)
		return err
	})
	if err = g.Wait(); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, state)
}
