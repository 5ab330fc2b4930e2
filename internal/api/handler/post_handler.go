package handler

import (
	"Agora/internal/api/dto"
	"Agora/internal/pkg/response"
	"Agora/internal/service"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	postSvc service.PostService
}

func NewPostHandler(postSvc service.PostService) *PostHandler {
	return &PostHandler{postSvc: postSvc}
}

func (s *PostHandler) CreatePost(c *gin.Context) {
	var req dto.CreatePostReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	post, err := s.postSvc.CreatePost(c.Request.Context(), c.GetUint64("user_id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, post)
}

func (s *PostHandler) DeletePost(c *gin.Context) {
	postID, err := paramID(c, "post_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err = s.postSvc.DeletePost(c.Request.Context(), c.GetUint64("user_id"), postID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *PostHandler) GetPost(c *gin.Context) {
	postID, err := paramID(c, "post_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	post, err := s.postSvc.GetPost(c.Request.Context(), c.GetUint64("user_id"), postID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, post)
}

// ListUserPosts 某用户的帖子，按查看者关系过滤可见性
func (s *PostHandler) ListUserPosts(c *gin.Context) {
	authorID, err := paramID(c, "user_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	page, pageSize := getPagination(c)
	list, err := s.postSvc.ListUserPosts(c.Request.Context(), c.GetUint64("user_id"), authorID, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}

func (s *PostHandler) CreateComment(c *gin.Context) {
	postID, err := paramID(c, "post_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.CreateCommentReq
	if err = c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	req.PostID = postID
	comment, err := s.postSvc.CreateComment(c.Request.Context(), c.GetUint64("user_id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, comment)
}

func (s *PostHandler) DeleteComment(c *gin.Context) {
	commentID, err := paramID(c, "comment_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err = s.postSvc.DeleteComment(c.Request.Context(), c.GetUint64("user_id"), commentID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *PostHandler) ListComments(c *gin.Context) {
	postID, err := paramID(c, "post_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	page, pageSize := getPagination(c)
	list, err := s.postSvc.ListComments(c.Request.Context(), c.GetUint64("user_id"), postID, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}

func (s *PostHandler) ListReplies(c *gin.Context) {
	commentID, err := paramID(c, "comment_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	page, pageSize := getPagination(c)
	list, err := s.postSvc.ListReplies(c.Request.Context(), c.GetUint64("user_id"), commentID, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}
