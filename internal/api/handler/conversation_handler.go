package handler

import (
	"Agora/internal/api/dto"
	"Agora/internal/pkg/response"
	"Agora/internal/service"

	"github.com/gin-gonic/gin"
)

type ConversationHandler struct {
	convSvc service.ConversationService
}

func NewConversationHandler(convSvc service.ConversationService) *ConversationHandler {
	return &ConversationHandler{convSvc: convSvc}
}

// OpenConversation 获取或创建与对方的私信会话
func (s *ConversationHandler) OpenConversation(c *gin.Context) {
	targetID, err := paramID(c, "user_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	conv, err := s.convSvc.GetOrCreateConversation(c.Request.Context(), c.GetUint64("user_id"), targetID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, conv)
}

func (s *ConversationHandler) SendMessage(c *gin.Context) {
	var req dto.SendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	msg, err := s.convSvc.SendMessage(c.Request.Context(), c.GetUint64("user_id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, msg)
}

func (s *ConversationHandler) GetChatHistory(c *gin.Context) {
	var req dto.HistoryReq
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	list, err := s.convSvc.GetChatHistory(c.Request.Context(), c.GetUint64("user_id"), c.Param("key"), req.LastSeq, req.PageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}

func (s *ConversationHandler) GetConversationList(c *gin.Context) {
	page, pageSize := getPagination(c)
	list, err := s.convSvc.GetConversationList(c.Request.Context(), c.GetUint64("user_id"), page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}

func (s *ConversationHandler) GetTotalUnread(c *gin.Context) {
	count, err := s.convSvc.GetTotalUnread(c.Request.Context(), c.GetUint64("user_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.UnreadDTO{UnreadCount: count})
}

func (s *ConversationHandler) MarkRead(c *gin.Context) {
	if err := s.convSvc.MarkRead(c.Request.Context(), c.Param("key"), c.GetUint64("user_id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *ConversationHandler) SetMuted(c *gin.Context) {
	var req dto.MuteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if err := s.convSvc.SetMuted(c.Request.Context(), c.GetUint64("user_id"), c.Param("key"), req.Muted); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// DeleteMessage 仅对自己隐藏该消息
func (s *ConversationHandler) DeleteMessage(c *gin.Context) {
	if err := s.convSvc.DeleteForUser(c.Request.Context(), c.Param("message_id"), c.GetUint64("user_id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
