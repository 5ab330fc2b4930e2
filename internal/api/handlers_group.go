package api

import "Agora/internal/api/handler"

// HandlersGroup 封装了所有已初始化的 Handler 实例
type HandlersGroup struct {
	SocialGraphHandler  *handler.SocialGraphHandler
	PostHandler         *handler.PostHandler
	EngagementHandler   *handler.EngagementHandler
	ConversationHandler *handler.ConversationHandler
	ReportHandler       *handler.ReportHandler
	ModerationHandler   *handler.ModerationHandler
	NotificationHandler *handler.NotificationHandler
	WsHandler           *handler.WsHandler
}
