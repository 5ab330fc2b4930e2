package api

import (
	"Agora/internal/api/middleware"
	"Agora/internal/pkg/logger"
	"Agora/internal/pkg/security"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRouter(group *HandlersGroup) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.AuditMiddleware())
	r.Use(middleware.CORSMiddleware())
	logger.SetupGin(r)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"code":    200,
				"message": "pong",
				"data":    nil,
			})
		})
	}

	community := apiGroup.Group("/community")

	userGroup := community.Group("/users")
	{
		publicGroup := userGroup.Group("")
		publicGroup.Use(middleware.AuthOptionalMiddleware())
		{
			publicGroup.GET("/:user_id/profile", group.SocialGraphHandler.GetProfile)
			publicGroup.GET("/:user_id/followers", group.SocialGraphHandler.GetFollowers)
			publicGroup.GET("/:user_id/following", group.SocialGraphHandler.GetFollowing)
			publicGroup.GET("/:user_id/posts", group.PostHandler.ListUserPosts)
		}

		authGroup := userGroup.Group("")
		authGroup.Use(middleware.AuthMiddleware())
		{
			authGroup.POST("/:user_id/follow", group.SocialGraphHandler.Follow)
			authGroup.DELETE("/:user_id/follow", group.SocialGraphHandler.Unfollow)
			authGroup.POST("/:user_id/block", group.SocialGraphHandler.Block)
			authGroup.DELETE("/:user_id/block", group.SocialGraphHandler.Unblock)
		}
	}

	community.GET("/blocks", middleware.AuthMiddleware(), group.SocialGraphHandler.GetBlocked)

	postGroup := community.Group("/posts")
	{
		publicGroup := postGroup.Group("")
		publicGroup.Use(middleware.AuthOptionalMiddleware())
		{
			publicGroup.GET("/:post_id", group.PostHandler.GetPost)
			publicGroup.GET("/:post_id/comments", group.PostHandler.ListComments)
			publicGroup.GET("/:post_id/likes", group.EngagementHandler.GetPostLikeState)
		}

		authGroup := postGroup.Group("")
		authGroup.Use(middleware.AuthMiddleware())
		{
			authGroup.POST("", group.PostHandler.CreatePost)
			authGroup.DELETE("/:post_id", group.PostHandler.DeletePost)
			authGroup.POST("/:post_id/comments", group.PostHandler.CreateComment)
			authGroup.POST("/:post_id/likes", group.EngagementHandler.LikePost)
			authGroup.POST("/:post_id/shares", group.EngagementHandler.SharePost)
		}
	}

	commentGroup := community.Group("/comments")
	{
		commentGroup.GET("/:comment_id/replies", middleware.AuthOptionalMiddleware(), group.PostHandler.ListReplies)

		authGroup := commentGroup.Group("")
		authGroup.Use(middleware.AuthMiddleware())
		{
			authGroup.DELETE("/:comment_id", group.PostHandler.DeleteComment)
			authGroup.POST("/:comment_id/likes", group.EngagementHandler.LikeComment)
		}
	}

	imGroup := community.Group("/im")
	{
		imGroup.GET("/ws", group.WsHandler.Connect)

		authGroup := imGroup.Group("")
		authGroup.Use(middleware.AuthMiddleware())
		{
			authGroup.POST("/peers/:user_id", group.ConversationHandler.OpenConversation)
			authGroup.GET("/conversations", group.ConversationHandler.GetConversationList)
			authGroup.GET("/conversations/:key/messages", group.ConversationHandler.GetChatHistory)
			authGroup.POST("/conversations/:key/read", group.ConversationHandler.MarkRead)
			authGroup.PUT("/conversations/:key/mute", group.ConversationHandler.SetMuted)
			authGroup.POST("/messages", group.ConversationHandler.SendMessage)
			authGroup.DELETE("/messages/:message_id", group.ConversationHandler.DeleteMessage)
			authGroup.GET("/unread", group.ConversationHandler.GetTotalUnread)
		}
	}

	notificationGroup := community.Group("/notifications")
	notificationGroup.Use(middleware.AuthMiddleware())
	{
		notificationGroup.GET("", group.NotificationHandler.GetNotificationList)
		notificationGroup.GET("/unread", group.NotificationHandler.GetUnreadCount)
		notificationGroup.POST("/read", group.NotificationHandler.MarkRead)
		notificationGroup.POST("/read/all", group.NotificationHandler.MarkAllRead)
	}

	reportGroup := community.Group("/reports")
	reportGroup.Use(middleware.AuthMiddleware())
	{
		reportGroup.POST("", group.ReportHandler.FileReport)

		// 需要登录 & 拥有审核角色
		reviewGroup := reportGroup.Group("")
		reviewGroup.Use(middleware.CheckRoles(security.RoleModerator, security.RoleAdmin))
		{
			reviewGroup.GET("", group.ReportHandler.ListReports)
			reviewGroup.GET("/:report_id", group.ReportHandler.GetReport)
			reviewGroup.POST("/:report_id/claim", group.ReportHandler.StartReview)
			reviewGroup.POST("/:report_id/review", group.ReportHandler.Review)
		}
	}

	keywordGroup := community.Group("/moderation/keywords")
	keywordGroup.Use(middleware.AuthMiddleware(), middleware.CheckRoles(security.RoleAdmin))
	{
		keywordGroup.GET("", group.ModerationHandler.ListKeywords)
		keywordGroup.POST("", group.ModerationHandler.CreateKeyword)
		keywordGroup.PUT("/:keyword_id/active", group.ModerationHandler.SetKeywordActive)
	}

	return r
}
