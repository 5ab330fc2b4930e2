package wire

import (
	"Agora/internal/api"
	"Agora/internal/api/config"
	"Agora/internal/api/handler"
	"Agora/internal/job"
	"Agora/internal/pkg/cron"
	"Agora/internal/pkg/event"
	"Agora/internal/pkg/identity"
	"Agora/internal/pkg/kafka"
	"Agora/internal/pkg/mongo"
	"Agora/internal/repository"
	"Agora/internal/service"
	log "log/slog"
	"time"

	"github.com/gin-gonic/gin"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router        *gin.Engine
	DB            *gorm.DB
	CronMgr       *cron.Manager
	KafkaManager  *kafka.ConsumerManager
	EventProducer *kafka.EventProducer
	Conversation  service.ConversationService
}

// Close 释放后台 worker 与生产者
func (a *ApplicationContainer) Close() {
	a.Conversation.Close()
	if a.EventProducer != nil {
		if err := a.EventProducer.Close(); err != nil {
			log.Error("close kafka producer failed", "err", err)
		}
	}
}

func BuildApplication(db *gorm.DB, mongoDB *mongodrv.Database, cfg *config.Config) (*ApplicationContainer, error) {
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepo(db)
	engagementRepo := repository.NewEngagementRepo(db)
	followRepo := repository.NewUserFollowRepo(db)
	blockRepo := repository.NewUserBlockRepo(db)
	profileRepo := repository.NewCommunityProfileRepo(db)
	convRepo := repository.NewConversationRepo(db)
	reportRepo := repository.NewContentReportRepo(db)
	keywordRepo := repository.NewBannedKeywordRepo(db)
	messageRepo := mongo.NewMessageRepo(mongoDB)
	notificationRepo := mongo.NewNotificationRepo(mongoDB)

	resolver := identity.NewResolver(cfg.Identity)
	retry := service.NewRetryPolicy(cfg.Community)

	notificationService := service.NewNotificationService(notificationRepo, convRepo, followRepo, blockRepo, retry)

	// 配置了 Broker 时事件经 Kafka 投递，否则进程内直接派发
	var publisher event.Publisher
	var producer *kafka.EventProducer
	var kafkaMgr *kafka.ConsumerManager
	if len(cfg.Kafka.Brokers) > 0 {
		var err error
		producer, err = kafka.NewEventProducer(cfg)
		if err != nil {
			return nil, err
		}
		kafkaMgr, err = kafka.NewConsumerManager(cfg, notificationService)
		if err != nil {
			_ = producer.Close()
			return nil, err
		}
		publisher = producer
	} else {
		log.Warn("kafka brokers not configured, dispatch events inline")
		publisher = event.NewInlinePublisher(notificationService)
	}

	moderationService := service.NewModerationService(keywordRepo, retry, time.Duration(cfg.Community.RuleCacheTTL)*time.Second)
	graphService := service.NewSocialGraphService(followRepo, blockRepo, profileRepo, convRepo, resolver, publisher, retry)
	postService := service.NewPostService(postRepo, commentRepo, engagementRepo, followRepo, blockRepo, profileRepo, moderationService, resolver, publisher, retry)
	engagementService := service.NewEngagementService(engagementRepo, postRepo, commentRepo, followRepo, blockRepo, profileRepo, resolver, publisher, retry)
	conversationService := service.NewConversationService(convRepo, messageRepo, followRepo, blockRepo, profileRepo, moderationService, resolver, publisher, retry)
	reportService := service.NewReportService(reportRepo, postRepo, commentRepo, messageRepo, profileRepo, resolver, retry, cfg.Community.ReportReviewThreshold)

	handlers := &api.HandlersGroup{
		SocialGraphHandler:  handler.NewSocialGraphHandler(graphService),
		PostHandler:         handler.NewPostHandler(postService),
		EngagementHandler:   handler.NewEngagementHandler(engagementService),
		ConversationHandler: handler.NewConversationHandler(conversationService),
		ReportHandler:       handler.NewReportHandler(reportService),
		ModerationHandler:   handler.NewModerationHandler(moderationService),
		NotificationHandler: handler.NewNotificationHandler(notificationService),
		WsHandler:           handler.NewWsHandler(),
	}

	router := api.SetupRouter(handlers)

	reconcileJob := job.NewCounterReconcileJob(engagementRepo, profileRepo)
	cronMgr := cron.NewCronManager(reconcileJob, cfg.Community.ReconcileSpec)

	return &ApplicationContainer{
		Router:        router,
		DB:            db,
		CronMgr:       cronMgr,
		KafkaManager:  kafkaMgr,
		EventProducer: producer,
		Conversation:  conversationService,
	}, nil
}
