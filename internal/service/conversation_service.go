package service

import (
	"Agora/internal/api/dto"
	"Agora/internal/model"
	"Agora/internal/pkg/consts"
	"Agora/internal/pkg/event"
	"Agora/internal/pkg/identity"
	"Agora/internal/pkg/moderation"
	"Agora/internal/pkg/mongo"
	"Agora/internal/pkg/redis"
	"Agora/internal/pkg/util"
	"Agora/internal/repository"
	"context"
	"errors"
	log "log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

const (
	calibrationWorkers  = 5
	calibrationQueue    = 2048
	calibrationAttempts = 3 // 每轮尝试次数，失败后重新入队
	previewLength       = 100
)

// ConversationService 单聊会话与私信
type ConversationService interface {
	GetOrCreateConversation(ctx context.Context, userID, targetUserID uint64) (*dto.ConversationDTO, error)
	SendMessage(ctx context.Context, senderID uint64, req *dto.SendMessageReq) (*dto.MessageDTO, error)
	MarkRead(ctx context.Context, peerKey string, readerID uint64) error
	DeleteForUser(ctx context.Context, messageID string, userID uint64) error
	GetChatHistory(ctx context.Context, userID uint64, peerKey string, lastSeq uint64, pageSize int) ([]*dto.MessageDTO, error)
	GetConversationList(ctx context.Context, userID uint64, page, pageSize int) ([]*dto.ConversationDTO, error)
	GetTotalUnread(ctx context.Context, userID uint64) (int64, error)
	SetMuted(ctx context.Context, userID uint64, peerKey string, muted bool) error
	Close()
}

type conversationServiceImpl struct {
	convRepo    repository.ConversationRepo
	messageRepo mongo.MessageRepo
	profileRepo repository.CommunityProfileRepo
	moderation  ModerationService
	profiles    *profileLoader
	gate        *contentGate
	publisher   event.Publisher
	retry       RetryPolicy
	retryChan   chan *pendingDelivery
	wg          sync.WaitGroup
	stopChan    chan struct{}
	closeOnce   sync.Once
}

// NewConversationService 初始化服务并启动异步校准工作池
func NewConversationService(
	convRepo repository.ConversationRepo,
	messageRepo mongo.MessageRepo,
	followRepo repository.UserFollowRepo,
	blockRepo repository.UserBlockRepo,
	profileRepo repository.CommunityProfileRepo,
	moderationSvc ModerationService,
	resolver identity.Resolver,
	publisher event.Publisher,
	retry RetryPolicy,
) ConversationService {
	s := &conversationServiceImpl{
		convRepo:    convRepo,
		messageRepo: messageRepo,
		profileRepo: profileRepo,
		moderation:  moderationSvc,
		profiles:    &profileLoader{profileRepo: profileRepo, resolver: resolver, retry: retry},
		gate:        &contentGate{followRepo: followRepo, blockRepo: blockRepo, profileRepo: profileRepo, retry: retry},
		publisher:   publisher,
		retry:       retry,
		retryChan:   make(chan *pendingDelivery, calibrationQueue),
		stopChan:    make(chan struct{}),
	}

	s.wg.Add(calibrationWorkers)
	for i := 0; i < calibrationWorkers; i++ {
		go s.calibrationWorker()
	}
	return s
}

// GetOrCreateConversation 同一对用户只有一个会话，与发起方无关
func (s *conversationServiceImpl) GetOrCreateConversation(ctx context.Context, userID, targetUserID uint64) (*dto.ConversationDTO, error) {
	if userID == targetUserID {
		return nil, ErrMessageSelf
	}
	conv, err := s.getOrCreate(ctx, userID, targetUserID)
	if err != nil {
		return nil, err
	}
	member, err := s.getMember(ctx, conv.ID, userID)
	if err != nil {
		return nil, err
	}
	peer, err := s.profiles.ensure(ctx, targetUserID)
	if err != nil {
		return nil, err
	}
	return s.toConversationDTO(conv, member, targetUserID, peer), nil
}

func (s *conversationServiceImpl) getOrCreate(ctx context.Context, a, b uint64) (*model.Conversation, error) {
	peerKey := util.PeerKey(a, b)
	conv, err := s.findConversation(ctx, peerKey)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, ErrConversationNotFound) {
		return nil, err
	}

	blocked, err := s.gate.blocked(ctx, a, b)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, ErrUserBlocked
	}

	members := make([]*model.ConversationMember, 0, 2)
	for _, uid := range []uint64{a, b} {
		p, err := s.profiles.ensure(ctx, uid)
		if err != nil {
			return nil, err
		}
		members = append(members, &model.ConversationMember{UserID: uid, Nickname: p.Nickname, AvatarURL: p.AvatarURL})
	}

	newConv := &model.Conversation{
		PeerKey:       peerKey,
		LastMessageAt: time.Now(),
	}
	err = s.retry.Once(ctx, "create conversation", func(ctx context.Context) error {
		return s.convRepo.CreateConversation(ctx, newConv, members)
	})
	if err != nil {
		// 并发创建时唯一索引冲突，对方已建好，重新读取
		if existing, findErr := s.findConversation(ctx, peerKey); findErr == nil {
			return existing, nil
		}
		return nil, err
	}
	log.InfoContext(ctx, "conversation created", "conversation_id", newConv.ID, "peer_key", peerKey)
	return newConv, nil
}

func (s *conversationServiceImpl) findConversation(ctx context.Context, peerKey string) (*model.Conversation, error) {
	var conv *model.Conversation
	err := s.retry.Do(ctx, "get conversation", func(ctx context.Context) error {
		var err error
		conv, err = s.convRepo.GetConversationByPeerKey(ctx, peerKey)
		return err
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrConversationNotFound
	}
	return conv, err
}

func (s *conversationServiceImpl) getMember(ctx context.Context, convID, userID uint64) (*model.ConversationMember, error) {
	var member *model.ConversationMember
	err := s.retry.Do(ctx, "get member", func(ctx context.Context) error {
		var err error
		member, err = s.convRepo.GetMember(ctx, convID, userID)
		return err
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, UnauthorizedError
	}
	return member, err
}

// memberConversation 解析会话标识并校验调用者是参与方之一
func (s *conversationServiceImpl) memberConversation(ctx context.Context, peerKey string, userID uint64) (*model.Conversation, uint64, error) {
	a, b, err := util.ParsePeerKey(peerKey)
	if err != nil {
		return nil, 0, ErrParamInvalid
	}
	var peerID uint64
	switch userID {
	case a:
		peerID = b
	case b:
		peerID = a
	default:
		return nil, 0, UnauthorizedError
	}
	conv, err := s.findConversation(ctx, peerKey)
	if err != nil {
		return nil, 0, err
	}
	return conv, peerID, nil
}

// SendMessage 发送私信：屏蔽检查 -> 文本审核 -> MySQL 定序 -> MongoDB 落库 -> 推送
func (s *conversationServiceImpl) SendMessage(ctx context.Context, senderID uint64, req *dto.SendMessageReq) (*dto.MessageDTO, error) {
	if err := util.ValidateDTO(req); err != nil {
		return nil, invalidParam(err)
	}
	receiverID := req.TargetUserID
	if receiverID == senderID {
		return nil, ErrMessageSelf
	}
	content := strings.TrimSpace(req.Content)
	if req.MsgType == mongo.MsgTypeText && content == "" {
		return nil, ErrEmptyContent
	}
	if req.MsgType != mongo.MsgTypeText && len(req.Payload) == 0 {
		return nil, ErrEmptyContent
	}
	sender, err := s.profiles.active(ctx, senderID)
	if err != nil {
		return nil, err
	}

	blocked, err := s.gate.blocked(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, ErrUserBlocked
	}

	verdict := moderation.Verdict{Action: moderation.ActionAllow}
	if req.MsgType == mongo.MsgTypeText {
		if verdict, err = s.moderation.Check(ctx, content); err != nil {
			return nil, err
		}
	}
	flags, err := applyVerdict(ctx, verdict)
	if err != nil {
		return nil, err
	}

	conv, err := s.getOrCreate(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}

	// MySQL 原子定序，静默消息只占序号；事务内再次确认没有屏蔽
	params := &repository.AppendParams{
		ConversationID: conv.ID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Preview:        messagePreview(req.MsgType, content),
		MsgType:        int8(req.MsgType),
		VisibleToPeer:  !flags.Shadowed,
	}
	var seq uint64
	err = s.retry.Once(ctx, "append message", func(ctx context.Context) error {
		var err error
		seq, err = s.convRepo.AppendMessage(ctx, params)
		return err
	})
	switch {
	case errors.Is(err, repository.ErrRelationBlocked):
		return nil, ErrUserBlocked
	case errors.Is(err, repository.ErrTargetGone):
		return nil, ErrConversationNotFound
	case err != nil:
		return nil, err
	}

	msg := &mongo.Message{
		ID:              mongo.MessageID(conv.PeerKey, seq),
		ConversationID:  conv.ID,
		ConversationKey: conv.PeerKey,
		SenderID:        senderID,
		ReceiverID:      receiverID,
		MsgType:         req.MsgType,
		Content:         content,
		Seq:             seq,
		IsFlagged:       flags.Flagged,
		IsShadowed:      flags.Shadowed,
		CreatedAt:       time.Now(),
	}
	for _, p := range req.Payload {
		msg.Payload = append(msg.Payload, mongo.Payload{
			MimeType: p.MimeType,
			MediaURL: p.URL,
			Width:    p.Width,
			Height:   p.Height,
			Duration: p.Duration,
		})
	}

	evt := event.New(event.MessageSent, senderID, sender.Nickname)
	evt.TargetUserID = receiverID
	evt.ConversationID = conv.ID
	evt.MessageID = msg.ID
	evt.Snippet = messagePreview(req.MsgType, util.Snippet(content, snippetLength))
	evt.Verdict = verdict.Action
	pending := &pendingDelivery{msg: msg, params: params, evt: evt}

	// 主键由会话与序号决定，重复插入视为成功，可以安全重试
	err = s.retry.Do(ctx, "save message", func(ctx context.Context) error {
		return s.messageRepo.SaveMessage(ctx, msg)
	})
	if err != nil {
		if ctx.Err() != nil {
			// 定序已提交而调用方已离开，交给校准协程补写后再投递
			s.enqueue(pending)
			return nil, ctx.Err()
		}
		log.ErrorContext(ctx, "save message failed", "message_id", msg.ID, "err", err)
		s.revertAppend(ctx, params)
		return nil, err
	}

	s.deliver(ctx, pending)
	res := s.toMessageDTO(msg)
	res.Moderation = moderationLabel(flags.Flagged, flags.Shadowed)
	return res, nil
}

// pendingDelivery 已定序的消息及其落库后的投递内容
type pendingDelivery struct {
	msg    *mongo.Message
	params *repository.AppendParams
	evt    *event.Event
}

// deliver 消息已落库后推送给接收者并发布事件，静默消息不推送
func (s *conversationServiceImpl) deliver(ctx context.Context, p *pendingDelivery) {
	if !p.msg.IsShadowed {
		if err := s.publishToUser(ctx, p.msg.ReceiverID, s.toMessageDTO(p.msg)); err != nil {
			log.WarnContext(ctx, "publish message failed", "message_id", p.msg.ID, "err", err)
		}
	}
	publishEvent(ctx, s.publisher, p.evt)
}

// revertAppend 正文未落库时回退接收方未读
func (s *conversationServiceImpl) revertAppend(ctx context.Context, params *repository.AppendParams) {
	err := s.retry.Do(context.WithoutCancel(ctx), "revert append", func(ctx context.Context) error {
		return s.convRepo.RevertAppend(ctx, params)
	})
	if err != nil {
		log.ErrorContext(ctx, "revert unread failed", "conversation_id", params.ConversationID, "receiver_id", params.ReceiverID, "err", err)
	}
}

// MarkRead 只清零自己的未读并给收到的消息打上已读时间
func (s *conversationServiceImpl) MarkRead(ctx context.Context, peerKey string, readerID uint64) error {
	conv, peerID, err := s.memberConversation(ctx, peerKey, readerID)
	if err != nil {
		return err
	}
	var readSeq uint64
	err = s.retry.Do(ctx, "mark conversation read", func(ctx context.Context) error {
		var err error
		readSeq, err = s.convRepo.MarkRead(ctx, conv.ID, readerID)
		return err
	})
	if errors.Is(err, repository.ErrTargetGone) {
		return UnauthorizedError
	}
	if err != nil {
		return err
	}

	readAt := time.Now()
	err = s.retry.Do(ctx, "mark messages read", func(ctx context.Context) error {
		_, err := s.messageRepo.MarkRead(ctx, conv.ID, readerID, readAt)
		return err
	})
	if err != nil {
		return err
	}

	go func() {
		if err := s.publishReadReceipt(conv.ID, readerID, peerID, readSeq); err != nil {
			log.Error("Failed to publish read receipt", "err", err)
		}
	}()
	return nil
}

// DeleteForUser 只对调用者一侧隐藏
func (s *conversationServiceImpl) DeleteForUser(ctx context.Context, messageID string, userID uint64) error {
	var msg *mongo.Message
	err := s.retry.Do(ctx, "get message", func(ctx context.Context) error {
		var err error
		msg, err = s.messageRepo.GetByID(ctx, messageID)
		return err
	})
	if errors.Is(err, mongodrv.ErrNoDocuments) {
		return ErrMessageNotFound
	}
	if err != nil {
		return err
	}
	if !msg.IsParticipant(userID) {
		return UnauthorizedError
	}

	err = s.retry.Do(ctx, "delete message for user", func(ctx context.Context) error {
		return s.messageRepo.MarkDeleted(ctx, messageID, msg.SenderID == userID)
	})
	if errors.Is(err, mongodrv.ErrNoDocuments) {
		return ErrMessageNotFound
	}
	return err
}

// GetChatHistory 按查看者视角拉取历史，lastSeq 为 0 时取最新一页
func (s *conversationServiceImpl) GetChatHistory(ctx context.Context, userID uint64, peerKey string, lastSeq uint64, pageSize int) ([]*dto.MessageDTO, error) {
	conv, _, err := s.memberConversation(ctx, peerKey, userID)
	if err != nil {
		return nil, err
	}
	limit, _ := util.NormalizePage(1, pageSize)

	var models []*mongo.Message
	err = s.retry.Do(ctx, "get chat history", func(ctx context.Context) error {
		var err error
		models, err = s.messageRepo.GetHistory(ctx, conv.ID, userID, lastSeq, limit)
		return err
	})
	if err != nil {
		return nil, err
	}

	res := make([]*dto.MessageDTO, 0, len(models))
	for _, m := range models {
		d := s.toMessageDTO(m)
		if m.SenderID == userID {
			d.Moderation = moderationLabel(m.IsFlagged, m.IsShadowed)
		}
		res = append(res, d)
	}
	return res, nil
}

// GetConversationList 获取会话列表
func (s *conversationServiceImpl) GetConversationList(ctx context.Context, userID uint64, page, pageSize int) ([]*dto.ConversationDTO, error) {
	limit, offset := util.NormalizePage(page, pageSize)
	var members []*model.ConversationMember
	err := s.retry.Do(ctx, "list conversations", func(ctx context.Context) error {
		var err error
		members, err = s.convRepo.GetUserConversationMemList(ctx, userID, limit, offset)
		return err
	})
	if err != nil {
		return nil, err
	}

	peerIDs := make([]uint64, 0, len(members))
	peerOf := make(map[uint64]uint64, len(members))
	for _, m := range members {
		a, b, err := util.ParsePeerKey(m.Conversation.PeerKey)
		if err != nil {
			log.WarnContext(ctx, "skip malformed conversation", "conversation_id", m.ConversationID, "err", err)
			continue
		}
		peerID := a
		if a == userID {
			peerID = b
		}
		peerOf[m.ConversationID] = peerID
		peerIDs = append(peerIDs, peerID)
	}

	var profiles []*model.CommunityProfile
	err = s.retry.Do(ctx, "get profiles", func(ctx context.Context) error {
		var err error
		profiles, err = s.profileRepo.GetProfiles(ctx, peerIDs)
		return err
	})
	if err != nil {
		return nil, err
	}
	byID := make(map[uint64]*model.CommunityProfile, len(profiles))
	for _, p := range profiles {
		byID[p.UserID] = p
	}

	res := make([]*dto.ConversationDTO, 0, len(members))
	for _, m := range members {
		peerID, ok := peerOf[m.ConversationID]
		if !ok {
			continue
		}
		conv := m.Conversation
		res = append(res, s.toConversationDTO(&conv, m, peerID, byID[peerID]))
	}
	return res, nil
}

// GetTotalUnread 全部会话的未读总数
func (s *conversationServiceImpl) GetTotalUnread(ctx context.Context, userID uint64) (int64, error) {
	var total int64
	err := s.retry.Do(ctx, "total unread", func(ctx context.Context) error {
		var err error
		total, err = s.convRepo.GetTotalUnreadCount(ctx, userID)
		return err
	})
	return total, err
}

// SetMuted 会话免打扰，只影响自己
func (s *conversationServiceImpl) SetMuted(ctx context.Context, userID uint64, peerKey string, muted bool) error {
	conv, _, err := s.memberConversation(ctx, peerKey, userID)
	if err != nil {
		return err
	}
	err = s.retry.Do(ctx, "set muted", func(ctx context.Context) error {
		return s.convRepo.SetMuted(ctx, conv.ID, userID, muted)
	})
	if errors.Is(err, repository.ErrTargetGone) {
		return UnauthorizedError
	}
	return err
}

func (s *conversationServiceImpl) Close() {
	s.closeOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
	log.Info("ConversationService shut down gracefully")
}

// calibrationWorker 补写调用方取消后未落库的消息，主键确定所以重复写入无副作用
func (s *conversationServiceImpl) calibrationWorker() {
	defer s.wg.Done()
	for {
		select {
		case p := <-s.retryChan:
			s.calibrate(p)
		case <-s.stopChan:
			// 退出前把队列里剩余的消息再尝试一次
			for {
				select {
				case p := <-s.retryChan:
					s.calibrate(p)
				default:
					return
				}
			}
		}
	}
}

func (s *conversationServiceImpl) enqueue(p *pendingDelivery) {
	select {
	case s.retryChan <- p:
	default:
		// 队列满时同步补写，不能丢消息
		log.Warn("calibration queue full, saving inline", "message_id", p.msg.ID)
		s.calibrate(p)
	}
}

// calibrate 落库成功后投递；一轮失败重新入队，服务关闭时放弃并回退未读
func (s *conversationServiceImpl) calibrate(p *pendingDelivery) {
	timeout := s.retry.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	for {
		backoff := s.retry.Backoff
		for i := 0; i < calibrationAttempts; i++ {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			err := s.messageRepo.SaveMessage(ctx, p.msg)
			cancel()
			if err == nil {
				s.deliver(context.Background(), p)
				return
			}
			log.Warn("calibrate message failed", "message_id", p.msg.ID, "attempt", i+1, "err", err)
			select {
			case <-time.After(backoff):
			case <-s.stopChan:
			}
			backoff *= 2
			if s.retry.MaxBackoff > 0 && backoff > s.retry.MaxBackoff {
				backoff = s.retry.MaxBackoff
			}
		}

		select {
		case <-s.stopChan:
			log.Error("calibration stopped before message saved", "message_id", p.msg.ID)
			s.revertAppend(context.Background(), p.params)
			return
		default:
		}
		select {
		case s.retryChan <- p:
			return
		default:
		}
	}
}

// publishToUser 发布消息到接收者的用户频道
func (s *conversationServiceImpl) publishToUser(ctx context.Context, userID uint64, payload any) error {
	if redis.Rdb == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	channel := consts.IMUserKey + strconv.FormatUint(userID, 10)
	return redis.Publish(context.WithoutCancel(ctx), channel, data)
}

// publishReadReceipt 发布已读回执到对方频道
func (s *conversationServiceImpl) publishReadReceipt(convID, fromUID, toPeerID, seq uint64) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.publishToUser(ctx, toPeerID, &dto.ReadReceiptDTO{
		ConversationID: convID,
		UserID:         fromUID,
		ReadSeq:        seq,
		Type:           "READ_RECEIPT",
	})
}

func (s *conversationServiceImpl) toMessageDTO(m *mongo.Message) *dto.MessageDTO {
	res := &dto.MessageDTO{
		ID: m.ID, ConversationID: m.ConversationID, ConversationKey: m.ConversationKey,
		SenderID: m.SenderID, ReceiverID: m.ReceiverID, MsgType: m.MsgType,
		Content: m.Content, Seq: m.Seq, ReadAt: m.ReadAt, CreatedAt: m.CreatedAt,
	}
	for _, p := range m.Payload {
		res.Payload = append(res.Payload, dto.PayloadDTO{
			MimeType: p.MimeType, URL: p.MediaURL, Width: p.Width, Height: p.Height, Duration: p.Duration,
		})
	}
	return res
}

func (s *conversationServiceImpl) toConversationDTO(conv *model.Conversation, member *model.ConversationMember, peerID uint64, peer *model.CommunityProfile) *dto.ConversationDTO {
	d := &dto.ConversationDTO{
		ConversationID:  conv.ID,
		ConversationKey: conv.PeerKey,
		PeerID:          peerID,
		LastMsgContent:  conv.LastMsgContent,
		LastMsgType:     conv.LastMsgType,
		LastSenderID:    conv.LastSenderID,
		LastMessageAt:   conv.LastMessageAt,
		MaxMsgSeq:       conv.MaxMsgSeq,
		UnreadCount:     member.UnreadCount,
		IsMuted:         member.IsMuted,
		IsBlocked:       member.IsBlocked,
	}
	if peer != nil {
		d.PeerNickname = peer.Nickname
		d.PeerAvatarURL = peer.AvatarURL
	}
	return d
}

func messagePreview(msgType int, content string) string {
	switch msgType {
	case mongo.MsgTypeVoice:
		return "[语音]"
	case mongo.MsgTypeImage:
		return "[图片]"
	}
	return util.Snippet(content, previewLength)
}
