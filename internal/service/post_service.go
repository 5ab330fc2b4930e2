package service

import (
	"Agora/internal/api/dto"
	"Agora/internal/model"
	"Agora/internal/pkg/event"
	"Agora/internal/pkg/identity"
	"Agora/internal/pkg/moderation"
	"Agora/internal/pkg/util"
	"Agora/internal/repository"
	"context"
	"errors"
	"strings"

	"github.com/jinzhu/copier"
	"gorm.io/gorm"
)

const snippetLength = 60

type PostService interface {
	CreatePost(ctx context.Context, userID uint64, req *dto.CreatePostReq) (*dto.PostDTO, error)
	DeletePost(ctx context.Context, userID uint64, postID uint64) error
	GetPost(ctx context.Context, viewerID uint64, postID uint64) (*dto.PostDTO, error)
	ListUserPosts(ctx context.Context, viewerID, authorID uint64, page, pageSize int) ([]*dto.PostDTO, error)
	CreateComment(ctx context.Context, userID uint64, req *dto.CreateCommentReq) (*dto.CommentDTO, error)
	DeleteComment(ctx context.Context, userID uint64, commentID uint64) error
	ListComments(ctx context.Context, viewerID, postID uint64, page, pageSize int) ([]*dto.CommentDTO, error)
	ListReplies(ctx context.Context, viewerID, commentID uint64, page, pageSize int) ([]*dto.CommentDTO, error)
}

type postServiceImpl struct {
	postRepo       repository.PostRepo
	commentRepo    repository.CommentRepo
	engagementRepo repository.EngagementRepo
	moderation     ModerationService
	profiles       *profileLoader
	gate           *contentGate
	publisher      event.Publisher
	retry          RetryPolicy
}

func NewPostService(
	postRepo repository.PostRepo,
	commentRepo repository.CommentRepo,
	engagementRepo repository.EngagementRepo,
	followRepo repository.UserFollowRepo,
	blockRepo repository.UserBlockRepo,
	profileRepo repository.CommunityProfileRepo,
	moderationSvc ModerationService,
	resolver identity.Resolver,
	publisher event.Publisher,
	retry RetryPolicy,
) PostService {
	return &postServiceImpl{
		postRepo:       postRepo,
		commentRepo:    commentRepo,
		engagementRepo: engagementRepo,
		moderation:     moderationSvc,
		profiles:       &profileLoader{profileRepo: profileRepo, resolver: resolver, retry: retry},
		gate:           &contentGate{followRepo: followRepo, blockRepo: blockRepo, profileRepo: profileRepo, retry: retry},
		publisher:      publisher,
		retry:          retry,
	}
}

// CreatePost 发帖：校验 -> 审核 -> 落库 -> 事件
func (s *postServiceImpl) CreatePost(ctx context.Context, userID uint64, req *dto.CreatePostReq) (*dto.PostDTO, error) {
	if err := util.ValidateDTO(req); err != nil {
		return nil, invalidParam(err)
	}
	caption := strings.TrimSpace(req.Caption)
	if caption == "" && len(req.Media) == 0 {
		return nil, ErrEmptyContent
	}
	visibility := req.Visibility
	if visibility == 0 {
		visibility = model.VisibilityPublic
	}

	author, err := s.profiles.active(ctx, userID)
	if err != nil {
		return nil, err
	}

	verdict, err := s.moderation.Check(ctx, caption)
	if err != nil {
		return nil, err
	}
	flags, err := applyVerdict(ctx, verdict)
	if err != nil {
		return nil, err
	}

	post := &model.Post{
		UserID:       userID,
		AuthorName:   author.Nickname,
		AuthorAvatar: author.AvatarURL,
		Caption:      caption,
		Visibility:   visibility,
		IsFlagged:    flags.Flagged,
		IsShadowed:   flags.Shadowed,
		NeedsReview:  flags.NeedsReview,
	}
	for _, m := range req.Media {
		post.Media = append(post.Media, model.PostMedia{
			MediaType: m.Type,
			MediaURL:  m.URL,
			Width:     m.Width,
			Height:    m.Height,
			Duration:  m.Duration,
		})
	}

	err = s.retry.Once(ctx, "create post", func(ctx context.Context) error {
		return s.postRepo.CreatePost(ctx, post)
	})
	if err != nil {
		return nil, err
	}

	if visibility != model.VisibilityPrivate {
		if mentions := util.DedupIDs(req.MentionUserIDs, userID); len(mentions) > 0 {
			evt := event.New(event.PostCreated, userID, author.Nickname)
			evt.PostID = post.ID
			evt.Mentions = mentions
			evt.Snippet = util.Snippet(caption, snippetLength)
			evt.Verdict = verdict.Action
			publishEvent(ctx, s.publisher, evt)
		}
	}
	return s.toPostDTO(post, userID, false), nil
}

// DeletePost 仅作者可删除，重复删除视为成功
func (s *postServiceImpl) DeletePost(ctx context.Context, userID uint64, postID uint64) error {
	post, err := s.getPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.UserID != userID {
		return UnauthorizedError
	}
	return s.retry.Do(ctx, "delete post", func(ctx context.Context) error {
		_, err := s.postRepo.SoftDeletePost(ctx, postID, userID)
		return err
	})
}

// GetPost 按查看者身份过滤可见性
func (s *postServiceImpl) GetPost(ctx context.Context, viewerID uint64, postID uint64) (*dto.PostDTO, error) {
	post, err := s.getPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	visible, err := s.gate.canViewPost(ctx, viewerID, post)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, ErrPostNotFound
	}

	liked := false
	if viewerID != 0 {
		err = s.retry.Do(ctx, "is liked", func(ctx context.Context) error {
			var err error
			liked, err = s.engagementRepo.IsLiked(ctx, repository.TargetPost, postID, viewerID)
			return err
		})
		if err != nil {
			return nil, err
		}
	}
	return s.toPostDTO(post, viewerID, liked), nil
}

// ListUserPosts 用户主页帖子列表，存在屏蔽时返回空列表
func (s *postServiceImpl) ListUserPosts(ctx context.Context, viewerID, authorID uint64, page, pageSize int) ([]*dto.PostDTO, error) {
	limit, offset := util.NormalizePage(page, pageSize)
	filter := repository.PostListFilter{AuthorID: authorID}
	if viewerID != 0 && viewerID == authorID {
		filter.OwnerView = true
	} else {
		hidden, err := s.gate.hiddenAuthor(ctx, viewerID, authorID)
		if err != nil {
			return nil, err
		}
		if hidden {
			return []*dto.PostDTO{}, nil
		}
		filter.Visibilities = []int8{model.VisibilityPublic}
		following, err := s.gate.following(ctx, viewerID, authorID)
		if err != nil {
			return nil, err
		}
		if following {
			filter.Visibilities = append(filter.Visibilities, model.VisibilityFollowers)
		}
	}

	var posts []*model.Post
	err := s.retry.Do(ctx, "list user posts", func(ctx context.Context) error {
		var err error
		posts, err = s.postRepo.GetPostsByUser(ctx, filter, limit, offset)
		return err
	})
	if err != nil {
		return nil, err
	}
	res := make([]*dto.PostDTO, 0, len(posts))
	for _, p := range posts {
		res = append(res, s.toPostDTO(p, viewerID, false))
	}
	return res, nil
}

// CreateComment 评论或回复；回复一条回复时挂到其所属的一级评论下，保留被回复人
func (s *postServiceImpl) CreateComment(ctx context.Context, userID uint64, req *dto.CreateCommentReq) (*dto.CommentDTO, error) {
	if err := util.ValidateDTO(req); err != nil {
		return nil, invalidParam(err)
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	author, err := s.profiles.active(ctx, userID)
	if err != nil {
		return nil, err
	}

	post, err := s.getPost(ctx, req.PostID)
	if err != nil {
		return nil, err
	}
	if err = s.checkInteract(ctx, userID, post.UserID); err != nil {
		return nil, err
	}
	visible, err := s.gate.canViewPost(ctx, userID, post)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, ErrPostNotFound
	}

	comment := &model.PostComment{PostID: post.ID, UserID: userID, Content: content}
	notifyUserID := post.UserID
	if req.ParentID != 0 {
		parent, err := s.getComment(ctx, req.ParentID)
		if err != nil {
			return nil, err
		}
		if parent.PostID != post.ID {
			return nil, ErrPostCommentNotFound
		}
		if ok, err := s.gate.canViewComment(ctx, userID, parent); err != nil {
			return nil, err
		} else if !ok {
			return nil, ErrPostCommentNotFound
		}
		if err = s.checkInteract(ctx, userID, parent.UserID); err != nil {
			return nil, err
		}
		comment.ParentID = parent.ID
		if parent.IsReply() {
			comment.ParentID = parent.ParentID
		}
		comment.ReplyToUserID = parent.UserID
		notifyUserID = parent.UserID
	}

	verdict, err := s.moderation.Check(ctx, content)
	if err != nil {
		return nil, err
	}
	flags, err := applyVerdict(ctx, verdict)
	if err != nil {
		return nil, err
	}
	comment.IsFlagged = flags.Flagged
	comment.IsShadowed = flags.Shadowed
	comment.NeedsReview = flags.NeedsReview
	comment.AuthorName = author.Nickname
	for _, m := range req.Media {
		comment.MediaInfo = append(comment.MediaInfo, model.CommentMediaItem{
			URL:       m.URL,
			Width:     m.Width,
			Height:    m.Height,
			Duration:  m.Duration,
			MediaType: m.Type,
		})
	}

	err = s.retry.Once(ctx, "create comment", func(ctx context.Context) error {
		return s.commentRepo.CreateComment(ctx, comment)
	})
	if errors.Is(err, repository.ErrTargetGone) {
		if comment.IsReply() {
			return nil, ErrPostCommentNotFound
		}
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}

	evt := event.New(event.CommentCreated, userID, author.Nickname)
	evt.TargetUserID = notifyUserID
	evt.PostID = post.ID
	evt.CommentID = comment.ID
	evt.ParentID = comment.ParentID
	evt.Mentions = util.DedupIDs(req.MentionUserIDs, userID)
	evt.Snippet = util.Snippet(content, snippetLength)
	evt.Verdict = verdict.Action
	if post.IsShadowed && evt.Verdict < moderation.ActionShadow {
		evt.Verdict = moderation.ActionShadow
	}
	publishEvent(ctx, s.publisher, evt)

	return s.toCommentDTO(comment, userID), nil
}

// DeleteComment 仅评论作者可删除，删除一级评论时连带其回复
func (s *postServiceImpl) DeleteComment(ctx context.Context, userID uint64, commentID uint64) error {
	comment, err := s.getComment(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.IsDeleted {
		return ErrPostCommentNotFound
	}
	if comment.UserID != userID {
		return UnauthorizedError
	}
	err = s.retry.Do(ctx, "delete comment", func(ctx context.Context) error {
		_, err := s.commentRepo.SoftDeleteComment(ctx, commentID)
		return err
	})
	if errors.Is(err, repository.ErrTargetGone) {
		return ErrPostCommentNotFound
	}
	return err
}

// ListComments 一级评论列表
func (s *postServiceImpl) ListComments(ctx context.Context, viewerID, postID uint64, page, pageSize int) ([]*dto.CommentDTO, error) {
	post, err := s.getPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	return s.listCommentsCommon(ctx, viewerID, post, 0, page, pageSize)
}

// ListReplies 一级评论下的回复
func (s *postServiceImpl) ListReplies(ctx context.Context, viewerID, commentID uint64, page, pageSize int) ([]*dto.CommentDTO, error) {
	parent, err := s.getComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if parent.IsReply() {
		return nil, ErrParamInvalid
	}
	if ok, err := s.gate.canViewComment(ctx, viewerID, parent); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrPostCommentNotFound
	}
	post, err := s.getPost(ctx, parent.PostID)
	if err != nil {
		return nil, err
	}
	return s.listCommentsCommon(ctx, viewerID, post, parent.ID, page, pageSize)
}

func (s *postServiceImpl) listCommentsCommon(ctx context.Context, viewerID uint64, post *model.Post, parentID uint64, page, pageSize int) ([]*dto.CommentDTO, error) {
	visible, err := s.gate.canViewPost(ctx, viewerID, post)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, ErrPostNotFound
	}

	limit, offset := util.NormalizePage(page, pageSize)
	var comments []*model.PostComment
	err = s.retry.Do(ctx, "list comments", func(ctx context.Context) error {
		var err error
		comments, err = s.commentRepo.GetComments(ctx, post.ID, parentID, viewerID, limit, offset)
		return err
	})
	if err != nil {
		return nil, err
	}

	// 过滤与查看者存在屏蔽关系或已被处罚的作者
	hiddenBy := make(map[uint64]bool)
	res := make([]*dto.CommentDTO, 0, len(comments))
	for _, c := range comments {
		if c.UserID == viewerID {
			res = append(res, s.toCommentDTO(c, viewerID))
			continue
		}
		hidden, ok := hiddenBy[c.UserID]
		if !ok {
			if hidden, err = s.gate.hiddenAuthor(ctx, viewerID, c.UserID); err != nil {
				return nil, err
			}
			hiddenBy[c.UserID] = hidden
		}
		if hidden {
			continue
		}
		res = append(res, s.toCommentDTO(c, viewerID))
	}
	return res, nil
}

// checkInteract 与对方存在屏蔽时不能互动
func (s *postServiceImpl) checkInteract(ctx context.Context, userID, targetUserID uint64) error {
	blocked, err := s.gate.blocked(ctx, userID, targetUserID)
	if err != nil {
		return err
	}
	if blocked {
		return ErrUserBlocked
	}
	return nil
}

func (s *postServiceImpl) getPost(ctx context.Context, postID uint64) (*model.Post, error) {
	var post *model.Post
	err := s.retry.Do(ctx, "get post", func(ctx context.Context) error {
		var err error
		post, err = s.postRepo.GetPost(ctx, postID)
		return err
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	if post.IsDeleted {
		return nil, ErrPostNotFound
	}
	return post, nil
}

func (s *postServiceImpl) getComment(ctx context.Context, commentID uint64) (*model.PostComment, error) {
	var comment *model.PostComment
	err := s.retry.Do(ctx, "get comment", func(ctx context.Context) error {
		var err error
		comment, err = s.commentRepo.GetComment(ctx, commentID)
		return err
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPostCommentNotFound
	}
	if err != nil {
		return nil, err
	}
	if comment.IsDeleted {
		return nil, ErrPostCommentNotFound
	}
	return comment, nil
}

func (s *postServiceImpl) toPostDTO(post *model.Post, viewerID uint64, liked bool) *dto.PostDTO {
	res := &dto.PostDTO{}
	_ = copier.Copy(res, post)
	res.IsLiked = liked
	res.Media = make([]dto.MediaItem, 0, len(post.Media))
	for _, m := range post.Media {
		res.Media = append(res.Media, dto.MediaItem{
			Type:     m.MediaType,
			URL:      m.MediaURL,
			Width:    m.Width,
			Height:   m.Height,
			Duration: m.Duration,
		})
	}
	if viewerID == post.UserID {
		res.Moderation = moderationLabel(post.IsFlagged, post.IsShadowed)
	}
	return res
}

func (s *postServiceImpl) toCommentDTO(comment *model.PostComment, viewerID uint64) *dto.CommentDTO {
	res := &dto.CommentDTO{}
	_ = copier.Copy(res, comment)
	res.Media = make([]dto.MediaItem, 0, len(comment.MediaInfo))
	for _, m := range comment.MediaInfo {
		res.Media = append(res.Media, dto.MediaItem{
			Type:     m.MediaType,
			URL:      m.URL,
			Width:    m.Width,
			Height:   m.Height,
			Duration: m.Duration,
		})
	}
	if viewerID == comment.UserID {
		res.Moderation = moderationLabel(comment.IsFlagged, comment.IsShadowed)
	}
	return res
}

// moderationLabel 作者侧看到的审核状态
func moderationLabel(flagged, shadowed bool) string {
	switch {
	case shadowed:
		return moderation.ActionShadow.String()
	case flagged:
		return moderation.ActionFlag.String()
	}
	return moderation.ActionAllow.String()
}
