package service

import (
	"errors"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	Conflict            = 409
	UnprocessableEntity = 422
	InternalServerError = 500
	ServiceUnavailable  = 503
)

// 错误类别，业务错误都包装其中之一
var (
	ErrValidation      = errors.New("参数错误")
	ErrBlocked         = errors.New("存在屏蔽关系")
	ErrPolicyViolation = errors.New("内容违反社区规范")
	ErrNotFound        = errors.New("对象不存在")
	ErrInvalidState    = errors.New("当前状态不允许该操作")
	ErrTransientStore  = errors.New("服务繁忙，请稍后重试")
	UnauthorizedError  = errors.New("权限不足")
	UnExpectedError    = errors.New("系统异常，请稍后重试")
)

type bizError struct {
	kind error
	msg  string
}

func (e *bizError) Error() string { return e.msg }

func (e *bizError) Unwrap() error { return e.kind }

func newBizError(kind error, msg string) error {
	return &bizError{kind: kind, msg: msg}
}

// invalidParam 校验失败信息归入 ErrValidation
func invalidParam(err error) error {
	return newBizError(ErrValidation, err.Error())
}

var (
	ErrParamInvalid    = newBizError(ErrValidation, "参数错误")
	ErrFollowSelf      = newBizError(ErrValidation, "不能关注自己")
	ErrBlockSelf       = newBizError(ErrValidation, "不能屏蔽自己")
	ErrMessageSelf     = newBizError(ErrValidation, "不能给自己发私信")
	ErrEmptyContent    = newBizError(ErrValidation, "内容不能为空")
	ErrContentTooLong  = newBizError(ErrValidation, "内容过长")
	ErrReportSelf      = newBizError(ErrValidation, "不能举报自己")
	ErrUserBlocked     = newBizError(ErrBlocked, "你与对方存在屏蔽关系")
	ErrUserSuspended   = newBizError(ErrBlocked, "账号已被限制发言与互动")
	ErrContentRejected = newBizError(ErrPolicyViolation, "内容包含违禁词，无法发布")

	ErrUserNotFound         = newBizError(ErrNotFound, "用户不存在")
	ErrPostNotFound         = newBizError(ErrNotFound, "帖子不存在")
	ErrPostCommentNotFound  = newBizError(ErrNotFound, "评论不存在")
	ErrConversationNotFound = newBizError(ErrNotFound, "会话不存在")
	ErrMessageNotFound      = newBizError(ErrNotFound, "消息不存在")
	ErrReportNotFound       = newBizError(ErrNotFound, "举报不存在")
	ErrReportTargetNotFound = newBizError(ErrNotFound, "举报对象不存在")
	ErrKeywordNotFound      = newBizError(ErrNotFound, "违禁词不存在")
	ErrNotificationNotFound = newBizError(ErrNotFound, "通知不存在")

	ErrReportTerminal = newBizError(ErrInvalidState, "举报已处理，不能重复审核")
	ErrReportReviewed = newBizError(ErrInvalidState, "举报已在审核中")
)

var ErrorMap = map[error]int{
	ErrValidation:      BadRequest,
	ErrBlocked:         Forbidden,
	ErrPolicyViolation: UnprocessableEntity,
	ErrNotFound:        NotFound,
	ErrInvalidState:    Conflict,
	ErrTransientStore:  ServiceUnavailable,
	UnauthorizedError:  Unauthorized,
	UnExpectedError:    InternalServerError,
}

// CodeOf 按错误类别返回响应码，未归类的错误视为系统异常
func CodeOf(err error) int {
	for kind, code := range ErrorMap {
		if errors.Is(err, kind) {
			return code
		}
	}
	return InternalServerError
}
