package repository

import "errors"

var (
	// ErrTargetGone 父级记录不存在或已软删除，事务已回滚
	ErrTargetGone = errors.New("repository: target missing or deleted")
	// ErrRelationBlocked 双方存在屏蔽关系
	ErrRelationBlocked = errors.New("repository: relation blocked")
	// ErrStateChanged 条件更新未命中，状态已被并发修改
	ErrStateChanged = errors.New("repository: state changed")
)

// decrExpr 计数减一，不会小于 0
const decrExpr = "CASE WHEN %[1]s > 0 THEN %[1]s - 1 ELSE 0 END"
