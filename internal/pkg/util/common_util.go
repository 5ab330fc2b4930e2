package util

import (
	"Agora/internal/pkg/consts"
	"fmt"
	"strconv"
	"strings"
)

// PeerKey 单聊会话标识，与发起方无关：小ID_大ID
func PeerKey(a, b uint64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d_%d", a, b)
}

// ParsePeerKey 解析会话标识
func ParsePeerKey(key string) (uint64, uint64, error) {
	left, right, ok := strings.Cut(key, "_")
	if !ok {
		return 0, 0, fmt.Errorf("invalid peer key %q", key)
	}
	a, err := strconv.ParseUint(left, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid peer key %q: %w", key, err)
	}
	b, err := strconv.ParseUint(right, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid peer key %q: %w", key, err)
	}
	if a >= b {
		return 0, 0, fmt.Errorf("invalid peer key %q", key)
	}
	return a, b, nil
}

// NormalizePage 将页码/页大小修正到合法范围，返回 limit, offset
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = consts.DefaultPageSize
	}
	if pageSize > consts.MaxPageSize {
		pageSize = consts.MaxPageSize
	}
	return pageSize, (page - 1) * pageSize
}

// DedupIDs 去重并剔除 0 与 exclude
func DedupIDs(ids []uint64, exclude uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	res := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 || id == exclude {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		res = append(res, id)
	}
	return res
}
