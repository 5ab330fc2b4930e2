package util

import (
	log "log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/liuzl/gocc"
)

var (
	t2sOnce sync.Once
	t2s     *gocc.OpenCC
)

// ToSimplified 繁体转简体，字典不可用时返回原文
func ToSimplified(s string) string {
	t2sOnce.Do(func() {
		conv, err := gocc.New("t2s")
		if err != nil {
			log.Warn("gocc t2s unavailable, skip normalization", "err", err)
			return
		}
		t2s = conv
	})
	if t2s == nil || s == "" {
		return s
	}
	out, err := t2s.Convert(s)
	if err != nil {
		return s
	}
	return out
}

// Snippet 按字符截断文本用于预览
func Snippet(s string, maxRunes int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxRunes]) + "..."
}
