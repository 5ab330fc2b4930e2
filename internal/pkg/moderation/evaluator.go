package moderation

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Evaluate 用规则集评估文本，纯函数，可并发调用
// 命中多条时取最严格的动作，同级取最早创建的规则
func Evaluate(text string, rules []Rule) Verdict {
	verdict := Verdict{Action: ActionAllow}
	if text == "" || len(rules) == 0 {
		return verdict
	}

	lowered := strings.ToLower(text)
	for i := range rules {
		r := &rules[i]
		if r.Keyword == "" || !r.Severity.Valid() {
			continue
		}
		if !matches(text, lowered, r) {
			continue
		}
		verdict = Stronger(verdict, Verdict{Action: r.Severity, Rule: r})
	}
	return verdict
}

func matches(text, lowered string, r *Rule) bool {
	haystack, needle := text, r.Keyword
	if !r.CaseSensitive {
		haystack, needle = lowered, strings.ToLower(r.Keyword)
	}
	if !r.WholeWord {
		return strings.Contains(haystack, needle)
	}
	return containsWord(haystack, needle)
}

// containsWord 查找两侧均为单词边界的出现位置
func containsWord(haystack, needle string) bool {
	offset := 0
	for {
		idx := strings.Index(haystack[offset:], needle)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(needle)
		if boundaryBefore(haystack, start) && boundaryAfter(haystack, end) {
			return true
		}
		_, size := utf8.DecodeRuneInString(haystack[start:])
		offset = start + size
		if offset >= len(haystack) {
			return false
		}
	}
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
