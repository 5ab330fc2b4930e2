package moderation

import "time"

// Action 审核结论，数值越大越严格
type Action int8

const (
	ActionAllow  Action = 0
	ActionFlag   Action = 1
	ActionShadow Action = 2
	ActionBlock  Action = 3
)

func (a Action) String() string {
	switch a {
	case ActionFlag:
		return "flag"
	case ActionShadow:
		return "shadow"
	case ActionBlock:
		return "block"
	default:
		return "allow"
	}
}

// Valid 规则只能是 Flag/Shadow/Block
func (a Action) Valid() bool {
	return a >= ActionFlag && a <= ActionBlock
}

// Rule 违禁词规则
type Rule struct {
	ID            uint64    `json:"id"`
	Keyword       string    `json:"keyword"`
	WholeWord     bool      `json:"wholeWord"`
	CaseSensitive bool      `json:"caseSensitive"`
	Severity      Action    `json:"severity"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Verdict 审核结果，Allow 时 Rule 为 nil
type Verdict struct {
	Action Action
	Rule   *Rule
}

func (v Verdict) IsAllow() bool {
	return v.Action == ActionAllow
}

// Stronger 返回两个结论中更严格的一个，同级取更早创建的规则
func Stronger(a, b Verdict) Verdict {
	if a.Action != b.Action {
		if a.Action > b.Action {
			return a
		}
		return b
	}
	if a.Rule == nil || b.Rule == nil {
		if a.Rule != nil {
			return a
		}
		return b
	}
	if earlier(b.Rule, a.Rule) {
		return b
	}
	return a
}

func earlier(x, y *Rule) bool {
	if !x.CreatedAt.Equal(y.CreatedAt) {
		return x.CreatedAt.Before(y.CreatedAt)
	}
	return x.ID < y.ID
}
