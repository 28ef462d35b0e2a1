package domain

// Tier 标记一个复数拼写的出处层级。
type Tier uint8

const (
	// TierSanctioned 表示词典明确背书的拼写。
	TierSanctioned Tier = iota + 1
	// TierInformal 表示实际在用、但未获词典正式背书的拼写。
	TierInformal
)

func (t Tier) String() string {
	switch t {
	case TierSanctioned:
		return "sanctioned"
	case TierInformal:
		return "informal"
	default:
		return "tier(unknown)"
	}
}

// PluralForm 是一个复数拼写及其层级。
type PluralForm struct {
	Spelling string
	Tier     Tier
}

// Entry 是 provider 解析得到的词条中间结构（解析为纯函数，Entry 不再被修改）。
//
// 约束：
// - Forms 保持源页面内的出现顺序
// - Website 必须写入词条页 URL（来源标记）
// - 字段缺失允许为零值，但结构必须稳定
type Entry struct {
	Headword string
	Forms    []PluralForm

	Countability Countability

	PluralOnly       bool
	SingularOrPlural bool

	Website string
}

// SanctionedForms 返回 sanctioned 层级的拼写（保持源顺序）。
func (e Entry) SanctionedForms() []string {
	return e.formsByTier(TierSanctioned)
}

// InformalForms 返回 informal 层级的拼写（保持源顺序）。
func (e Entry) InformalForms() []string {
	return e.formsByTier(TierInformal)
}

func (e Entry) formsByTier(t Tier) []string {
	out := make([]string, 0, len(e.Forms))
	for _, f := range e.Forms {
		if f.Tier == t {
			out = append(out, f.Spelling)
		}
	}
	return out
}
