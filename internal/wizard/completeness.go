package wizard

import "strings"

// Completeness 草稿完整度，由草稿实时计算，不单独存储
type Completeness struct {
	Basic    bool `json:"basic"`
	Images   bool `json:"images"`
	Variants bool `json:"variants"`
}

// CompletenessOf 计算草稿完整度
func CompletenessOf(d Draft) Completeness {
	return Completeness{
		Basic:    strings.TrimSpace(d.Name) != "" && d.CategoryID > 0,
		Images:   len(d.Images) > 0,
		Variants: len(d.Variants) > 0,
	}
}

// CanSubmit 三项齐全
func (c Completeness) CanSubmit() bool {
	return c.Basic && c.Images && c.Variants
}
