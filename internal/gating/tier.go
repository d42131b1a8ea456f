package gating

// Tier 按得分区间划分的难度等级，与检查点门槛无关
type Tier struct {
	Name string  `mapstructure:"name" yaml:"name" json:"name"`
	Min  float64 `mapstructure:"min" yaml:"min" json:"min"`
	Max  float64 `mapstructure:"max" yaml:"max" json:"max"`
}

func DefaultTiers() []Tier {
	return []Tier{
		{Name: "Tier 1", Min: 0, Max: 50},
		{Name: "Tier 2", Min: 50, Max: 80},
		{Name: "Tier 3", Min: 80, Max: 100},
	}
}

// ClassifyTier 返回第一个包含 pct 的区间（左闭右开，上限为 100 的区间包含 100）。
// pct 会被截断到 [0, 100]。
func ClassifyTier(tiers []Tier, pct float64) (Tier, bool) {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	for _, t := range tiers {
		if pct >= t.Min && (pct < t.Max || t.Max >= 100) {
			return t, true
		}
	}
	return Tier{}, false
}
