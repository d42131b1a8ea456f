package gating

import (
	"encoding/json"
	"math"
	"sort"
)

type ScoreShape string

const (
	ShapeEmpty   ScoreShape = "empty"
	ShapeCurrent ScoreShape = "moduleScores"
	ShapeLegacy  ScoreShape = "moduleTypeScores"
)

type ModuleScore struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// LegacyModuleTypeScore 旧版按模块类型记录的得分
type LegacyModuleTypeScore struct {
	Score int `json:"score"`
	Total int `json:"total"`
}

// RawScoreRecord 客户端上报的原始得分，两个字段至多一个有效
type RawScoreRecord struct {
	ModuleScores     map[string]ModuleScore           `json:"moduleScores,omitempty"`
	ModuleTypeScores map[string]LegacyModuleTypeScore `json:"moduleTypeScores,omitempty"`
}

// ModuleScoreStat 统一后的模块得分
type ModuleScoreStat struct {
	ModuleID   string  `json:"moduleId"`
	Correct    int     `json:"correct"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

func ParseScoreRecord(data []byte) (RawScoreRecord, error) {
	var r RawScoreRecord
	if len(data) == 0 {
		return r, nil
	}
	err := json.Unmarshal(data, &r)
	return r, err
}

func (r RawScoreRecord) Shape() ScoreShape {
	switch {
	case len(r.ModuleScores) > 0:
		return ShapeCurrent
	case len(r.ModuleTypeScores) > 0:
		return ShapeLegacy
	default:
		return ShapeEmpty
	}
}

// NormalizeModuleScores 把新旧两种结构统一为 ModuleScoreStat，按模块 ID 排序。
// 两种结构同时存在时以新结构为准。
func NormalizeModuleScores(r RawScoreRecord) []ModuleScoreStat {
	var stats []ModuleScoreStat
	switch r.Shape() {
	case ShapeCurrent:
		stats = make([]ModuleScoreStat, 0, len(r.ModuleScores))
		for id, s := range r.ModuleScores {
			stats = append(stats, newStat(id, s.Correct, s.Total))
		}
	case ShapeLegacy:
		stats = make([]ModuleScoreStat, 0, len(r.ModuleTypeScores))
		for id, s := range r.ModuleTypeScores {
			stats = append(stats, newStat(id, s.Score, s.Total))
		}
	default:
		return []ModuleScoreStat{}
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].ModuleID < stats[j].ModuleID })
	return stats
}

func newStat(id string, correct, total int) ModuleScoreStat {
	if total < 0 {
		total = 0
	}
	if correct < 0 {
		correct = 0
	}
	if correct > total {
		correct = total
	}
	return ModuleScoreStat{
		ModuleID:   id,
		Correct:    correct,
		Total:      total,
		Percentage: Percent(correct, total),
	}
}

// Percent 保留两位小数，total <= 0 时为 0
func Percent(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(correct)/float64(total)*10000) / 100
}

// AverageScore 按题目总数加权的平均百分比
func AverageScore(stats []ModuleScoreStat) float64 {
	correct, total := 0, 0
	for _, s := range stats {
		correct += s.Correct
		total += s.Total
	}
	return Percent(correct, total)
}
