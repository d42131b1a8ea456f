package gating

import (
	"sort"
)

type ItemKind string

const (
	ItemModule ItemKind = "module"
	ItemQuiz   ItemKind = "quiz"
)

type Gate string

const (
	GateRequired Gate = "required"
	GateUngated  Gate = "ungated"
)

// Item 展示序列中的一项，模块或检查点测验
type Item struct {
	Kind             ItemKind `json:"kind"`
	ModuleID         string   `json:"moduleId,omitempty"`
	CheckpointNumber int      `json:"checkpointNumber,omitempty"`
	Title            string   `json:"title"`
	Gate             Gate     `json:"gate"`
	ForCheckpoint    int      `json:"forCheckpoint,omitempty"`
}

// Sequence 生成模块与测验交错的展示顺序：
// 按检查点编号升序，先列出该测验要求的模块（目录顺序，已列出的跳过），再列出测验本身；
// 之后是未被任何测验要求的模块，最后是没有前置模块的测验。
func Sequence(modules []CatalogModule, quizzes []CatalogQuiz) []Item {
	sorted := make([]CatalogQuiz, 0, len(quizzes))
	seen := make(map[int]bool, len(quizzes))
	for _, q := range quizzes {
		// 与 EvaluateIndex 一致：编号重复时只保留目录中第一次出现的测验
		if q.CheckpointNumber <= 0 || seen[q.CheckpointNumber] {
			continue
		}
		seen[q.CheckpointNumber] = true
		sorted = append(sorted, q)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CheckpointNumber < sorted[j].CheckpointNumber
	})

	items := make([]Item, 0, len(modules)+len(sorted))
	emitted := make(map[string]bool, len(modules))
	var ungatedQuizzes []CatalogQuiz

	for _, q := range sorted {
		required := make(map[string]bool, len(q.RequiredModuleIDs))
		for _, id := range q.RequiredModuleIDs {
			if id != "" {
				required[id] = true
			}
		}
		if len(required) == 0 {
			ungatedQuizzes = append(ungatedQuizzes, q)
			continue
		}
		for _, m := range modules {
			key := m.Key()
			if !required[key] || emitted[key] {
				continue
			}
			emitted[key] = true
			items = append(items, Item{
				Kind:          ItemModule,
				ModuleID:      key,
				Title:         m.Title,
				Gate:          GateRequired,
				ForCheckpoint: q.CheckpointNumber,
			})
		}
		items = append(items, quizItem(q, GateRequired))
	}

	for _, m := range modules {
		key := m.Key()
		if key == "" || emitted[key] {
			continue
		}
		emitted[key] = true
		items = append(items, Item{
			Kind:     ItemModule,
			ModuleID: key,
			Title:    m.Title,
			Gate:     GateUngated,
		})
	}

	for _, q := range ungatedQuizzes {
		items = append(items, quizItem(q, GateUngated))
	}
	return items
}

func quizItem(q CatalogQuiz, gate Gate) Item {
	return Item{
		Kind:             ItemQuiz,
		CheckpointNumber: q.CheckpointNumber,
		Title:            q.Title,
		Gate:             gate,
	}
}

// Compute 汇总 Evaluate 与 Sequence 的结果
func Compute(progress Progress, catalog Catalog) View {
	return View{
		Evaluation: Evaluate(progress, catalog),
		Sequence:   Sequence(catalog.Modules, catalog.CheckpointQuizzes),
	}
}
