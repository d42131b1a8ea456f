// Package gating 根据学员进度和课程目录计算模块锁定状态、检查点测验状态以及展示顺序。
//
// 包内所有函数都是纯函数：不做 I/O，不持有状态，对同样的输入总是返回同样的结果，
// 可以在多个请求中并发调用。输入中的异常数据（空列表、非正数的检查点编号等）一律按“不设门槛”处理，
// 不返回错误。
package gating

import (
	"sort"
)

type QuizState string

const (
	QuizLocked    QuizState = "locked"
	QuizAvailable QuizState = "available"
	QuizCompleted QuizState = "completed"
)

const ReasonPrerequisitesIncomplete = "prerequisites incomplete"

// AttemptRecord 一次检查点测验作答，按时间先后排列
type AttemptRecord struct {
	CheckpointNumber int     `json:"checkpointNumber"`
	Passed           bool    `json:"passed"`
	Score            float64 `json:"score"`
}

// Progress 学员进度
type Progress struct {
	CompletedModules           []string        `json:"completedModules"`
	CompletedCheckpointQuizzes []AttemptRecord `json:"completedCheckpointQuizzes"`
}

type CatalogModule struct {
	ID          string  `json:"_id"`
	ModuleID    string  `json:"moduleId"`
	Title       string  `json:"title"`
	Tier        string  `json:"tier,omitempty"`
	RequiredFor []int   `json:"requiredFor,omitempty"`
	ContentRef  *string `json:"contentRef,omitempty"`
}

// Key 模块的业务标识，moduleId 为空时退回到 _id
func (m CatalogModule) Key() string {
	if m.ModuleID != "" {
		return m.ModuleID
	}
	return m.ID
}

type CatalogQuiz struct {
	CheckpointNumber  int      `json:"checkpointNumber"`
	Title             string   `json:"title,omitempty"`
	RequiredModuleIDs []string `json:"requiredModuleIds"`
	PassingScore      int      `json:"passingScore"`
	QuestionCount     int      `json:"questionCount"`
}

type Catalog struct {
	Modules           []CatalogModule `json:"modules"`
	CheckpointQuizzes []CatalogQuiz   `json:"checkpointQuizzes"`
}

// ModuleLock 模块锁定状态，GatingCheckpoint 仅在锁定时给出
type ModuleLock struct {
	Locked           bool `json:"locked"`
	GatingCheckpoint *int `json:"gatingCheckpoint,omitempty"`
}

type Evaluation struct {
	ModuleLockState map[string]ModuleLock `json:"moduleLockState"`
	QuizState       map[int]QuizState     `json:"quizState"`
	LockReasons     map[int]string        `json:"lockReasons,omitempty"`
}

// View 对外输出的计算结果
type View struct {
	Evaluation
	Sequence []Item `json:"sequence"`
}

// CheckpointSummary 某个检查点的作答汇总
type CheckpointSummary struct {
	CheckpointNumber int     `json:"checkpointNumber"`
	Passed           bool    `json:"passed"`
	LatestScore      float64 `json:"latestScore"`
	BestScore        float64 `json:"bestScore"`
	Attempts         int     `json:"attempts"`
}

// ProgressIndex 归一化后的进度：已完成模块集合 + 各检查点的汇总。
// 只要有一次通过即视为通过，之后的失败重考不会撤销。
type ProgressIndex struct {
	completed   map[string]struct{}
	checkpoints map[int]CheckpointSummary
}

func NewProgressIndex(p Progress) ProgressIndex {
	ix := ProgressIndex{
		completed:   make(map[string]struct{}, len(p.CompletedModules)),
		checkpoints: make(map[int]CheckpointSummary),
	}
	for _, id := range p.CompletedModules {
		if id == "" {
			continue
		}
		ix.completed[id] = struct{}{}
	}
	for _, a := range p.CompletedCheckpointQuizzes {
		if a.CheckpointNumber <= 0 {
			continue
		}
		s, seen := ix.checkpoints[a.CheckpointNumber]
		s.CheckpointNumber = a.CheckpointNumber
		s.Attempts++
		s.LatestScore = a.Score
		if !seen || a.Score > s.BestScore {
			s.BestScore = a.Score
		}
		if a.Passed {
			s.Passed = true
		}
		ix.checkpoints[a.CheckpointNumber] = s
	}
	return ix
}

func (ix ProgressIndex) HasCompleted(moduleID string) bool {
	_, ok := ix.completed[moduleID]
	return ok
}

func (ix ProgressIndex) Passed(checkpoint int) bool {
	return ix.checkpoints[checkpoint].Passed
}

func (ix ProgressIndex) Checkpoint(checkpoint int) (CheckpointSummary, bool) {
	s, ok := ix.checkpoints[checkpoint]
	return s, ok
}

// Checkpoints 按检查点编号升序返回
func (ix ProgressIndex) Checkpoints() []CheckpointSummary {
	out := make([]CheckpointSummary, 0, len(ix.checkpoints))
	for _, s := range ix.checkpoints {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckpointNumber < out[j].CheckpointNumber })
	return out
}
