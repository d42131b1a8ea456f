package gating

// Evaluate 计算每个模块的锁定状态和每个检查点测验的状态
func Evaluate(progress Progress, catalog Catalog) Evaluation {
	return EvaluateIndex(NewProgressIndex(progress), catalog)
}

// EvaluateIndex 与 Evaluate 相同，但接受已归一化的进度，便于调用方复用
func EvaluateIndex(ix ProgressIndex, catalog Catalog) Evaluation {
	ev := Evaluation{
		ModuleLockState: make(map[string]ModuleLock, len(catalog.Modules)),
		QuizState:       make(map[int]QuizState, len(catalog.CheckpointQuizzes)),
		LockReasons:     make(map[int]string),
	}

	for _, q := range catalog.CheckpointQuizzes {
		if q.CheckpointNumber <= 0 {
			continue
		}
		// 编号重复时以目录中第一次出现的测验为准
		if _, dup := ev.QuizState[q.CheckpointNumber]; dup {
			continue
		}
		state, reason := quizState(ix, q)
		ev.QuizState[q.CheckpointNumber] = state
		if reason != "" {
			ev.LockReasons[q.CheckpointNumber] = reason
		}
	}

	requiredBy := requiredForIndex(catalog.CheckpointQuizzes)
	for _, m := range catalog.Modules {
		key := m.Key()
		if key == "" {
			continue
		}
		ev.ModuleLockState[key] = moduleLock(ix, m.RequiredFor, requiredBy[key])
	}

	if len(ev.LockReasons) == 0 {
		ev.LockReasons = nil
	}
	return ev
}

func quizState(ix ProgressIndex, q CatalogQuiz) (QuizState, string) {
	if ix.Passed(q.CheckpointNumber) {
		return QuizCompleted, ""
	}
	for _, id := range q.RequiredModuleIDs {
		if id == "" {
			continue
		}
		if !ix.HasCompleted(id) {
			return QuizLocked, ReasonPrerequisitesIncomplete
		}
	}
	return QuizAvailable, ""
}

// requiredForIndex 反查：模块 -> 把它列为前置条件的检查点编号
func requiredForIndex(quizzes []CatalogQuiz) map[string][]int {
	idx := make(map[string][]int)
	for _, q := range quizzes {
		if q.CheckpointNumber <= 0 {
			continue
		}
		for _, id := range q.RequiredModuleIDs {
			if id == "" {
				continue
			}
			idx[id] = append(idx[id], q.CheckpointNumber)
		}
	}
	return idx
}

// GatingCheckpoint 返回需要先通过的检查点编号；不设门槛时 ok 为 false。
// 门槛 = 所属检查点组中最小编号 - 1，最小编号 <= 1 时不设门槛。
func GatingCheckpoint(groups ...[]int) (checkpoint int, ok bool) {
	lowest := 0
	for _, g := range groups {
		for _, n := range g {
			if n <= 0 {
				continue
			}
			if lowest == 0 || n < lowest {
				lowest = n
			}
		}
	}
	if lowest <= 1 {
		return 0, false
	}
	return lowest - 1, true
}

func moduleLock(ix ProgressIndex, declared, derived []int) ModuleLock {
	gate, ok := GatingCheckpoint(declared, derived)
	if !ok || ix.Passed(gate) {
		return ModuleLock{Locked: false}
	}
	return ModuleLock{Locked: true, GatingCheckpoint: &gate}
}
