package gating

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func kinds(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it.Kind == ItemQuiz {
			out = append(out, "Q"+string(rune('0'+it.CheckpointNumber)))
		} else {
			out = append(out, it.ModuleID)
		}
	}
	return out
}

func TestSequence_InterleavesRequiredModulesBeforeQuiz(t *testing.T) {
	modules := []CatalogModule{
		{ModuleID: "M1"}, {ModuleID: "M2"}, {ModuleID: "M3"}, {ModuleID: "M4"}, {ModuleID: "M5"},
	}
	quizzes := []CatalogQuiz{
		{CheckpointNumber: 2, RequiredModuleIDs: []string{"M4", "M3", "M1"}},
		{CheckpointNumber: 1, RequiredModuleIDs: []string{"M2", "M1"}},
		{CheckpointNumber: 3},
	}

	items := Sequence(modules, quizzes)

	assert.Equal(t, []string{"M1", "M2", "Q1", "M3", "M4", "Q2", "M5", "Q3"}, kinds(items))
	assert.Equal(t, GateRequired, items[0].Gate)
	assert.Equal(t, 1, items[0].ForCheckpoint)
	assert.Equal(t, 2, items[3].ForCheckpoint)
	assert.Equal(t, GateUngated, items[6].Gate)
	assert.Equal(t, GateUngated, items[7].Gate)
}

func TestSequence_SkipsUnknownAndMalformed(t *testing.T) {
	modules := []CatalogModule{{ModuleID: "A"}, {}}
	quizzes := []CatalogQuiz{
		{CheckpointNumber: 1, RequiredModuleIDs: []string{"ghost", "A"}},
		{CheckpointNumber: -2, RequiredModuleIDs: []string{"A"}},
	}
	assert.Equal(t, []string{"A", "Q1"}, kinds(Sequence(modules, quizzes)))
}

func TestSequence_Deterministic(t *testing.T) {
	modules := []CatalogModule{{ModuleID: "x"}, {ModuleID: "y"}}
	quizzes := []CatalogQuiz{{CheckpointNumber: 4}, {CheckpointNumber: 2, RequiredModuleIDs: []string{"y"}}}

	first := Sequence(modules, quizzes)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Sequence(modules, quizzes))
	}
	assert.Equal(t, []string{"y", "Q2", "x", "Q4"}, kinds(first))
}

func TestSequence_Empty(t *testing.T) {
	assert.Empty(t, Sequence(nil, nil))
}

func TestSequence_DuplicateCheckpointFirstWins(t *testing.T) {
	modules := []CatalogModule{{ModuleID: "A"}, {ModuleID: "B"}}
	quizzes := []CatalogQuiz{
		{CheckpointNumber: 1, Title: "first", RequiredModuleIDs: []string{"A"}},
		{CheckpointNumber: 1, Title: "second", RequiredModuleIDs: []string{"B"}},
	}

	items := Sequence(modules, quizzes)
	assert.Equal(t, []string{"A", "Q1", "B"}, kinds(items))
	assert.Equal(t, "first", items[1].Title)
	assert.Equal(t, GateUngated, items[2].Gate)

	view := Compute(Progress{}, Catalog{Modules: modules, CheckpointQuizzes: quizzes})
	quizItems := 0
	for _, it := range view.Sequence {
		if it.Kind == ItemQuiz {
			quizItems++
		}
	}
	assert.Equal(t, len(view.QuizState), quizItems)
}
