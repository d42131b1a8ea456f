package service

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"learnhub_backend/internal/gating"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"

	"github.com/xuri/excelize/v2"
)

const progressSheet = "Progress"

// ProgressRow 报表中的一行，对应一名学员
type ProgressRow struct {
	Name              string
	Username          string
	Email             string
	CompletedModules  []string
	PassedCheckpoints []int
	LatestScores      map[int]float64
	AverageScore      float64
	Tier              string
}

type ReportService struct {
	UserRepo       *repository.UserRepository
	CheckpointRepo *repository.CheckpointRepository
	ProgressRepo   *repository.ProgressRepository
	Learning       *LearningService
}

func NewReportService(
	userRepo *repository.UserRepository,
	checkpointRepo *repository.CheckpointRepository,
	progressRepo *repository.ProgressRepository,
	learning *LearningService,
) *ReportService {
	return &ReportService{
		UserRepo:       userRepo,
		CheckpointRepo: checkpointRepo,
		ProgressRepo:   progressRepo,
		Learning:       learning,
	}
}

// averageFor 优先使用模块得分记录，没有时取各检查点最近一次得分的平均值
func averageFor(raw []byte, latest map[int]float64) float64 {
	if len(raw) > 0 {
		if rec, err := gating.ParseScoreRecord(raw); err == nil {
			if stats := gating.NormalizeModuleScores(rec); len(stats) > 0 {
				return gating.AverageScore(stats)
			}
		}
	}
	if len(latest) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range latest {
		sum += v
	}
	return math.Round(sum/float64(len(latest))*100) / 100
}

// Rows 汇总所有学员的进度，顺序与用户 ID 一致
func (s *ReportService) Rows() ([]ProgressRow, []int, error) {
	students, err := s.UserRepo.ListByRole(model.Student)
	if err != nil {
		return nil, nil, err
	}
	quizzes, err := s.CheckpointRepo.List()
	if err != nil {
		return nil, nil, err
	}
	completions, err := s.ProgressRepo.AllCompletions()
	if err != nil {
		return nil, nil, err
	}
	attempts, err := s.ProgressRepo.AllAttempts()
	if err != nil {
		return nil, nil, err
	}
	records, err := s.ProgressRepo.AllScoreRecords()
	if err != nil {
		return nil, nil, err
	}

	numbers := make([]int, 0, len(quizzes))
	for _, q := range quizzes {
		numbers = append(numbers, q.CheckpointNumber)
	}
	tiers := s.Learning.Tiers()

	rows := make([]ProgressRow, 0, len(students))
	for _, u := range students {
		ix := gating.NewProgressIndex(ToProgress(completions[u.ID], attempts[u.ID]))
		row := ProgressRow{
			Name:              u.Name,
			Username:          u.Username,
			Email:             u.Email,
			CompletedModules:  completions[u.ID],
			PassedCheckpoints: []int{},
			LatestScores:      make(map[int]float64),
		}
		for _, cp := range ix.Checkpoints() {
			row.LatestScores[cp.CheckpointNumber] = cp.LatestScore
			if cp.Passed {
				row.PassedCheckpoints = append(row.PassedCheckpoints, cp.CheckpointNumber)
			}
		}
		row.AverageScore = averageFor(records[u.ID], row.LatestScores)
		if t, ok := gating.ClassifyTier(tiers, row.AverageScore); ok {
			row.Tier = t.Name
		}
		rows = append(rows, row)
	}
	return rows, numbers, nil
}

// ProgressWorkbook 生成 xlsx 报表
func (s *ReportService) ProgressWorkbook() (*bytes.Buffer, error) {
	rows, numbers, err := s.Rows()
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", progressSheet); err != nil {
		return nil, err
	}

	header := []interface{}{"Name", "Username", "Email", "Completed Modules", "Passed Checkpoints"}
	for _, n := range numbers {
		header = append(header, fmt.Sprintf("Checkpoint %d Latest", n))
	}
	header = append(header, "Average Score", "Tier")
	if err := f.SetSheetRow(progressSheet, "A1", &header); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(progressSheet, "A1", lastCol+"1", bold); err != nil {
		return nil, err
	}

	for i, r := range rows {
		passed := make([]string, 0, len(r.PassedCheckpoints))
		for _, n := range r.PassedCheckpoints {
			passed = append(passed, fmt.Sprintf("%d", n))
		}
		values := []interface{}{
			r.Name,
			r.Username,
			r.Email,
			strings.Join(r.CompletedModules, ", "),
			strings.Join(passed, ", "),
		}
		for _, n := range numbers {
			if score, ok := r.LatestScores[n]; ok {
				values = append(values, score)
			} else {
				values = append(values, "")
			}
		}
		values = append(values, r.AverageScore, r.Tier)

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(progressSheet, cell, &values); err != nil {
			return nil, err
		}
	}

	if err := f.SetPanes(progressSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, err
	}

	return f.WriteToBuffer()
}
