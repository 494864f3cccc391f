package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go-bar-race/internal/model"
)

func openTestDB(t *testing.T) {
	t.Helper()
	if err := InitDB(filepath.Join(t.TempDir(), "test.db")); err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() { Close() })
}

func testSpec() model.RunSpec {
	return model.RunSpec{
		Source:        model.Source{Path: "gdp.csv"},
		Normalization: model.Normalization{TopN: 10},
		Render:        model.RenderSpec{Format: "gif", Output: "race"},
	}
}

func TestRunLifecycle(t *testing.T) {
	openTestDB(t)

	if err := SaveRun("r1", testSpec()); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if err := UpdateRunStatus("r1", model.StatusRendering); err != nil {
		t.Fatalf("UpdateRunStatus: %v", err)
	}

	run, err := GetRun("r1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != model.StatusRendering || run.Spec.Source.Path != "gdp.csv" || run.Spec.Normalization.TopN != 10 {
		t.Errorf("Unexpected run %+v", run)
	}

	runs, err := ListRuns()
	if err != nil || len(runs) != 1 {
		t.Fatalf("ListRuns: %v %v", runs, err)
	}

	if err := DeleteRun("r1"); err != nil {
		t.Fatalf("DeleteRun: %v", err)
	}
	if _, err := GetRun("r1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := DeleteRun("r1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestUpdateRunStatus_Unknown(t *testing.T) {
	openTestDB(t)

	if err := UpdateRunStatus("missing", model.StatusFailed); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestErrorsAndLogs(t *testing.T) {
	openTestDB(t)

	if err := SaveRunError("r1", "normalize", errors.New("format error")); err != nil {
		t.Fatalf("SaveRunError: %v", err)
	}
	if err := SaveRunError("r1", "render", nil); err != nil {
		t.Fatalf("SaveRunError(nil): %v", err)
	}
	errs, err := GetRunErrors("r1")
	if err != nil || len(errs) != 1 || errs[0].Stage != "normalize" || errs[0].Message != "format error" {
		t.Errorf("Unexpected errors %+v, %v", errs, err)
	}

	SavePipelineLog("r1", "ingest", "info", "started", nil)
	SavePipelineLog("r1", "ingest", "info", "done", map[string]interface{}{"rows": 50})
	logs, err := GetPipelineLogs("r1", 0)
	if err != nil || len(logs) != 2 {
		t.Fatalf("GetPipelineLogs: %v %v", logs, err)
	}
	if logs[1].Details["rows"] != float64(50) {
		t.Errorf("Unexpected details %+v", logs[1].Details)
	}
	limited, _ := GetPipelineLogs("r1", 1)
	if len(limited) != 1 || limited[0].Message != "started" {
		t.Errorf("Unexpected limited logs %+v", limited)
	}
}

func TestStageProgressUpsert(t *testing.T) {
	openTestDB(t)

	start := time.Now()
	if err := SaveStageProgress("r1", "render", "started", &start, nil, 0, 0); err != nil {
		t.Fatalf("SaveStageProgress: %v", err)
	}
	end := start.Add(time.Second)
	if err := SaveStageProgress("r1", "render", "completed", nil, &end, 41, 0); err != nil {
		t.Fatalf("SaveStageProgress: %v", err)
	}

	progress, err := GetStageProgress("r1")
	if err != nil || len(progress) != 1 {
		t.Fatalf("GetStageProgress: %v %v", progress, err)
	}
	p := progress[0]
	if p.Status != "completed" || p.RecordsProcessed != 41 || p.StartedAt == nil || p.CompletedAt == nil {
		t.Errorf("Unexpected progress %+v", p)
	}
}

func TestPanelRoundTrip(t *testing.T) {
	openTestDB(t)

	w := &model.WidePanel{
		Periods:  []int{2020, 2021},
		Entities: []string{"B", "A"},
		Values:   [][]float64{{1, 2}, {3, 0}},
	}
	if err := SavePanel("r1", w); err != nil {
		t.Fatalf("SavePanel: %v", err)
	}
	got, err := GetPanel("r1")
	if err != nil {
		t.Fatalf("GetPanel: %v", err)
	}
	if len(got.Periods) != 2 || got.Entities[0] != "B" || got.Entities[1] != "A" || got.Values[1][0] != 3 {
		t.Errorf("Unexpected panel %+v", got)
	}
}

func TestRankingsAndFiles(t *testing.T) {
	openTestDB(t)

	rankings := []model.Ranking{
		{Period: 2020, Rank: 1, Entity: "A", Value: 2, Share: 2.0 / 3},
		{Period: 2020, Rank: 2, Entity: "B", Value: 1, Share: 1.0 / 3},
		{Period: 2021, Rank: 1, Entity: "B", Value: 3, Share: 1, RankChange: 1},
	}
	if err := SaveRankings("r1", rankings); err != nil {
		t.Fatalf("SaveRankings: %v", err)
	}
	p := 2021
	got, err := GetRankings("r1", &p)
	if err != nil || len(got) != 1 || got[0].Entity != "B" || got[0].RankChange != 1 {
		t.Errorf("Unexpected rankings %+v, %v", got, err)
	}
	all, _ := GetRankings("r1", nil)
	if len(all) != 3 {
		t.Errorf("Expected 3 rankings, got %d", len(all))
	}

	if err := SaveOutputFile(model.OutputFile{RunID: "r1", Kind: "animation", Path: "race.gif", Size: 10, FileType: "gif"}); err != nil {
		t.Fatalf("SaveOutputFile: %v", err)
	}
	files, err := GetOutputFiles("r1")
	if err != nil || len(files) != 1 || files[0].Kind != "animation" || files[0].CreatedAt == "" {
		t.Errorf("Unexpected files %+v, %v", files, err)
	}
}

func TestRunSummary(t *testing.T) {
	openTestDB(t)

	if _, err := GetRunSummary("r1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	s := model.RunSummary{Strategy: "animated", Frames: 41, Report: model.NormalizeReport{RowsRead: 50}}
	if err := SaveRunSummary("r1", s); err != nil {
		t.Fatalf("SaveRunSummary: %v", err)
	}
	s.Frames = 42
	if err := SaveRunSummary("r1", s); err != nil {
		t.Fatalf("SaveRunSummary (update): %v", err)
	}
	got, err := GetRunSummary("r1")
	if err != nil || got.Frames != 42 || got.Report.RowsRead != 50 {
		t.Errorf("Unexpected summary %+v, %v", got, err)
	}
}
