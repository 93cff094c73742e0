// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danielhkuo/sistema-fic/ai"
	"github.com/danielhkuo/sistema-fic/cliparse"
	"github.com/danielhkuo/sistema-fic/models"
	"github.com/danielhkuo/sistema-fic/testutil"
)

// promptLog keeps the last user prompt the fake model received
type promptLog struct {
	mu   sync.Mutex
	last string
}

func (p *promptLog) set(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = s
}

func (p *promptLog) String() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// fakeModel answers chat completions with reply
func fakeModel(t *testing.T, status int, reply string, prompts *promptLog) *ai.Client {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if prompts != nil && len(req.Messages) > 0 {
			prompts.set(req.Messages[len(req.Messages)-1].Content)
		}

		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"model": "fake",
			"choices": []map[string]any{
				{"message": map[string]string{"content": reply}, "finish_reason": "stop"},
			},
		})
	}))
	t.Cleanup(srv.Close)

	return ai.New(cliparse.AIConfig{
		Endpoint:    srv.URL,
		Model:       "fake",
		Timeout:     5 * time.Second,
		MaxAttempts: 1,
	})
}

func TestAIAnalysis(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()

	qid := testutil.CreateTestQuestionnaire(t, conn, "governanca", "Transparência\nAssembleias", "Pouca participação", "")
	testutil.CastTestVote(t, conn, qid, models.SectionStrengths, 1, models.DirectionUpvote)

	prompts := &promptLog{}
	handler := NewAIHandler(conn, cfg, fakeModel(t, http.StatusOK, "A governança é forte.", prompts))

	req := testutil.MakeRequest("POST", "/ai/analysis", models.AnalysisRequest{Dimension: "governanca"}, nil)
	w := httptest.NewRecorder()
	handler.Analysis(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.AnalysisResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Analysis != "A governança é forte." {
		t.Errorf("Expected model text, got %q", resp.Analysis)
	}
	if resp.Metrics["questionnaires"] != 1 || resp.Metrics["votes"] != 1 || resp.Metrics["strengths"] != 2 {
		t.Errorf("Unexpected metrics %v", resp.Metrics)
	}
	if prompt := prompts.String(); !strings.Contains(prompt, "Transparência") {
		t.Errorf("Expected feedback in prompt, got %q", prompt)
	}
	if n := testutil.CountRows(t, conn, `SELECT COUNT(*) FROM report WHERE id = $1 AND kind = 'analysis'`, resp.ReportID); n != 1 {
		t.Errorf("Expected stored analysis report, got %d", n)
	}
}

func TestAIAnalysisFromBackups(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()

	testutil.CreateTestQuestionnaire(t, conn, "governanca", "Arquivado", "", "")
	testutil.CreateTestQuestionnaire(t, conn, "educacao", "Outro tema", "", "")
	backup, err := ExportAndClear(context.Background(), conn, models.DimensionAll)
	if err != nil {
		t.Fatalf("ExportAndClear failed: %v", err)
	}

	prompts := &promptLog{}
	handler := NewAIHandler(conn, cfg, fakeModel(t, http.StatusOK, "ok", prompts))

	req := testutil.MakeRequest("POST", "/ai/analysis", models.AnalysisRequest{
		Dimension: "governanca",
		BackupIDs: []string{backup.BackupID},
	}, nil)
	w := httptest.NewRecorder()
	handler.Analysis(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	if prompt := prompts.String(); !strings.Contains(prompt, "Arquivado") || strings.Contains(prompt, "Outro tema") {
		t.Errorf("Expected only archived governanca feedback in prompt, got %q", prompt)
	}

	req = testutil.MakeRequest("POST", "/ai/analysis", models.AnalysisRequest{BackupIDs: []string{"missing"}}, nil)
	w = httptest.NewRecorder()
	handler.Analysis(w, req)
	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestAIReport(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	testutil.CreateFullQuestionnaire(t, conn, "governanca")

	reply := "Segue o relatório:\n```json\n{\"summary\": \"Resumo\", \"strengths\": [\"Forte 1\"], " +
		"\"challenges\": [], \"opportunities\": [], \"recommendations\": [\"Formar\"]}\n```"
	handler := NewAIHandler(conn, cfg, fakeModel(t, http.StatusOK, reply, nil))

	req := testutil.MakeRequest("POST", "/ai/report", models.ReportRequest{Dimension: "governanca"}, nil)
	w := httptest.NewRecorder()
	handler.Report(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp reportResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Report == nil || resp.Report.Summary != "Resumo" {
		t.Fatalf("Expected parsed report, got %+v", resp.Report)
	}

	t.Run("unparseable reply", func(t *testing.T) {
		handler := NewAIHandler(conn, cfg, fakeModel(t, http.StatusOK, "sem json", nil))
		req := testutil.MakeRequest("POST", "/ai/report", models.ReportRequest{}, nil)
		w := httptest.NewRecorder()
		handler.Report(w, req)
		testutil.AssertStatus(t, w, http.StatusBadGateway)
	})
}

func TestAIGroup(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()

	qid := testutil.CreateFullQuestionnaire(t, conn, "governanca")
	testutil.RegisterTestVoter(t, conn, "maria@coop.com")
	testutil.AssertStatus(t, submitVotes(NewVoteHandler(conn, cfg), qid, models.SubmitVotesRequest{
		Email: "maria@coop.com", Selections: testutil.FullSelection(),
	}), http.StatusCreated)

	reply := `[{"label": "Tema", "members": [1, 3]}, {"label": "Outro", "members": [2, 2, 7]}]`
	handler := NewAIHandler(conn, cfg, fakeModel(t, http.StatusOK, reply, nil))

	req := testutil.MakeRequest("POST", "/ai/group", models.GroupRequest{
		Dimension: "governanca",
		Section:   models.SectionStrengths,
	}, nil)
	w := httptest.NewRecorder()
	handler.Group(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.GroupResponse
	testutil.AssertJSON(t, w, &resp)
	if len(resp.Groups) != 2 {
		t.Fatalf("Expected 2 groups, got %+v", resp.Groups)
	}
	if resp.Groups[0].Label != "Tema" || resp.Groups[0].Votes != 2 || len(resp.Groups[0].Items) != 2 {
		t.Errorf("Unexpected first group %+v", resp.Groups[0])
	}
	if resp.Groups[1].Label != "Outro" || resp.Groups[1].Votes != 1 {
		t.Errorf("Unexpected second group %+v", resp.Groups[1])
	}

	t.Run("invalid section", func(t *testing.T) {
		req := testutil.MakeRequest("POST", "/ai/group", models.GroupRequest{Section: "threats"}, nil)
		w := httptest.NewRecorder()
		handler.Group(w, req)
		testutil.AssertStatus(t, w, http.StatusBadRequest)
	})

	t.Run("no options", func(t *testing.T) {
		req := testutil.MakeRequest("POST", "/ai/group", models.GroupRequest{Dimension: "clima", Section: "challenges"}, nil)
		w := httptest.NewRecorder()
		handler.Group(w, req)
		testutil.AssertStatus(t, w, http.StatusBadRequest)
	})
}

func TestAIUnavailable(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	testutil.CreateFullQuestionnaire(t, conn, "governanca")

	t.Run("not configured", func(t *testing.T) {
		handler := NewAIHandler(conn, cfg, ai.New(cliparse.AIConfig{}))
		req := testutil.MakeRequest("POST", "/ai/analysis", models.AnalysisRequest{}, nil)
		w := httptest.NewRecorder()
		handler.Analysis(w, req)
		testutil.AssertStatus(t, w, http.StatusServiceUnavailable)
	})

	t.Run("upstream error", func(t *testing.T) {
		handler := NewAIHandler(conn, cfg, fakeModel(t, http.StatusBadRequest, "", nil))
		req := testutil.MakeRequest("POST", "/ai/analysis", models.AnalysisRequest{}, nil)
		w := httptest.NewRecorder()
		handler.Analysis(w, req)
		testutil.AssertStatus(t, w, http.StatusBadGateway)
	})

	if n := testutil.CountRows(t, conn, `SELECT COUNT(*) FROM report`); n != 0 {
		t.Errorf("Expected no reports stored, got %d", n)
	}
}

func TestReportsListAndGet(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	handler := NewAIHandler(conn, testutil.GetTestConfig(), nil)

	id, err := saveReport(context.Background(), conn, models.ReportAnalysis, "governanca", "texto")
	if err != nil {
		t.Fatalf("saveReport failed: %v", err)
	}
	if _, err := saveReport(context.Background(), conn, models.ReportGrouping, "educacao", "[]"); err != nil {
		t.Fatalf("saveReport failed: %v", err)
	}

	req := testutil.MakeRequest("GET", "/reports?dimension=governanca", nil, nil)
	w := httptest.NewRecorder()
	handler.ListReports(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var reports []models.Report
	testutil.AssertJSON(t, w, &reports)
	if len(reports) != 1 || reports[0].ID != id {
		t.Errorf("Expected only report %s, got %+v", id, reports)
	}

	req = testutil.MakeRequest("GET", "/reports?kind=grouping", nil, nil)
	w = httptest.NewRecorder()
	handler.ListReports(w, req)
	testutil.AssertJSON(t, w, &reports)
	if len(reports) != 1 || reports[0].Kind != models.ReportGrouping {
		t.Errorf("Expected one grouping report, got %+v", reports)
	}

	req = testutil.MakeRequest("GET", "/reports/"+id, nil, nil)
	req.SetPathValue("id", id)
	w = httptest.NewRecorder()
	handler.GetReport(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	req = testutil.MakeRequest("GET", "/reports/missing", nil, nil)
	req.SetPathValue("id", "missing")
	w = httptest.NewRecorder()
	handler.GetReport(w, req)
	testutil.AssertStatus(t, w, http.StatusNotFound)
}
