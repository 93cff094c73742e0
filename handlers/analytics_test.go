// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/sistema-fic/models"
	"github.com/danielhkuo/sistema-fic/testutil"
)

func TestGetAnalytics(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	votes := NewVoteHandler(conn, cfg)
	handler := NewAnalyticsHandler(conn, cfg)

	gov := testutil.CreateFullQuestionnaire(t, conn, "governanca")
	testutil.CreateFullQuestionnaire(t, conn, "governanca")
	edu := testutil.CreateFullQuestionnaire(t, conn, "educacao")
	for _, email := range []string{"maria@coop.com", "joao@coop.com", "ana@coop.com", "rui@coop.com"} {
		testutil.RegisterTestVoter(t, conn, email)
	}

	ballots := []struct {
		email, qid string
	}{
		{"maria@coop.com", gov},
		{"joao@coop.com", gov},
		{"maria@coop.com", edu},
	}
	for _, b := range ballots {
		w := submitVotes(votes, b.qid, models.SubmitVotesRequest{Email: b.email, Selections: testutil.FullSelection()})
		testutil.AssertStatus(t, w, http.StatusCreated)
	}

	tests := []struct {
		dimension      string
		questionnaires int
		votes          int
		voters         int
		active         int
	}{
		{"governanca", 2, 18, 2, 1},
		{"educacao", 1, 9, 1, 1},
		{models.DimensionAll, 3, 27, 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.dimension, func(t *testing.T) {
			req := testutil.MakeRequest("GET", "/analytics?dimension="+tt.dimension, nil, testutil.AdminHeaders(t, cfg))
			w := httptest.NewRecorder()
			handler.GetAnalytics(w, req)
			testutil.AssertStatus(t, w, http.StatusOK)

			var resp models.AnalyticsResponse
			testutil.AssertJSON(t, w, &resp)

			if resp.Questionnaires != tt.questionnaires {
				t.Errorf("Expected %d questionnaires, got %d", tt.questionnaires, resp.Questionnaires)
			}
			if resp.Votes != tt.votes {
				t.Errorf("Expected %d votes, got %d", tt.votes, resp.Votes)
			}
			if resp.Voters != tt.voters {
				t.Errorf("Expected %d voters, got %d", tt.voters, resp.Voters)
			}
			if resp.ByStatus[models.StatusActive] != tt.active {
				t.Errorf("Expected %d active, got %d", tt.active, resp.ByStatus[models.StatusActive])
			}
			if resp.Registered != 4 {
				t.Errorf("Expected 4 registered voters, got %d", resp.Registered)
			}
			if want := float64(tt.voters) / 4; resp.Participation != want {
				t.Errorf("Expected participation %.2f, got %.2f", want, resp.Participation)
			}
			if len(resp.PerDimension) != 2 {
				t.Errorf("Expected 2 per-dimension rows, got %d", len(resp.PerDimension))
			}
			if resp.Tally == nil {
				t.Error("Expected tally in analytics")
			}
		})
	}
}

func TestGetAnalyticsEmpty(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	handler := NewAnalyticsHandler(conn, testutil.GetTestConfig())

	req := testutil.MakeRequest("GET", "/analytics", nil, nil)
	w := httptest.NewRecorder()
	handler.GetAnalytics(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.AnalyticsResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Participation != 0 {
		t.Errorf("Expected zero participation, got %f", resp.Participation)
	}
	if resp.ByStatus[models.StatusPending] != 0 {
		t.Errorf("Expected zero pending, got %d", resp.ByStatus[models.StatusPending])
	}
}
