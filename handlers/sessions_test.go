// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielhkuo/sistema-fic/models"
	"github.com/danielhkuo/sistema-fic/selection"
	"github.com/danielhkuo/sistema-fic/testutil"
)

func startSession(t *testing.T, handler *SessionHandler) string {
	t.Helper()

	req := testutil.MakeRequest("POST", "/voting/sessions", nil, nil)
	w := httptest.NewRecorder()
	handler.Create(w, req)
	testutil.AssertStatus(t, w, http.StatusCreated)

	var resp models.SessionResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.SessionToken == "" {
		t.Fatal("Expected non-empty session_token")
	}
	return resp.SessionToken
}

func toggle(handler *SessionHandler, token, qid, section string, index int) *httptest.ResponseRecorder {
	req := testutil.MakeRequest("POST", "/voting/sessions/"+token+"/toggle", models.ToggleSelectionRequest{
		QuestionnaireID: qid,
		Section:         section,
		Index:           index,
	}, nil)
	req.SetPathValue("token", token)
	w := httptest.NewRecorder()
	handler.Toggle(w, req)
	return w
}

func confirm(handler *SessionHandler, token, qid, email string) *httptest.ResponseRecorder {
	req := testutil.MakeRequest("POST", "/voting/sessions/"+token+"/confirm", models.ConfirmSessionRequest{
		QuestionnaireID: qid,
		Email:           email,
	}, nil)
	req.SetPathValue("token", token)
	w := httptest.NewRecorder()
	handler.Confirm(w, req)
	return w
}

func TestSessionToggle(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	handler := NewSessionHandler(conn, testutil.GetTestConfig(), selection.NewStore())

	qid := testutil.CreateTestQuestionnaire(t, conn, "governanca", "A\nB\nC\nD", "E\nF\nG", "H\nI\nJ")
	token := startSession(t, handler)

	for _, idx := range []int{1, 2, 3} {
		w := toggle(handler, token, qid, models.SectionStrengths, idx)
		testutil.AssertStatus(t, w, http.StatusOK)

		var resp models.ToggleSelectionResponse
		testutil.AssertJSON(t, w, &resp)
		if !resp.Selected {
			t.Errorf("Expected strengths #%d selected", idx)
		}
		if resp.Counts[models.SectionStrengths] != idx {
			t.Errorf("Expected %d strengths, got %d", idx, resp.Counts[models.SectionStrengths])
		}
	}

	t.Run("fourth pick refused", func(t *testing.T) {
		w := toggle(handler, token, qid, models.SectionStrengths, 4)
		testutil.AssertStatus(t, w, http.StatusConflict)
	})

	t.Run("deselect then pick another", func(t *testing.T) {
		w := toggle(handler, token, qid, models.SectionStrengths, 2)
		testutil.AssertStatus(t, w, http.StatusOK)
		var resp models.ToggleSelectionResponse
		testutil.AssertJSON(t, w, &resp)
		if resp.Selected {
			t.Error("Expected strengths #2 deselected")
		}

		w = toggle(handler, token, qid, models.SectionStrengths, 4)
		testutil.AssertStatus(t, w, http.StatusOK)
	})

	t.Run("option must exist", func(t *testing.T) {
		w := toggle(handler, token, qid, models.SectionChallenges, 9)
		testutil.AssertStatus(t, w, http.StatusNotFound)
	})

	t.Run("invalid section", func(t *testing.T) {
		w := toggle(handler, token, qid, "threats", 1)
		testutil.AssertStatus(t, w, http.StatusBadRequest)
	})

	t.Run("invalid index", func(t *testing.T) {
		w := toggle(handler, token, qid, models.SectionChallenges, 0)
		testutil.AssertStatus(t, w, http.StatusBadRequest)
	})

	t.Run("unknown session", func(t *testing.T) {
		w := toggle(handler, "nope", qid, models.SectionChallenges, 1)
		testutil.AssertStatus(t, w, http.StatusNotFound)
	})

	req := testutil.MakeRequest("GET", "/voting/sessions/"+token, nil, nil)
	req.SetPathValue("token", token)
	w := httptest.NewRecorder()
	handler.Get(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.SessionResponse
	testutil.AssertJSON(t, w, &resp)
	got := resp.Selections[qid].Strengths
	want := []int{1, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("Expected strengths %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected strengths %v, got %v", want, got)
			break
		}
	}
}

func TestSessionConfirm(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	store := selection.NewStore()
	handler := NewSessionHandler(conn, testutil.GetTestConfig(), store)

	qid := testutil.CreateFullQuestionnaire(t, conn, "governanca")
	testutil.RegisterTestVoter(t, conn, "maria@coop.com")
	token := startSession(t, handler)

	toggle(handler, token, qid, models.SectionStrengths, 1)

	t.Run("incomplete selection", func(t *testing.T) {
		w := confirm(handler, token, qid, "maria@coop.com")
		testutil.AssertStatus(t, w, http.StatusBadRequest)
	})

	for _, section := range []string{models.SectionStrengths, models.SectionChallenges, models.SectionOpportunities} {
		for idx := 1; idx <= 3; idx++ {
			if section == models.SectionStrengths && idx == 1 {
				continue
			}
			testutil.AssertStatus(t, toggle(handler, token, qid, section, idx), http.StatusOK)
		}
	}

	t.Run("unregistered voter keeps selection", func(t *testing.T) {
		w := confirm(handler, token, qid, "joao@coop.com")
		testutil.AssertStatus(t, w, http.StatusForbidden)

		sel, _ := store.Get(token)
		if !sel.IsComplete(qid) {
			t.Error("Expected selection to survive a rejected confirm")
		}
	})

	w := confirm(handler, token, qid, "maria@coop.com")
	testutil.AssertStatus(t, w, http.StatusCreated)

	var resp models.SubmitVotesResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.VotesRecorded != 9 {
		t.Errorf("Expected 9 votes recorded, got %d", resp.VotesRecorded)
	}

	sel, _ := store.Get(token)
	if sel.Count(qid, models.SectionStrengths) != 0 {
		t.Error("Expected selection cleared after confirm")
	}
}

func TestSessionDeleteAndSweep(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	store := selection.NewStore()
	handler := NewSessionHandler(conn, cfg, store)

	token := startSession(t, handler)
	startSession(t, handler)

	req := testutil.MakeRequest("DELETE", "/voting/sessions/"+token, nil, nil)
	req.SetPathValue("token", token)
	w := httptest.NewRecorder()
	handler.Delete(w, req)
	testutil.AssertStatus(t, w, http.StatusNoContent)

	if _, ok := store.Get(token); ok {
		t.Error("Expected session to be gone")
	}
	if store.Len() != 1 {
		t.Errorf("Expected 1 session left, got %d", store.Len())
	}

	if n := handler.Sweep(); n != 0 {
		t.Errorf("Expected no fresh session swept, got %d", n)
	}

	cfg.SessionIdleTimeout = time.Nanosecond
	handler = NewSessionHandler(conn, cfg, store)
	time.Sleep(time.Millisecond)
	if n := handler.Sweep(); n != 1 {
		t.Errorf("Expected 1 idle session swept, got %d", n)
	}
}

func TestSessionUntouchedSectionsSerializeAsArrays(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	handler := NewSessionHandler(conn, testutil.GetTestConfig(), selection.NewStore())
	qid := testutil.CreateFullQuestionnaire(t, conn, "governanca")

	token := startSession(t, handler)
	testutil.AssertStatus(t, toggle(handler, token, qid, models.SectionStrengths, 1), http.StatusOK)

	req := testutil.MakeRequest("GET", "/voting/sessions/"+token, nil, nil)
	req.SetPathValue("token", token)
	w := httptest.NewRecorder()
	handler.Get(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	body := w.Body.String()
	if strings.Contains(body, "null") {
		t.Errorf("Expected no null sections, got %s", body)
	}
	if !strings.Contains(body, `"challenges":[]`) {
		t.Errorf("Expected empty challenges array, got %s", body)
	}
}
