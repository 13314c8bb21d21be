package services

import (
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/recall-backend/internal/data/repos/testutil"
)

func newSessionService(repo *testutil.SessionRepo) SessionService {
	return NewSessionService(nil, testLogger(), repo)
}

func TestSessionGetOwnedHidesForeignSessions(t *testing.T) {
	repo := testutil.NewSessionRepo()
	sv := newSessionService(repo)
	session := seedSession(t, repo, "owner", 1)

	if _, err := sv.GetOwned(testDBC(), "owner", session.ID); err != nil {
		t.Fatalf("owner lookup: %v", err)
	}

	// A foreign session and a missing one answer identically.
	for _, id := range []uuid.UUID{session.ID, uuid.New()} {
		_, err := sv.GetOwned(testDBC(), "intruder", id)
		ae := asAPIError(t, err)
		if ae.Status != http.StatusNotFound || ae.Code != "session_not_found" {
			t.Fatalf("got %d/%s", ae.Status, ae.Code)
		}
	}
}

func TestSessionGetWithMessagesReturnsTranscript(t *testing.T) {
	repo := testutil.NewSessionRepo()
	sv := newSessionService(repo)
	session := seedSession(t, repo, "u1", 3)

	got, msgs, err := sv.GetWithMessages(testDBC(), "u1", session.ID)
	if err != nil {
		t.Fatalf("GetWithMessages: %v", err)
	}
	if got.ID != session.ID {
		t.Fatalf("session id = %s", got.ID)
	}
	if len(msgs) != 6 {
		t.Fatalf("messages = %d, want 6", len(msgs))
	}
	for i, m := range msgs {
		if m.Seq != int64(i+1) {
			t.Fatalf("message %d has seq %d", i, m.Seq)
		}
	}
}

func TestSessionRename(t *testing.T) {
	repo := testutil.NewSessionRepo()
	sv := newSessionService(repo)
	session := seedSession(t, repo, "u1", 1)

	renamed, err := sv.Rename(testDBC(), "u1", session.ID, "  Trip planning  ")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if renamed.Title != "Trip planning" {
		t.Fatalf("title = %q", renamed.Title)
	}

	_, err = sv.Rename(testDBC(), "u1", session.ID, "   ")
	ae := asAPIError(t, err)
	if ae.Status != http.StatusBadRequest || ae.Code != "missing_title" {
		t.Fatalf("got %d/%s", ae.Status, ae.Code)
	}

	_, err = sv.Rename(testDBC(), "someone_else", session.ID, "hijack")
	if ae := asAPIError(t, err); ae.Code != "session_not_found" {
		t.Fatalf("got %s", ae.Code)
	}
}

func TestSessionDeleteEnforcesOwnership(t *testing.T) {
	repo := testutil.NewSessionRepo()
	sv := newSessionService(repo)
	session := seedSession(t, repo, "u1", 1)

	if err := sv.Delete(testDBC(), "someone_else", session.ID); err == nil {
		t.Fatalf("foreign delete should fail")
	}
	if err := sv.Delete(testDBC(), "u1", session.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, _ := repo.Get(testDBC(), session.ID); got != nil {
		t.Fatalf("session still present after delete")
	}
}

func TestSessionListIsScopedToUser(t *testing.T) {
	repo := testutil.NewSessionRepo()
	sv := newSessionService(repo)
	seedSession(t, repo, "u1", 1)
	seedSession(t, repo, "u1", 1)
	seedSession(t, repo, "u2", 1)

	out, err := sv.List(testDBC(), "u1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("sessions = %d, want 2", len(out))
	}
	for _, s := range out {
		if s.UserID != "u1" {
			t.Fatalf("leaked session for %s", s.UserID)
		}
	}
}
