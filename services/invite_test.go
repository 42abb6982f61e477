package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nithinknkr/TeamSync/models"

	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeMailer struct {
	sent    []string
	failFor map[string]error
}

func (f *fakeMailer) Send(to, subject, body string) error {
	if err, ok := f.failFor[to]; ok {
		return err
	}
	f.sent = append(f.sent, to)
	return nil
}

func newTestBreaker() *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "EmailDeliveryCB",
		Timeout: time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
	})
}

func TestSendInvitesPartitionsFailures(t *testing.T) {
	mailer := &fakeMailer{failFor: map[string]error{
		"b@x.com": errors.New("mailbox unavailable"),
	}}
	s := &ProjectService{Mailer: mailer, EmailBreaker: newTestBreaker()}

	project := models.NewProject("Launch", "", primitive.NewObjectID())

	result := s.sendInvites(project, []string{"a@x.com", "b@x.com", "c@x.com"}, "join us")

	if len(result.Successful) != 2 {
		t.Fatalf("successful = %v", result.Successful)
	}
	if result.Successful[0] != "a@x.com" || result.Successful[1] != "c@x.com" {
		t.Errorf("successful = %v", result.Successful)
	}
	if len(result.Failed) != 1 {
		t.Fatalf("failed = %v", result.Failed)
	}
	if result.Failed[0].Email != "b@x.com" || result.Failed[0].Error == "" {
		t.Errorf("failure entry = %+v", result.Failed[0])
	}

	// One bad address never blocks delivery to its siblings.
	if len(mailer.sent) != 2 {
		t.Errorf("sent = %v", mailer.sent)
	}
}

func TestSendInvitesSkipsBlankAddresses(t *testing.T) {
	mailer := &fakeMailer{}
	s := &ProjectService{Mailer: mailer, EmailBreaker: newTestBreaker()}
	project := models.NewProject("Launch", "", primitive.NewObjectID())

	result := s.sendInvites(project, []string{"  ", "a@x.com", ""}, "")

	if len(result.Successful) != 1 || result.Successful[0] != "a@x.com" {
		t.Errorf("successful = %v", result.Successful)
	}
	if len(result.Failed) != 0 {
		t.Errorf("failed = %v", result.Failed)
	}
}

func TestSendInvitesOpenBreakerFailsFast(t *testing.T) {
	boom := errors.New("smtp relay down")
	mailer := &fakeMailer{failFor: map[string]error{
		"a@x.com": boom, "b@x.com": boom, "c@x.com": boom,
		"d@x.com": boom, "e@x.com": boom, "f@x.com": boom,
	}}
	s := &ProjectService{Mailer: mailer, EmailBreaker: newTestBreaker()}
	project := models.NewProject("Launch", "", primitive.NewObjectID())

	emails := []string{"a@x.com", "b@x.com", "c@x.com", "d@x.com", "e@x.com", "f@x.com"}
	result := s.sendInvites(project, emails, "")

	// Every address is reported individually even after the breaker opens.
	if len(result.Failed) != len(emails) {
		t.Fatalf("failed = %d, want %d", len(result.Failed), len(emails))
	}
	if len(result.Successful) != 0 {
		t.Errorf("successful = %v", result.Successful)
	}

	sawOpen := false
	for _, f := range result.Failed {
		if strings.Contains(f.Error, "circuit breaker is open") {
			sawOpen = true
		}
	}
	if !sawOpen {
		t.Error("expected later sends to fail fast on the open breaker")
	}
}

func TestInviteBodyContainsJoinLink(t *testing.T) {
	body := inviteBody("Launch", "http://localhost:5173/projects/join/abc123", "see you there")

	if !strings.Contains(body, "Launch") {
		t.Error("body is missing the project name")
	}
	if !strings.Contains(body, "http://localhost:5173/projects/join/abc123") {
		t.Error("body is missing the join link")
	}
	if !strings.Contains(body, "see you there") {
		t.Error("body is missing the custom message")
	}

	// The custom message is optional.
	body = inviteBody("Launch", "http://x/join/1", "")
	if strings.Contains(body, "<p></p>") {
		t.Error("empty message should not produce an empty paragraph")
	}
}
