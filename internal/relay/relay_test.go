package relay

import (
	"testing"

	"github.com/lumehealth/carebot/internal/config"
	"github.com/lumehealth/carebot/internal/storage"
)

func TestConnectRejectsDisabledConfig(t *testing.T) {
	if _, err := Connect(nil, nil); err == nil {
		t.Fatal("expected error for nil config, got nil")
	}
	if _, err := Connect(&config.RelayConfig{URL: "nats://localhost:4222"}, nil); err == nil {
		t.Fatal("expected error for disabled relay, got nil")
	}
}

func TestSubjectFor(t *testing.T) {
	c := &Client{subjectPrefix: "carebot"}

	tests := []struct {
		kind storage.EventKind
		want string
	}{
		{storage.KindConfirmed, "carebot.events.confirmed"},
		{storage.KindNagSent, "carebot.events.nag_sent"},
		{storage.KindLinked, "carebot.events.linked"},
	}
	for _, tt := range tests {
		if got := c.subjectFor(tt.kind); got != tt.want {
			t.Errorf("subjectFor(%s) = %v, want %v", tt.kind, got, tt.want)
		}
	}
}

func TestStreamName(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"carebot", "CAREBOT_EVENTS"},
		{"care.home", "CARE_HOME_EVENTS"},
	}
	for _, tt := range tests {
		if got := streamName(tt.prefix); got != tt.want {
			t.Errorf("streamName(%q) = %v, want %v", tt.prefix, got, tt.want)
		}
	}
}

func TestParseRecipientValue(t *testing.T) {
	id, ok, err := parseRecipientValue([]byte(" 42\n"))
	if err != nil || !ok || id != 42 {
		t.Errorf("parseRecipientValue(42) = %v, %v, %v, want 42, true, nil", id, ok, err)
	}

	for _, bad := range []string{"", "abc", "12.5", "42 43"} {
		if _, ok, err := parseRecipientValue([]byte(bad)); err == nil || ok {
			t.Errorf("parseRecipientValue(%q) accepted malformed value", bad)
		}
	}
}
