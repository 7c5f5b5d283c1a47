package message

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumehealth/carebot/internal/care"
)

func TestRenderHTML(t *testing.T) {
	r := NewRenderer()

	tests := []struct {
		name     string
		markdown string
		want     string
	}{
		{"bold", "**take it**", "<strong>take it</strong>"},
		{"emphasis", "now _please_", "now <em>please</em>"},
		{"code span", "chat `123`", "chat <code>123</code>"},
		{"paragraphs", "first\n\nsecond", "first\n\nsecond"},
		{"list", "- one\n- two", "- one\n- two"},
		{"link", "[help](https://example.com)", `<a href="https://example.com">help</a>`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := r.RenderHTML(test.markdown)
			require.NoError(t, err)
			assert.Equal(t, test.want, got)
		})
	}
}

func TestSanitizeTelegramHTML(t *testing.T) {
	t.Run("strips disallowed tags but keeps text", func(t *testing.T) {
		got, err := sanitizeTelegramHTML(`<span class="x">hello</span> <script>alert(1)</script>`)
		require.NoError(t, err)
		assert.NotContains(t, got, "<span")
		assert.NotContains(t, got, "<script")
		assert.Contains(t, got, "hello")
	})

	t.Run("keeps allowed inline tags", func(t *testing.T) {
		got, err := sanitizeTelegramHTML(`<b>a</b> <i>b</i> <code>c</code> <pre>d</pre>`)
		require.NoError(t, err)
		assert.Equal(t, "<b>a</b> <i>b</i> <code>c</code> <pre>d</pre>", got)
	})

	t.Run("keeps only href on anchors", func(t *testing.T) {
		got, err := sanitizeTelegramHTML(`<a href="https://example.com" onclick="evil()">x</a>`)
		require.NoError(t, err)
		assert.Equal(t, `<a href="https://example.com">x</a>`, got)
	})

	t.Run("escapes text content", func(t *testing.T) {
		got, err := sanitizeTelegramHTML(`<p>1 &lt; 2</p>`)
		require.NoError(t, err)
		assert.Equal(t, "1 &lt; 2", got)
	})
}

func TestCatalog_Reminder(t *testing.T) {
	c := NewCatalog()
	day := care.Day("2024-01-01")

	t.Run("food has no button", func(t *testing.T) {
		msg, err := c.Reminder(care.SlotFood, day)
		require.NoError(t, err)
		assert.True(t, msg.HTML)
		assert.Nil(t, msg.Button)
		assert.Contains(t, msg.Text, "Food time")
	})

	t.Run("medicine carries confirm token", func(t *testing.T) {
		for _, slot := range care.MedicineSlots() {
			msg, err := c.Reminder(slot, day)
			require.NoError(t, err)
			require.NotNil(t, msg.Button, "slot %s", slot)
			assert.Equal(t, ConfirmButtonLabel, msg.Button.Label)
			assert.Equal(t, "taken:"+string(slot)+":2024-01-01", msg.Button.Token)
		}
	})

	t.Run("unknown slot rejected", func(t *testing.T) {
		_, err := c.Reminder(care.Slot("nap"), day)
		require.Error(t, err)
	})
}

func TestCatalog_RecipientName(t *testing.T) {
	c := NewCatalog()
	c.SetRecipientName("  Nana ")
	day := care.Day("2024-01-01")

	reminder, err := c.Reminder(care.SlotFood, day)
	require.NoError(t, err)
	assert.Contains(t, reminder.Text, "Food time, Nana!")

	nag, err := c.Nag(care.SlotMedicineMorning, day)
	require.NoError(t, err)
	assert.Contains(t, nag.Text, "Still waiting, Nana:")

	c.SetRecipientName("")
	reminder, err = c.Reminder(care.SlotFood, day)
	require.NoError(t, err)
	assert.NotContains(t, reminder.Text, "Nana")
}

func TestCatalog_Nag(t *testing.T) {
	c := NewCatalog()

	msg, err := c.Nag(care.SlotMedicineEvening, care.Day("2024-01-01"))
	require.NoError(t, err)
	require.NotNil(t, msg.Button)
	assert.Equal(t, "taken:medicine-evening:2024-01-01", msg.Button.Token)
	assert.Contains(t, msg.Text, "evening medicine")
	assert.Contains(t, msg.Text, "2024-01-01")
}

func TestCatalog_Status(t *testing.T) {
	c := NewCatalog()

	t.Run("linked with one escalation", func(t *testing.T) {
		msg, err := c.Status(StatusReport{
			Linked:    true,
			Recipient: 42,
			Day:       care.Day("2024-01-01"),
			Active: map[care.Slot]bool{
				care.SlotMedicineMorning: true,
			},
			NextRuns: map[care.Slot]time.Time{
				care.SlotFood: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
			},
		})
		require.NoError(t, err)
		assert.Nil(t, msg.Button)
		assert.Contains(t, msg.Text, "2024-01-01")
		assert.Contains(t, msg.Text, "<code>42</code>")
		assert.Contains(t, msg.Text, "escalating")
		assert.Contains(t, msg.Text, "10:00")
	})

	t.Run("not linked", func(t *testing.T) {
		msg, err := c.Status(StatusReport{Day: care.Day("2024-01-01")})
		require.NoError(t, err)
		assert.Contains(t, msg.Text, "not linked")
	})

	t.Run("confirmed slot shows time", func(t *testing.T) {
		msg, err := c.Status(StatusReport{
			Linked:    true,
			Recipient: 42,
			Day:       care.Day("2024-01-01"),
			LastConfirmed: map[care.Slot]time.Time{
				care.SlotMedicineMorning: time.Date(2024, 1, 1, 11, 25, 0, 0, time.UTC),
			},
		})
		require.NoError(t, err)
		assert.Contains(t, msg.Text, "confirmed at 11:25")
	})
}

func TestCatalog_Linked(t *testing.T) {
	c := NewCatalog()

	msg, err := c.Linked(map[care.Slot]care.ClockTime{
		care.SlotFood:            {Hour: 10},
		care.SlotMedicineMorning: {Hour: 11},
		care.SlotMedicineEvening: {Hour: 18},
	})
	require.NoError(t, err)
	assert.Contains(t, msg.Text, "Linked")
	assert.Contains(t, msg.Text, "food at 10:00")
	assert.Contains(t, msg.Text, "evening medicine at 18:00")
}

func TestCatalog_Replies(t *testing.T) {
	c := NewCatalog()

	for name, build := range map[string]func() (string, error){
		"linked":       func() (string, error) { m, err := c.Linked(nil); return m.Text, err },
		"not linked":   func() (string, error) { m, err := c.NotLinked(); return m.Text, err },
		"unauthorized": func() (string, error) { m, err := c.Unauthorized(); return m.Text, err },
		"malformed":    func() (string, error) { m, err := c.Malformed(); return m.Text, err },
		"help":         func() (string, error) { m, err := c.Help(); return m.Text, err },
	} {
		t.Run(name, func(t *testing.T) {
			text, err := build()
			require.NoError(t, err)
			assert.NotEmpty(t, strings.TrimSpace(text))
		})
	}
}

func TestCatalog_ConfirmThanks(t *testing.T) {
	c := NewCatalog()

	msg, err := c.ConfirmThanks(care.SlotMedicineMorning, care.Day("2024-01-01"))
	require.NoError(t, err)
	assert.Contains(t, msg.Text, "morning medicine")
	assert.Nil(t, msg.Button)
}
