package care

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlot_Escalates(t *testing.T) {
	assert.False(t, SlotFood.Escalates())
	assert.True(t, SlotMedicineMorning.Escalates())
	assert.True(t, SlotMedicineEvening.Escalates())
}

func TestParseSlot(t *testing.T) {
	t.Run("accepts known slots", func(t *testing.T) {
		for _, s := range Slots() {
			got, err := ParseSlot(string(s))
			require.NoError(t, err)
			require.Equal(t, s, got)
		}
	})

	t.Run("rejects unknown values", func(t *testing.T) {
		for _, raw := range []string{"", "breakfast", "medicine", "Food", "medicine-morning "} {
			_, err := ParseSlot(raw)
			require.Error(t, err, "raw=%q", raw)
		}
	})
}

func TestDayOf_UsesLocation(t *testing.T) {
	// 2024-01-01 23:30 UTC is already 2024-01-02 in UTC+7.
	utc := time.Date(2024, 1, 1, 23, 30, 0, 0, time.UTC)
	jakarta := time.FixedZone("WIB", 7*3600)

	assert.Equal(t, Day("2024-01-01"), DayOf(utc, time.UTC))
	assert.Equal(t, Day("2024-01-02"), DayOf(utc, jakarta))
}

func TestParseDay(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		d, err := ParseDay("2024-01-31")
		require.NoError(t, err)
		require.Equal(t, Day("2024-01-31"), d)
	})

	t.Run("rejects malformed", func(t *testing.T) {
		for _, raw := range []string{"", "2024-1-1", "01-01-2024", "2024-13-01", "2024-01-32", "yesterday"} {
			_, err := ParseDay(raw)
			require.Error(t, err, "raw=%q", raw)
		}
	})
}

func TestParseClock(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		c, err := ParseClock("18:05")
		require.NoError(t, err)
		require.Equal(t, ClockTime{Hour: 18, Minute: 5}, c)
		require.Equal(t, "18:05", c.String())
	})

	t.Run("rejects malformed", func(t *testing.T) {
		for _, raw := range []string{"", "10", "10:61", "24:00", "-1:00", "ten:00", "10:00:00"} {
			_, err := ParseClock(raw)
			require.Error(t, err, "raw=%q", raw)
		}
	})
}

func TestKey_String(t *testing.T) {
	k := Key{Recipient: 42, Slot: SlotMedicineMorning, Day: "2024-01-01"}
	assert.Equal(t, "nag:42:medicine-morning:2024-01-01", k.String())
}
