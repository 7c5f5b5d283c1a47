package confirm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumehealth/carebot/internal/care"
	"github.com/lumehealth/carebot/internal/errors"
)

type stubResolver struct {
	id care.ChatID
	ok bool
}

func (s stubResolver) Resolve(context.Context) (care.ChatID, bool) { return s.id, s.ok }

type recordingCanceller struct {
	calls   []care.Key
	removed int
}

func (c *recordingCanceller) Cancel(recipient care.ChatID, slot care.Slot, day care.Day) int {
	c.calls = append(c.calls, care.Key{Recipient: recipient, Slot: slot, Day: day})
	return c.removed
}

func TestParseToken(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		token := NewToken(care.SlotMedicineMorning, care.Day("2024-01-01"))
		assert.Equal(t, "taken:medicine-morning:2024-01-01", token.String())

		parsed, err := ParseToken(token.String())
		require.NoError(t, err)
		assert.Equal(t, token, parsed)
	})

	t.Run("rejects malformed payloads", func(t *testing.T) {
		for _, raw := range []string{
			"",
			"taken",
			"taken:medicine-morning",
			"done:medicine-morning:2024-01-01",
			"taken:nap:2024-01-01",
			"taken:medicine-morning:01-01-2024",
			"taken:medicine-morning:2024-01-01:extra",
		} {
			_, err := ParseToken(raw)
			require.Error(t, err, "raw=%q", raw)
			assert.True(t, errors.IsCategory(err, errors.CategoryMalformedInput), "raw=%q", raw)
		}
	})
}

func TestConfirm_AcceptedCancelsExactKey(t *testing.T) {
	canceller := &recordingCanceller{removed: 1}
	h := NewHandler(stubResolver{id: 42, ok: true}, canceller, nil)

	removed, err := h.Confirm(testContext(t), 42, NewToken(care.SlotMedicineMorning, "2024-01-01"))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	require.Len(t, canceller.calls, 1)
	assert.Equal(t, care.Key{Recipient: 42, Slot: care.SlotMedicineMorning, Day: "2024-01-01"}, canceller.calls[0])
}

func TestConfirm_StaleStillAcknowledged(t *testing.T) {
	canceller := &recordingCanceller{removed: 0}
	h := NewHandler(stubResolver{id: 42, ok: true}, canceller, nil)

	removed, err := h.Confirm(testContext(t), 42, NewToken(care.SlotMedicineEvening, "2024-01-01"))
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
	assert.Len(t, canceller.calls, 1, "cancel is still attempted")
}

func TestConfirm_NotLinkedRejected(t *testing.T) {
	canceller := &recordingCanceller{}
	h := NewHandler(stubResolver{ok: false}, canceller, nil)

	_, err := h.Confirm(testContext(t), 42, NewToken(care.SlotMedicineMorning, "2024-01-01"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNotLinked))
	assert.Empty(t, canceller.calls, "no state change on rejection")
}

func TestConfirm_UnauthorizedSenderRejected(t *testing.T) {
	canceller := &recordingCanceller{removed: 1}
	h := NewHandler(stubResolver{id: 42, ok: true}, canceller, nil)

	_, err := h.Confirm(testContext(t), 99, NewToken(care.SlotMedicineMorning, "2024-01-01"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryUnauthorized))
	assert.Empty(t, canceller.calls, "no state change on rejection")
}

func TestHandleCallback(t *testing.T) {
	t.Run("valid payload", func(t *testing.T) {
		canceller := &recordingCanceller{removed: 1}
		h := NewHandler(stubResolver{id: 42, ok: true}, canceller, nil)

		token, removed, err := h.HandleCallback(testContext(t), 42, "taken:medicine-evening:2024-01-01")
		require.NoError(t, err)
		assert.Equal(t, 1, removed)
		assert.Equal(t, NewToken(care.SlotMedicineEvening, "2024-01-01"), token)
	})

	t.Run("malformed payload", func(t *testing.T) {
		canceller := &recordingCanceller{}
		h := NewHandler(stubResolver{id: 42, ok: true}, canceller, nil)

		_, _, err := h.HandleCallback(testContext(t), 42, "taken:???")
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryMalformedInput))
		assert.Empty(t, canceller.calls)
	})
}
