package ev3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taoyao-code/cwc-bridge/internal/event"
)

func reply(counter uint16, typ byte, data ...byte) []byte {
	n := 3 + len(data)
	out := []byte{byte(n), byte(n >> 8), byte(counter), byte(counter >> 8), typ}
	return append(out, data...)
}

func TestParseReply(t *testing.T) {
	r, err := ParseReply(reply(0x0102, DirectReply, 1, 2, 3, 4))
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0102), r.Counter)
	assert.True(t, r.OK)
	assert.Equal(t, []byte{1, 2, 3, 4}, r.Data)

	r, err = ParseReply(reply(9, DirectReplyError))
	require.NoError(t, err)
	assert.False(t, r.OK)

	_, err = ParseReply([]byte{0x03, 0x00})
	assert.ErrorIs(t, err, ErrShortFrame)
	_, err = ParseReply(reply(1, 0x80))
	assert.ErrorIs(t, err, ErrBadType)
}

func TestStreamDecoder(t *testing.T) {
	stream := append(reply(1, DirectReply, 0xAA), reply(2, DirectReplyError)...)
	stream = append(stream, reply(3, DirectReply, 1, 2, 3, 4)...)

	d := NewStreamDecoder()
	var got []*Reply
	for _, c := range stream {
		replies, err := d.Feed([]byte{c})
		require.NoError(t, err)
		got = append(got, replies...)
	}
	require.Len(t, got, 3)
	assert.Equal(t, []uint16{1, 2, 3}, []uint16{got[0].Counter, got[1].Counter, got[2].Counter})
	assert.Equal(t, 0, d.Buffered())
}

func TestStreamDecoder_SkipsGarbage(t *testing.T) {
	d := NewStreamDecoder()
	got, err := d.Feed(append([]byte{0xFF, 0xFF}, reply(5, DirectReply, 7)...))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint16(5), got[0].Counter)
}

func TestHandler_ReportsDecodeErrors(t *testing.T) {
	bus := event.NewBus()
	var got []event.Event
	bus.Listen(EventError, func(ev event.Event) { got = append(got, ev) })
	h := NewHandler(bus, "ev3-1", NewPending(0), nil)

	err := h.ProcessBytes(reply(7, 0x80))
	assert.ErrorIs(t, err, ErrBadType)
	assert.Empty(t, got)

	h.Reset()
	require.NoError(t, h.ProcessBytes(reply(8, DirectReplyError)))
	require.Len(t, got, 1)
	assert.Equal(t, "ev3-1", got[0].Source)
}
