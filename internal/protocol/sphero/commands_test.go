package sphero

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taoyao-code/cwc-bridge/internal/runner"
)

func TestParseCommand(t *testing.T) {
	cmd, err := ParseCommand(NameSetRGB, json.RawMessage(`{"red":255,"green":0,"blue":0}`))
	require.NoError(t, err)
	assert.Equal(t, SetRGBCmd{Red: 255}, cmd)

	cmd, err = ParseCommand(NameGetLocation, nil)
	require.NoError(t, err)
	assert.Equal(t, NameGetLocation, cmd.CommandName())

	_, err = ParseCommand("fly", nil)
	assert.ErrorIs(t, err, runner.ErrUnknownCommand)

	_, err = ParseCommand(NameRoll, json.RawMessage(`{"speed":"fast"}`))
	assert.ErrorIs(t, err, runner.ErrInvalidValue)
}

func TestProfile_Execute(t *testing.T) {
	rec := &recorder{}
	p := NewProfile(NewAPI(rec))
	ctx := context.Background()

	cmd, err := p.ParseCommand(NameRoll, json.RawMessage(`{"speed":0,"heading":180}`))
	require.NoError(t, err)
	require.NoError(t, p.Execute(ctx, cmd))
	assert.Equal(t, []byte{255, 254, 2, 48, 0, 5, 0, 0, 180, 1, 19}, rec.last(t))

	cmd, err = p.ParseCommand(NameStop, nil)
	require.NoError(t, err)
	require.NoError(t, p.Execute(ctx, cmd))
	assert.Equal(t, byte(0), rec.last(t)[6], "speed")
	assert.Equal(t, byte(RollStop), rec.last(t)[9], "state")

	cmd, err = p.ParseCommand(NameSetCollision, nil)
	require.NoError(t, err)
	require.NoError(t, p.Execute(ctx, cmd))
	assert.Equal(t, byte(0x01), rec.last(t)[6], "default method")
}
