package tcp

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taoyao-code/cwc-bridge/internal/device"
)

func TestLink_EchoServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	done := make(chan struct{})
	go func() {
		defer close(done)
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		_, _ = io.Copy(c, c)
	}()

	l := NewLink(ln.Addr().String(), Config{}, zap.NewNop())
	ctx := context.Background()
	require.NoError(t, l.Open(ctx))
	require.NoError(t, l.Write(ctx, []byte{0xFF, 0xFE, 0x00}))

	var got []byte
	deadline := time.After(2 * time.Second)
	for len(got) < 3 {
		select {
		case p := <-l.Reads():
			got = append(got, p...)
		case <-deadline:
			t.Fatal("no echo")
		}
	}
	assert.Equal(t, []byte{0xFF, 0xFE, 0x00}, got)
	require.NoError(t, l.Close())
	<-done
}

func TestLink_DialRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	l := NewLink(addr, Config{DialTimeout: 500 * time.Millisecond}, nil)
	assert.Error(t, l.Open(context.Background()))
}

func TestScanner(t *testing.T) {
	s := NewScanner(device.Info{Name: "Makeblock-ESP", Address: "10.0.0.5:2000"})
	infos, err := s.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "tcp:10.0.0.5:2000", infos[0].ID)
	assert.Equal(t, device.FamilyMBot, infos[0].Family)
	assert.Equal(t, device.KindTCP, s.Kind())
}
