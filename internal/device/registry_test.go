package device

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taoyao-code/cwc-bridge/internal/event"
	"github.com/taoyao-code/cwc-bridge/internal/protocol/adapter"
)

type fakeScanner struct {
	kind  Kind
	infos []Info
	err   error
}

func (s *fakeScanner) Kind() Kind { return s.kind }

func (s *fakeScanner) Scan(context.Context) ([]Info, error) { return s.infos, s.err }

func TestRegistry_UpdateAndGet(t *testing.T) {
	bus := event.NewBus()
	updates, cancel := bus.Subscribe(EventDevicesUpdated)
	defer cancel()

	r := NewRegistry(bus, nil)
	r.AddScanner(&fakeScanner{kind: KindSerial, infos: []Info{{ID: "serial:/dev/ttyUSB0", Kind: KindSerial}}})
	r.AddScanner(&fakeScanner{kind: KindBLE, err: errors.New("adapter off")})
	r.AddStatic(Info{ID: "ws:pi", Kind: KindWS, Address: "ws://pi.local:8765"})
	r.RegisterTransport(KindSerial, func(Info) (Link, error) { return newFakeLink(), nil })

	err := r.Update(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ble scan")

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "serial:/dev/ttyUSB0", list[0].ID)
	assert.Equal(t, "ws:pi", list[1].ID)
	ev := <-updates
	infos, ok := event.As[[]Info](ev)
	require.True(t, ok)
	assert.Len(t, infos, 2)

	d1, err := r.Get("serial:/dev/ttyUSB0")
	require.NoError(t, err)
	d2, err := r.Get("serial:/dev/ttyUSB0")
	require.NoError(t, err)
	assert.Same(t, d1, d2)

	_, err = r.Get("ws:pi")
	assert.ErrorIs(t, err, ErrNoTransport)
	_, err = r.Get("nope")
	assert.ErrorIs(t, err, ErrUnknownDevice)
}

func TestRegistry_KeepsConnectedDevices(t *testing.T) {
	scanner := &fakeScanner{kind: KindSerial, infos: []Info{{ID: "a", Kind: KindSerial}}}
	r := NewRegistry(event.NewBus(), nil)
	r.AddScanner(scanner)
	r.RegisterTransport(KindSerial, func(Info) (Link, error) { return newFakeLink(), nil })
	require.NoError(t, r.Update(context.Background()))

	d, err := r.Get("a")
	require.NoError(t, err)
	require.NoError(t, d.Connect(context.Background()))

	scanner.infos = nil
	require.NoError(t, r.Update(context.Background()))
	_, ok := r.Lookup("a")
	assert.True(t, ok)
	assert.Len(t, r.Connected(), 1)

	r.CloseAll()
	assert.Empty(t, r.Connected())
}

func TestRegistry_RebuildsOnInfoChange(t *testing.T) {
	base := Info{ID: "ble:sphero", Kind: KindBLE, Address: "AA:BB", Family: FamilySphero, RSSI: -60}
	tests := []struct {
		name    string
		next    Info
		connect bool
		rebuild bool
	}{
		{"地址变化且已断开时重建", Info{ID: "ble:sphero", Kind: KindBLE, Address: "CC:DD", Family: FamilySphero}, false, true},
		{"仅 RSSI 与名称变化不重建", Info{ID: "ble:sphero", Kind: KindBLE, Address: "AA:BB", Family: FamilySphero, Name: "BB-8", RSSI: -40}, false, false},
		{"连接中的设备不重建", Info{ID: "ble:sphero", Kind: KindBLE, Address: "CC:DD", Family: FamilySphero}, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scanner := &fakeScanner{kind: KindBLE, infos: []Info{base}}
			var addrs []string
			r := NewRegistry(event.NewBus(), nil)
			r.AddScanner(scanner)
			r.RegisterTransport(KindBLE, func(info Info) (Link, error) {
				addrs = append(addrs, info.Address)
				return newFakeLink(), nil
			})
			require.NoError(t, r.Update(context.Background()))
			d1, err := r.Get(base.ID)
			require.NoError(t, err)
			if tt.connect {
				require.NoError(t, d1.Connect(context.Background()))
				defer r.CloseAll()
			}

			scanner.infos = []Info{tt.next}
			require.NoError(t, r.Update(context.Background()))
			d2, err := r.Get(base.ID)
			require.NoError(t, err)

			if tt.rebuild {
				assert.NotSame(t, d1, d2)
				assert.Equal(t, tt.next.Address, d2.Info().Address)
				assert.Equal(t, []string{base.Address, tt.next.Address}, addrs)
			} else {
				assert.Same(t, d1, d2)
				assert.Equal(t, []string{base.Address}, addrs)
			}
		})
	}
}

func TestMux_DecidesByPrefix(t *testing.T) {
	var spheroGot, mbGot int
	sphero := &sniffer{prefix: 0xFF, second: 0xFE, hits: &spheroGot}
	mb := &sniffer{prefix: 0xFF, second: 0x55, hits: &mbGot}
	m := NewMux(nil, sphero, mb)

	var decided adapter.Adapter
	m.OnDecide(func(a adapter.Adapter) { decided = a })

	// 无法识别时投递全部
	require.NoError(t, m.ProcessBytes([]byte{0x01}))
	assert.Equal(t, 1, spheroGot)
	assert.Equal(t, 1, mbGot)
	assert.Nil(t, m.Decided())

	require.NoError(t, m.ProcessBytes([]byte{0xFF, 0x55, 0x0D, 0x0A}))
	require.NoError(t, m.ProcessBytes([]byte{0x00}))
	assert.Equal(t, 1, spheroGot)
	assert.Equal(t, 3, mbGot)
	assert.Same(t, mb, decided)

	m.Reset()
	assert.Nil(t, m.Decided())
}

type sniffer struct {
	prefix, second byte
	hits           *int
}

func (s *sniffer) Sniff(p []byte) bool {
	return len(p) >= 2 && p[0] == s.prefix && p[1] == s.second
}

func (s *sniffer) ProcessBytes([]byte) error { *s.hits++; return nil }

func (s *sniffer) Reset() {}

func TestGuessFamily(t *testing.T) {
	tests := []struct {
		name, family, variant string
	}{
		{"Sphero-RGB", FamilySphero, "classic"},
		{"SK-1A2B", FamilySphero, "v1"},
		{"BB-8C3D", FamilySphero, "v1"},
		{"Makeblock_LE001b10", FamilyMBot, ""},
		{"Ranger-01", FamilyRanger, ""},
		{"EV3", FamilyEV3, ""},
		{"unknown", "", ""},
	}
	for _, tt := range tests {
		f, v := GuessFamily(tt.name)
		assert.Equal(t, tt.family, f, tt.name)
		assert.Equal(t, tt.variant, v, tt.name)
	}
}
