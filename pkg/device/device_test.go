package device_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/aretw0/nkas/internal/testutils"
	"github.com/aretw0/nkas/pkg/app"
	"github.com/aretw0/nkas/pkg/backend/adbinput"
	"github.com/aretw0/nkas/pkg/control"
	"github.com/aretw0/nkas/pkg/device"
	"github.com/aretw0/nkas/pkg/domain"
	"github.com/aretw0/nkas/pkg/poll"
	"github.com/aretw0/nkas/pkg/retry"
	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngOf(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func rawOf(w, h int, format uint32, colorspace bool, px [4]byte) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, uint32(w))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(h))
	_ = binary.Write(&buf, binary.LittleEndian, format)
	if colorspace {
		_ = binary.Write(&buf, binary.LittleEndian, uint32(1))
	}
	for i := 0; i < w*h; i++ {
		buf.Write(px[:])
	}
	return buf.Bytes()
}

func TestDecodePNG(t *testing.T) {
	f, err := device.DecodePNG(pngOf(t, 4, 3, color.NRGBA{R: 10, G: 20, B: 30, A: 255}))
	require.NoError(t, err)
	assert.Equal(t, 4, f.Width)
	assert.Equal(t, 3, f.Height)
	r, g, b := f.At(3, 2)
	assert.Equal(t, []uint8{10, 20, 30}, []uint8{r, g, b})
}

func TestDecodePNG_Truncated(t *testing.T) {
	data := pngOf(t, 4, 3, color.NRGBA{A: 255})

	for _, in := range [][]byte{nil, data[:len(data)/2]} {
		_, err := device.DecodePNG(in)
		require.ErrorIs(t, err, domain.ErrImageTruncated)
		assert.Equal(t, domain.Protocol, domain.Classify(err))
	}
}

func TestEncodePNG_RoundTrip(t *testing.T) {
	f := domain.NewFrame(3, 2)
	f.Set(2, 1, 7, 8, 9)

	var buf bytes.Buffer
	require.NoError(t, device.EncodePNG(&buf, f))
	got, err := device.DecodePNG(buf.Bytes())

	require.NoError(t, err)
	assert.Equal(t, f, got)
}

func TestDecodeRaw(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want [3]uint8
	}{
		{"rgba legacy header", rawOf(2, 2, 1, false, [4]byte{1, 2, 3, 255}), [3]uint8{1, 2, 3}},
		{"rgba with colorspace", rawOf(2, 2, 1, true, [4]byte{1, 2, 3, 255}), [3]uint8{1, 2, 3}},
		{"bgra", rawOf(2, 2, 5, true, [4]byte{1, 2, 3, 255}), [3]uint8{3, 2, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := device.DecodeRaw(tt.data)
			require.NoError(t, err)
			r, g, b := f.At(1, 1)
			assert.Equal(t, tt.want, [3]uint8{r, g, b})
		})
	}
}

func TestDecodeRaw_Truncated(t *testing.T) {
	full := rawOf(2, 2, 1, true, [4]byte{})

	for _, in := range [][]byte{nil, full[:8], full[:20]} {
		_, err := device.DecodeRaw(in)
		require.ErrorIs(t, err, domain.ErrImageTruncated)
	}
}

type fixture struct {
	transport *testutils.FakeTransport
	clock     *testutils.FakeClock
	device    *device.Device
}

func newFixture(t *testing.T, opts ...device.Option) *fixture {
	t.Helper()
	f := &fixture{transport: &testutils.FakeTransport{}, clock: testutils.NewFakeClock()}
	policy := retry.New(
		retry.WithReconnect(f.transport.Reconnect),
		retry.WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
	)
	method := func() domain.ControlMethod { return domain.MethodADB }
	backend := adbinput.New(f.transport)
	dispatcher := control.New(method, policy,
		control.WithBackend(domain.MethodADB, backend),
		control.WithClock(f.clock),
	)
	lifecycle := app.New("com.proximabeta.nikke", "", method, policy, dispatcher,
		app.WithBackend(domain.MethodADB, backend),
		app.WithClock(f.clock),
	)
	f.device = device.New(f.transport, dispatcher, lifecycle, policy, opts...)
	return f
}

func TestDevice_ScreenshotPNG(t *testing.T) {
	f := newFixture(t, device.WithResolution(4, 3))
	f.transport.Script = []testutils.Step{{Out: pngOf(t, 4, 3, color.NRGBA{R: 200, A: 255})}}

	frame, err := f.device.Screenshot(context.Background())

	require.NoError(t, err)
	assert.Same(t, frame, f.device.Image())
	assert.Equal(t, []string{"exec-out screencap -p"}, f.transport.Commands())
}

func TestDevice_ScreenshotRaw(t *testing.T) {
	f := newFixture(t, device.WithScreenshotMethod(device.ScreenshotRaw), device.WithResolution(2, 2))
	f.transport.Script = []testutils.Step{{Out: rawOf(2, 2, 1, true, [4]byte{9, 9, 9, 255})}}

	_, err := f.device.Screenshot(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"exec-out screencap"}, f.transport.Commands())
}

func TestDevice_ScreenshotRetriesTruncatedWithoutReconnect(t *testing.T) {
	f := newFixture(t, device.WithResolution(4, 3))
	data := pngOf(t, 4, 3, color.NRGBA{A: 255})
	f.transport.Script = []testutils.Step{{Out: data[:10]}, {Out: data}}

	_, err := f.device.Screenshot(context.Background())

	require.NoError(t, err)
	assert.Len(t, f.transport.Calls, 2)
	assert.Zero(t, f.transport.Reconnects)
}

func TestDevice_ScreenshotResolutionMismatchIsFatal(t *testing.T) {
	f := newFixture(t)
	f.transport.Script = []testutils.Step{{Out: pngOf(t, 4, 3, color.NRGBA{A: 255})}}

	_, err := f.device.Screenshot(context.Background())

	require.ErrorIs(t, err, domain.ErrHumanTakeover)
	require.ErrorIs(t, err, domain.ErrResolution)
	assert.Len(t, f.transport.Calls, 1)
	assert.Nil(t, f.device.Image())
}

func TestDevice_ScreenshotTransientReconnects(t *testing.T) {
	f := newFixture(t, device.WithResolution(4, 3))
	f.transport.Script = []testutils.Step{
		{Err: domain.NewFailure(domain.Transient, "exec-out", errors.New("device offline"))},
		{Out: pngOf(t, 4, 3, color.NRGBA{A: 255})},
	}

	_, err := f.device.Screenshot(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, f.transport.Reconnects)
}

func TestDevice_InputAndApp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.device.ClickCoordinate(ctx, 1, 2))
	require.NoError(t, f.device.Swipe(ctx, domain.Pt(0, 0), domain.Pt(0, 100)))
	require.NoError(t, f.device.Drag(ctx, domain.Pt(0, 0), domain.Pt(0, 100), time.Second))
	require.NoError(t, f.device.AppStop(ctx))

	assert.Equal(t, []string{
		"shell input tap 1 2",
		"shell input swipe 0 0 0 100 200",
		"shell input swipe 0 0 0 100 1000",
		"shell am force-stop com.proximabeta.nikke",
	}, f.transport.Commands())
}

func TestDevice_ObserverDrivesPollLoop(t *testing.T) {
	f := newFixture(t, device.WithResolution(1, 1))
	red := pngOf(t, 1, 1, color.NRGBA{R: 255, A: 255})
	f.transport.Handler = func(op string, argv []string) ([]byte, error) {
		if op == "exec-out" {
			return red, nil
		}
		return nil, nil
	}
	isRed := func(fr *domain.Frame) bool {
		r, _, _ := fr.At(0, 0)
		return r == 255
	}

	res, err := poll.Loop[*domain.Frame]{
		Name:     "wait_red",
		Observe:  f.device.Observer(),
		Terminal: isRed,
		Clock:    f.clock,
	}.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, poll.ReasonConfirmed, res.Reason)
}
