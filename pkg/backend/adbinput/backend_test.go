package adbinput_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/nkas/internal/testutils"
	"github.com/aretw0/nkas/pkg/backend/adbinput"
	"github.com/aretw0/nkas/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFocusedPackage(t *testing.T) {
	tests := []struct {
		name string
		dump string
		want string
	}{
		{
			name: "current focus",
			dump: "  mCurrentFocus=Window{3c1f2a8 u0 com.proximabeta.nikke/com.shiftup.nk.MainActivity}\n",
			want: "com.proximabeta.nikke",
		},
		{
			name: "focused app fallback",
			dump: "  mCurrentFocus=null\n  mFocusedApp=ActivityRecord{8d2 u0 com.android.launcher3/.Launcher t1}\n",
			want: "com.android.launcher3",
		},
		{
			name: "bare window fallback",
			dump: "Window #3 Window{77 u0 com.example.game/com.example.Main}:\n",
			want: "com.example.game",
		},
		{
			name: "first pattern wins",
			dump: "mFocusedApp=ActivityRecord{1 u0 com.other/.A t1}\nmCurrentFocus=Window{2 u0 com.first/.B}\n",
			want: "com.first",
		},
		{name: "no match", dump: "mCurrentFocus=null\n", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, adbinput.ParseFocusedPackage(tt.dump))
		})
	}
}

func TestBackend_Gestures(t *testing.T) {
	tr := &testutils.FakeTransport{}
	b := adbinput.New(tr)
	ctx := context.Background()

	require.NoError(t, b.Tap(ctx, domain.Pt(250, 615)))
	require.NoError(t, b.Swipe(ctx, domain.Pt(590, 360), domain.Pt(300, 360), 0))
	require.NoError(t, b.Drag(ctx, domain.Pt(10, 10), domain.Pt(10, 400), 1500*time.Millisecond))

	assert.Equal(t, []string{
		"shell input tap 250 615",
		"shell input swipe 590 360 300 360 200",
		"shell input swipe 10 10 10 400 1500",
	}, tr.Commands())
}

func TestBackend_StartAppErrorsAreFatal(t *testing.T) {
	tr := &testutils.FakeTransport{Script: []testutils.Step{{
		Out: []byte("Starting: Intent { cmp=com.x/.Main }\nError type 3\nError: Activity class {com.x/.Main} does not exist.\n"),
	}}}
	b := adbinput.New(tr)

	err := b.StartApp(context.Background(), "com.x", ".Main")

	require.Error(t, err)
	assert.Equal(t, domain.Fatal, domain.Classify(err))
	assert.Equal(t, []string{"shell am start -n com.x/.Main"}, tr.Commands())
}

func TestBackend_AppQueries(t *testing.T) {
	tr := &testutils.FakeTransport{Handler: func(op string, argv []string) ([]byte, error) {
		if argv[0] == "dumpsys" {
			return []byte("mCurrentFocus=Window{1 u0 com.proximabeta.nikke/com.shiftup.nk.MainActivity}"), nil
		}
		return nil, nil
	}}
	b := adbinput.New(tr)
	ctx := context.Background()

	pkg, err := b.CurrentApp(ctx)
	require.NoError(t, err)
	assert.Equal(t, "com.proximabeta.nikke", pkg)
	assert.Equal(t, domain.KindQuery, tr.Calls[0].Kind)

	require.NoError(t, b.StopApp(ctx, "com.proximabeta.nikke"))
	assert.Equal(t, "shell am force-stop com.proximabeta.nikke", tr.Commands()[1])
}
