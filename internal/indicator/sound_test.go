package indicator

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rbright/presto/internal/config"
	"github.com/stretchr/testify/require"
)

func TestCueSamplesPresent(t *testing.T) {
	require.NotEmpty(t, cueSamples(cueComplete))
	require.NotEmpty(t, cueSamples(cueError))
	require.Nil(t, cueSamples(cueKind(99)))
}

func TestCuePathOnlyOverridesCompleteCue(t *testing.T) {
	cfg := config.IndicatorConfig{SoundFile: "/usr/share/sounds/pop.wav"}
	require.Equal(t, "/usr/share/sounds/pop.wav", cuePath(cueComplete, cfg))
	require.Empty(t, cuePath(cueError, cfg))
}

func TestExpandUserPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	require.Empty(t, expandUserPath("  "))
	require.Equal(t, home, expandUserPath("~"))
	require.Equal(t, filepath.Join(home, "sounds", "pop.wav"), expandUserPath("~/sounds/pop.wav"))
	require.Equal(t, "/abs/pop.wav", expandUserPath("/abs/pop.wav"))
}

func TestSynthesizeToneDuration(t *testing.T) {
	got := synthesizeTone(toneSpec{frequencyHz: 440, duration: 100 * time.Millisecond, volume: 0.2})
	want := samplesForDuration(100 * time.Millisecond)
	require.Len(t, got, want)
}

func TestSynthesizeToneInvalidSpecReturnsEmpty(t *testing.T) {
	require.Empty(t, synthesizeTone(toneSpec{frequencyHz: 0, duration: 100 * time.Millisecond, volume: 0.2}))
	require.Empty(t, synthesizeTone(toneSpec{frequencyHz: 440, duration: 0, volume: 0.2}))
	require.Empty(t, synthesizeTone(toneSpec{frequencyHz: 440, duration: 100 * time.Millisecond, volume: 0}))
}

func TestSynthesizeCueInsertsGaps(t *testing.T) {
	parts := []toneSpec{
		{frequencyHz: 440, duration: 50 * time.Millisecond, volume: 0.2},
		{frequencyHz: 660, duration: 50 * time.Millisecond, volume: 0.2},
	}
	want := 2*samplesForDuration(50*time.Millisecond) + samplesForDuration(22*time.Millisecond)
	require.Len(t, synthesizeCue(parts), want)
	require.Nil(t, synthesizeCue(nil))
}

func TestSamplesForDuration(t *testing.T) {
	require.Equal(t, 0, samplesForDuration(0))
	require.Greater(t, samplesForDuration(25*time.Millisecond), 0)
}

func TestEmitCueRespectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := emitCue(ctx, cueComplete, config.IndicatorConfig{})
	require.Error(t, err)
	require.True(t, errors.Is(err, context.Canceled))
}
