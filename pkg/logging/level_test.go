package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]struct {
		want Level
		ok   bool
	}{
		"debug": {LevelDebug, true},
		"info":  {LevelInfo, true},
		"InFo":  {LevelInfo, true},
		"INFO":  {LevelInfo, true},
		"warn":  {LevelWarn, true},
		"error": {LevelError, true},
		"":      {LevelInfo, true},
		"LOUD":  {"", false},
	}

	for in, tc := range cases {
		t.Run(in, func(t *testing.T) {
			got, err := ParseLevel(in)
			if !tc.ok {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestLevelValidate(t *testing.T) {
	for _, in := range []string{"", "debug", "InFo", "INFO", "warn", "error"} {
		require.NoError(t, Level(in).Validate(), in)
	}
	require.Error(t, Level("LOUD").Validate())
}

func TestLevelToZapCoreLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"info":  zapcore.InfoLevel,
		"InFo":  zapcore.InfoLevel,
		"INFO":  zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
		"":      zapcore.InfoLevel,
	}

	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			got, err := Level(in).toZapCoreLevel()
			require.NoError(t, err)
			require.Equal(t, want, got)
		})
	}
}

func TestConfigToZapCoreLevel(t *testing.T) {
	t.Run("debug=true overrides any level value", func(t *testing.T) {
		for _, in := range []string{"", "info", "warn", "error", "debug"} {
			c := &Config{Debug: true, Level: Level(in)}

			got, err := c.toZapCoreLevel()
			require.NoError(t, err)
			require.Equal(t, zapcore.DebugLevel, got)
		}
	})

	t.Run("debug=false respects the level value", func(t *testing.T) {
		cases := map[string]zapcore.Level{
			"":      zapcore.InfoLevel,
			"info":  zapcore.InfoLevel,
			"warn":  zapcore.WarnLevel,
			"error": zapcore.ErrorLevel,
			"debug": zapcore.DebugLevel,
		}

		for in, want := range cases {
			c := &Config{Level: Level(in)}

			got, err := c.toZapCoreLevel()
			require.NoError(t, err)
			require.Equal(t, want, got)
		}
	})
}
