package uvalue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDuration(t *testing.T) {
	cases := []struct {
		name string
		d    time.Duration
		want string
	}{
		{"zero", 0, "PT0S"},
		{"whole seconds", 90 * time.Second, "PT90S"},
		{"sub-second fraction", 1500 * time.Millisecond, "PT1.5S"},
		{"nanosecond precision", time.Second + 123456789*time.Nanosecond, "PT1.123456789S"},
		{"negative", -90 * time.Second, "-PT90S"},
		{"negative fraction", -1500 * time.Millisecond, "-PT1.5S"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, EncodeDuration(tc.d))
		})
	}
}

func TestParseDuration(t *testing.T) {
	cases := []struct {
		name string
		s    string
		want time.Duration
	}{
		{"zero", "PT0S", 0},
		{"whole seconds", "PT90S", 90 * time.Second},
		{"fraction", "PT1.5S", 1500 * time.Millisecond},
		{"nanos", "PT1.123456789S", time.Second + 123456789*time.Nanosecond},
		{"negative", "-PT90S", -90 * time.Second},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseDuration(tc.s)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseDurationMalformed(t *testing.T) {
	for _, s := range []string{"", "90S", "PT90", "PTS", "PT.S", "garbage"} {
		_, err := ParseDuration(s)
		assert.Error(t, err, s)
	}
}

func TestDurationRoundTrip(t *testing.T) {
	for _, d := range []time.Duration{
		0,
		time.Nanosecond,
		time.Second,
		24 * time.Hour,
		-24 * time.Hour,
		time.Second + 1,
		-(time.Second + 1),
	} {
		s := EncodeDuration(d)
		got, err := ParseDuration(s)
		require.NoError(t, err)
		assert.Equal(t, d, got, "round trip of %s via %q", d, s)
	}
}
