package pagination

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClamp(t *testing.T) {
	cases := []struct {
		name  string
		input int
		want  int
	}{
		{"zero uses default", 0, DefaultLimit},
		{"negative uses default", -5, DefaultLimit},
		{"within range passes through", 15, 15},
		{"above max is capped", 1000, MaxLimit},
		{"exactly max", MaxLimit, MaxLimit},
		{"exactly one", 1, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Clamp(tc.input))
		})
	}
}
