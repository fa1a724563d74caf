package sshutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jholliman/vantage/internal/profile"
)

func TestStripMatchBlocks(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "no match directive",
			input: "Host web1\n  Port 2222\n",
			want:  "Host web1\n  Port 2222\n",
		},
		{
			name:  "match directive drops rest",
			input: "Host web1\n  Port 2222\nMatch host *.internal\n  User admin\n",
			want:  "Host web1\n  Port 2222",
		},
		{
			name:  "case insensitive",
			input: "match all\nHost web1\n",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(stripMatchBlocks([]byte(tt.input))))
		})
	}
}

func TestResolveDefaultsExplicitValuesWin(t *testing.T) {
	p := profile.Profile{Hostname: "web1", Username: "deploy", Port: 2222, Password: "pw"}
	resolved := ResolveDefaults(p)

	assert.Equal(t, "deploy", resolved.Username)
	assert.Equal(t, 2222, resolved.Port)
}

func TestResolveDefaultsFillsPort(t *testing.T) {
	// Without an ssh_config entry the port falls back to 22 via Normalize.
	p := profile.Profile{Hostname: "host-not-in-config-xyz", Username: "deploy", Password: "pw"}
	resolved := ResolveDefaults(p)

	assert.Equal(t, 22, resolved.Port)
	assert.NotEmpty(t, resolved.DisplayName)
}

func TestDialOptionsDefaults(t *testing.T) {
	opts := DialOptions{}.withDefaults()
	assert.Equal(t, DefaultConnectTimeout, opts.ConnectTimeout)
	assert.Equal(t, DefaultBannerTimeout, opts.BannerTimeout)

	custom := DialOptions{ConnectTimeout: 1, BannerTimeout: 2}.withDefaults()
	assert.EqualValues(t, 1, custom.ConnectTimeout)
	assert.EqualValues(t, 2, custom.BannerTimeout)
}
