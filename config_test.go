package main

import (
	"testing"
	"time"

	"github.com/morikuni/failure/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigResolve(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "api key from env", env: "secret", mutate: func(c *Config) {}},
		{name: "feed without key", mutate: func(c *Config) { c.GtfsRtURL = "https://feeds.example.com/tripupdates" }},
		{name: "no key no feed", mutate: func(c *Config) {}, wantErr: true},
		{name: "two feeds", env: "secret", mutate: func(c *Config) {
			c.SiriJSONURL = "https://feeds.example.com/sm.json"
			c.SiriXMLURL = "https://feeds.example.com/sm.xml"
		}, wantErr: true},
		{name: "bad feed url", mutate: func(c *Config) { c.SiriXMLURL = "not a url" }, wantErr: true},
		{name: "port out of range", env: "secret", mutate: func(c *Config) { c.Port = 70000 }, wantErr: true},
		{name: "refresh too short", env: "secret", mutate: func(c *Config) { c.RefreshInterval = time.Millisecond }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GEMINI_API_KEY", tt.env)
			t.Setenv("API_KEY", "")

			c := defaultConfig()
			tt.mutate(c)
			err := c.resolve()
			if tt.wantErr {
				assert.True(t, failure.Is(err, InvalidConfig), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.env, c.APIKey)
		})
	}
}

func TestConfigResolve_FallbackKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "fallback")

	c := defaultConfig()
	require.NoError(t, c.resolve())
	assert.Equal(t, "fallback", c.APIKey)
}
