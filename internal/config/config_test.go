package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("PORT", "")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, 10.0, cfg.AIDailyBudget)
	assert.False(t, cfg.RedisEnabled())
}

func TestFromEnvErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "unknown backend",
			env:  map[string]string{"STORE_BACKEND": "sqlite"},
			want: "StoreBackend",
		},
		{
			name: "mongo needs a uri",
			env:  map[string]string{"STORE_BACKEND": "mongo", "MONGO_URI": ""},
			want: "MongoURI",
		},
		{
			name: "redis needs an address",
			env:  map[string]string{"STORE_BACKEND": "redis", "REDIS_ADDR": ""},
			want: "RedisAddr",
		},
		{
			name: "bad timeout",
			env:  map[string]string{"STORE_BACKEND": "memory", "STORE_TIMEOUT": "soon"},
			want: "STORE_TIMEOUT",
		},
		{
			name: "non-numeric port",
			env:  map[string]string{"STORE_BACKEND": "memory", "PORT": "http"},
			want: "Port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
