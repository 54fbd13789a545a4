package envloader

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_StringFields(t *testing.T) {
	type Config struct {
		Port     string `env:"PORT" envDefault:"3000"`
		Host     string `env:"MYSQL_HOST" envDefault:"localhost"`
		LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	}

	config := &Config{}
	err := Load(config)
	require.NoError(t, err)

	assert.Equal(t, "3000", config.Port)
	assert.Equal(t, "localhost", config.Host)
	assert.Equal(t, "info", config.LogLevel)

	t.Setenv("PORT", "9090")
	t.Setenv("MYSQL_HOST", "127.0.0.1")
	t.Setenv("LOG_LEVEL", "debug")

	config2 := &Config{}
	err = Load(config2)
	require.NoError(t, err)

	assert.Equal(t, "9090", config2.Port)
	assert.Equal(t, "127.0.0.1", config2.Host)
	assert.Equal(t, "debug", config2.LogLevel)
}

func TestLoad_NumericAndBoolFields(t *testing.T) {
	type Config struct {
		Port    int    `env:"PORT" envDefault:"3000"`
		MaxOpen int32  `env:"MYSQL_MAX_OPEN_CONNS" envDefault:"10"`
		Retries int64  `env:"REDIS_MAX_RETRIES" envDefault:"5"`
		MaxSize uint64 `env:"MAX_SIZE" envDefault:"1048576"`
		UseTLS  bool   `env:"REDIS_TLS" envDefault:"false"`
	}

	config := &Config{}
	err := Load(config)
	require.NoError(t, err)

	assert.Equal(t, 3000, config.Port)
	assert.Equal(t, int32(10), config.MaxOpen)
	assert.Equal(t, int64(5), config.Retries)
	assert.Equal(t, uint64(1048576), config.MaxSize)
	assert.False(t, config.UseTLS)

	t.Setenv("REDIS_TLS", "TRUE")
	config2 := &Config{}
	require.NoError(t, Load(config2))
	assert.True(t, config2.UseTLS)
}

func TestLoad_DurationFields(t *testing.T) {
	type Config struct {
		Timeout  time.Duration `env:"REDIS_DISCOVERY_TIMEOUT" envDefault:"90s"`
		Interval time.Duration `env:"REDIS_STABILITY_INTERVAL" envDefault:"500ms"`
	}

	config := &Config{}
	require.NoError(t, Load(config))
	assert.Equal(t, 90*time.Second, config.Timeout)
	assert.Equal(t, 500*time.Millisecond, config.Interval)

	t.Setenv("REDIS_DISCOVERY_TIMEOUT", "2m")
	config2 := &Config{}
	require.NoError(t, Load(config2))
	assert.Equal(t, 2*time.Minute, config2.Timeout)

	t.Run("should fail on malformed duration", func(t *testing.T) {
		t.Setenv("REDIS_DISCOVERY_TIMEOUT", "ninety seconds")
		err := Load(&Config{})
		require.Error(t, err)

		var fieldErr *FieldError
		require.ErrorAs(t, err, &fieldErr)
		assert.Equal(t, "REDIS_DISCOVERY_TIMEOUT", fieldErr.EnvVar)
	})
}

func TestLoad_SliceFields(t *testing.T) {
	type Config struct {
		Nodes []string `env:"REDIS_CLUSTER_NODES" envDefault:"127.0.0.1:6379"`
	}

	config := &Config{}
	require.NoError(t, Load(config))
	assert.Equal(t, []string{"127.0.0.1:6379"}, config.Nodes)

	t.Setenv("REDIS_CLUSTER_NODES", "node1:7000, node2:7001 ,node3:7002,")
	config2 := &Config{}
	require.NoError(t, Load(config2))
	assert.Equal(t, []string{"node1:7000", "node2:7001", "node3:7002"}, config2.Nodes)
}

func TestLoad_NestedStructs(t *testing.T) {
	type SQLConfig struct {
		Host string `env:"MYSQL_HOST" envDefault:"localhost"`
	}
	type AppConfig struct {
		SQL     SQLConfig
		Pointer *SQLConfig
	}

	config := &AppConfig{}
	require.NoError(t, Load(config))

	assert.Equal(t, "localhost", config.SQL.Host)
	require.NotNil(t, config.Pointer)
	assert.Equal(t, "localhost", config.Pointer.Host)
}

func TestLoad_InvalidInput(t *testing.T) {
	t.Run("should reject non-pointer", func(t *testing.T) {
		err := Load(struct{}{})
		var invalid *InvalidConfigError
		require.ErrorAs(t, err, &invalid)
	})

	t.Run("should reject pointer to non-struct", func(t *testing.T) {
		s := "nope"
		err := Load(&s)
		var invalid *InvalidConfigError
		require.ErrorAs(t, err, &invalid)
	})

	t.Run("should reject unsupported field types", func(t *testing.T) {
		type Config struct {
			Weird map[string]string `env:"WEIRD"`
		}
		t.Setenv("WEIRD", "a=b")
		err := Load(&Config{})
		require.Error(t, err)
	})
}

func TestMustLoad_PanicsOnError(t *testing.T) {
	assert.Panics(t, func() {
		MustLoad("not a struct")
	})
}
