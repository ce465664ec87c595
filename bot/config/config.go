package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/ini.v1"
)

// Config wraps viper and provides typed accessors.
type Config struct {
	v *viper.Viper
}

// Load reads a config file and prepares defaults. INI files go through
// the ini parser so that flat key files keep working; anything else is
// handed to viper directly.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ORDERSONGBOT")
	v.AutomaticEnv()

	setDefaults(v)

	if strings.EqualFold(filepath.Ext(path), ".ini") {
		if err := loadINI(v, path); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return &Config{v: v}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("BotAPI", "https://api.telegram.org")
	v.SetDefault("BotDebug", false)
	v.SetDefault("BotAdmin", "")

	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFormat", "text")
	v.SetDefault("LogSource", false)
	v.SetDefault("LogDir", "")
	v.SetDefault("GormLogLevel", "warn")

	v.SetDefault("APIBase", "")
	v.SetDefault("APISource", "netease")
	v.SetDefault("APITimeoutSeconds", 15)

	v.SetDefault("PageSize", 5)
	v.SetDefault("Quality", 999)
	v.SetDefault("SelectTimeoutSeconds", 120)
	v.SetDefault("GroupWideSelection", false)
	v.SetDefault("ExitTokens", "")
	v.SetDefault("NextPageTokens", "")
	v.SetDefault("PrevPageTokens", "")

	v.SetDefault("DeliveryMode", "direct")
	v.SetDefault("ForceTranscode", false)
	v.SetDefault("FallbackOnFragile", true)
	v.SetDefault("MaxDurationSeconds", 0)
	v.SetDefault("FFmpegPath", "")
	v.SetDefault("VoiceSampleRate", 24000)

	v.SetDefault("RetractTip", true)
	v.SetDefault("RetractMenu", true)
	v.SetDefault("RetractDelaySeconds", 0)
	v.SetDefault("RetractOnlyAfterSuccess", false)
	v.SetDefault("KeepMenuOnFailure", true)

	v.SetDefault("ImageMenu", false)
	v.SetDefault("ImageRenderURL", "")

	v.SetDefault("Database", "cache.db")
	v.SetDefault("WorkerPoolSize", 4)
	v.SetDefault("RateLimitPerSecond", 1.0)
	v.SetDefault("RateLimitBurst", 3)
}

// GetString returns a string value.
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt returns an int value.
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 returns a float64 value.
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool returns a bool value.
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetIntSlice returns a slice of ints. Comma-separated strings from
// INI values are split and parsed element-wise.
func (c *Config) GetIntSlice(key string) []int {
	if raw, ok := c.v.Get(key).(string); ok {
		var out []int
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, err := strconv.Atoi(part)
			if err != nil {
				continue
			}
			out = append(out, n)
		}
		return out
	}
	return c.v.GetIntSlice(key)
}

func loadINI(v *viper.Viper, path string) error {
	cfg, err := ini.Load(path)
	if err != nil {
		return err
	}

	for _, key := range cfg.Section("").Keys() {
		v.Set(key.Name(), key.Value())
	}

	return nil
}
