package s3

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

const defaultRegion = "us-east-1"

type Config struct {
	AccessKeyID     string        `mapstructure:"AccessKeyID"`
	SecretAccessKey string        `mapstructure:"SecretAccessKey"`
	Bucket          string        `mapstructure:"Bucket"`
	Endpoint        string        `mapstructure:"Endpoint"`
	Region          string        `mapstructure:"Region"`
	PublicBaseURL   string        `mapstructure:"PublicBaseURL"`
	PresignTTL      time.Duration `mapstructure:"PresignTTL"`
}

// NewConfig читает .s3.env. Отсутствующий файл означает, что публикация выключена:
// возвращается (nil, nil).
func NewConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.SetDefault("Region", defaultRegion)
	v.SetDefault("PresignTTL", 24*time.Hour)

	for key, env := range map[string]string{
		"AccessKeyID":     "S3_ACCESS_KEY_ID",
		"SecretAccessKey": "S3_SECRET_ACCESS_KEY",
		"Bucket":          "S3_BUCKET",
		"Endpoint":        "S3_ENDPOINT",
		"Region":          "S3_REGION",
		"PublicBaseURL":   "S3_PUBLIC_BASE_URL",
		"PresignTTL":      "S3_PRESIGN_TTL",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("cannot bind %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("cannot read config from %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot unmarshal config: %w", err)
	}

	if cfg.AccessKeyID == "" && cfg.SecretAccessKey == "" && cfg.Bucket == "" {
		return nil, nil
	}

	// Проверяем, что все необходимые поля заполнены
	if cfg.AccessKeyID == "" {
		return nil, fmt.Errorf("AccessKeyID is required")
	}
	if cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("SecretAccessKey is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("Bucket is required")
	}

	return &cfg, nil
}
