package utils

import (
	"os"
	"time"
)

// GetEnvDefault は環境変数の値を返します。未設定または空の場合はdefaultValueを返します。
func GetEnvDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetEnvDurationDefault は環境変数をtime.Durationとして解釈して返します。
// 未設定・空・解釈不能の場合はdefaultValueを返します。
func GetEnvDurationDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
