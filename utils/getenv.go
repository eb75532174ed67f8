package utils

import "os"

// GetEnvDefault は環境変数を読み、未設定または空ならデフォルト値を返します。
// リレーとボットの設定はすべてこの形で環境変数から取ります。
func GetEnvDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
