package handler

import "net/http"

// NewHealthHandler はリレーの死活確認エンドポイントです。
// 依存先を持たないため、プロセスが生きていれば常に200を返します。
func NewHealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
}
