package response

import (
	"encoding/json"
	"net/http"
)

// Response – единый конверт всех JSON-ответов API
type Response struct {
	Status     bool   `json:"status"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       any    `json:"data"`
}

// JSON пишет конверт с указанным кодом
func JSON(w http.ResponseWriter, code int, message string, data any) error {
	if data == nil {
		data = struct{}{}
	}
	resp := Response{
		Status:     code >= 200 && code < 300,
		StatusCode: code,
		Message:    message,
		Data:       data,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(resp)
}

// Error – ответ с ошибкой, data всегда пустой объект
func Error(w http.ResponseWriter, code int, message string) {
	_ = JSON(w, code, message, nil)
}
