package response

import (
	"encoding/json"
	"net/http"
)

// Response 統一回應格式
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func SuccessJSON(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, Response{Code: status, Message: http.StatusText(status), Data: data})
}

func ErrorJSON(w http.ResponseWriter, status int, message string) {
	if message == "" {
		message = http.StatusText(status)
	}
	WriteJSON(w, status, Response{Code: status, Message: message})
}
