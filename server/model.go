package server

import (
	"encoding/json"
	"net/http"
)

type ResponseModel struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func SendResponse(w http.ResponseWriter, success bool, data interface{}, errorMsg string) {
	response := ResponseModel{
		Success: success,
		Data:    data,
		Error:   errorMsg,
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, `{"success":false,"error":"Internal Server Error"}`, http.StatusInternalServerError)
	}
}
