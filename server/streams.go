package server

import (
	"net/http"

	"github.com/mkale/resttap/pipeline"
)

func streamsHandler(status *pipeline.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		SendResponse(w, true, status.Snapshot(), "")
	}
}
