package api

import (
	"net/http"
)

type SystemHandler struct{}

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

type versionResponse struct {
	Version   string `json:"version"`
	BuildTime string `json:"buildTime"`
}

func (h *SystemHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, healthResponse{Status: "ok", Service: "labbook"}, http.StatusOK)
}

func (h *SystemHandler) VersionHandler(version, buildTime string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, versionResponse{Version: version, BuildTime: buildTime}, http.StatusOK)
	}
}
