package handlers

import (
	"net/http"
)

type healthResponse struct {
	Status string         `json:"status"`
	Jobs   map[string]int `json:"jobs"`
}

// Health reports liveness plus the number of jobs the registry holds per status.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Jobs: map[string]int{}}
	if a.Jobs != nil {
		for status, n := range a.Jobs.Counts() {
			resp.Jobs[string(status)] = n
		}
	}
	a.json(w, http.StatusOK, resp)
}
