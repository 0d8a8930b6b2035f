package main

import (
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/tomz197/fabric/internal/loop/server"
)

// meshResponse is the JSON form of a snapshot. Vertex and normal buffers
// are flattened to x, y, z triples so they can be uploaded as-is.
type meshResponse struct {
	Tick       uint64     `json:"tick"`
	Paused     bool       `json:"paused"`
	Generation uint64     `json:"generation"`
	Width      int        `json:"width"`
	Height     int        `json:"height"`
	Vertices   []float32  `json:"vertices"`
	Normals    []float32  `json:"normals"`
	Indices    []uint32   `json:"indices"`
	Sphere     *sphereDTO `json:"sphere,omitempty"`
}

type sphereDTO struct {
	Center [3]float32 `json:"center"`
	Radius float32    `json:"radius"`
}

func newMeshResponse(snap *server.Snapshot) meshResponse {
	surf := snap.Surface
	resp := meshResponse{
		Tick:       snap.Tick,
		Paused:     snap.Paused,
		Generation: surf.Generation,
		Width:      surf.Width,
		Height:     surf.Height,
		Vertices:   flatten(surf.Vertices),
		Normals:    flatten(surf.Normals),
		Indices:    surf.Indices,
	}
	if snap.Config.Sphere {
		resp.Sphere = &sphereDTO{Center: snap.Sphere.Center, Radius: snap.Sphere.Radius}
	}
	return resp
}

func flatten(vs []mgl32.Vec3) []float32 {
	out := make([]float32, 0, 3*len(vs))
	for _, v := range vs {
		out = append(out, v[0], v[1], v[2])
	}
	return out
}

func newMux(cs server.ClothServer, page string, logger *log.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	})

	mux.HandleFunc("GET /mesh", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(newMeshResponse(cs.GetSnapshot())); err != nil {
			logger.Warn("mesh encode failed", "err", err)
		}
	})

	// Web viewers share the simulation under client id 0.
	mux.HandleFunc("POST /command/{name}", func(w http.ResponseWriter, r *http.Request) {
		cmd, err := server.ParseCommand(r.PathValue("name"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		cs.SendCommand(0, cmd)
		logger.Debug("command queued", "cmd", cmd, "remote", r.RemoteAddr)
		w.WriteHeader(http.StatusAccepted)
	})

	return mux
}
