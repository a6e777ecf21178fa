package server

import (
	"encoding/json"
	"image/png"
	"io"
	"log/slog"
	"net/http"

	"github.com/cwbudde/laserlines/internal/intensity"
	"github.com/cwbudde/laserlines/internal/preview"
)

// writeJSON encodes v as the response body
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// encodeResidual renders a fitter residual as PNG
func encodeResidual(w io.Writer, g *intensity.Grid) error {
	return png.Encode(w, preview.ResidualImage(g))
}
