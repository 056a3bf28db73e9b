package server

import (
	"compress/gzip"
	"net/http"

	"github.com/klauspost/compress/gzhttp"

	"github.com/sambeau/tabula/config"
)

// Table pages and exports are text; anything else is sent as is.
var textTypes = []string{
	"application/json",
	"text/csv",
	"text/plain",
	"text/html",
	"text/markdown",
}

// gzipLevels maps the configured level names onto gzip levels. Unknown
// names fall back to gzip.DefaultCompression.
var gzipLevels = map[string]int{
	"fastest": gzip.BestSpeed,
	"default": gzip.DefaultCompression,
	"best":    gzip.BestCompression,
}

func gzipLevel(name string) int {
	if l, ok := gzipLevels[name]; ok {
		return l
	}
	return gzip.DefaultCompression
}

// withCompression gzips text responses of at least cfg.MinSize bytes for
// clients that accept it. A disabled config or level "none" leaves h bare.
func withCompression(h http.Handler, cfg config.CompressionConfig) http.Handler {
	if !cfg.Enabled || cfg.Level == "none" {
		return h
	}
	gz, err := gzhttp.NewWrapper(
		gzhttp.MinSize(cfg.MinSize),
		gzhttp.CompressionLevel(gzipLevel(cfg.Level)),
		gzhttp.ContentTypes(textTypes),
	)
	if err != nil {
		return h
	}
	return gz(h)
}
