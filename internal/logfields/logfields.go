package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyPost       = "post"
	KeySource     = "src"
	KeyKind       = "kind"
	KeyBackend    = "backend"
	KeyTemplate   = "template"
	KeyPath       = "path"
	KeyCount      = "count"
	KeyAddr       = "addr"
	KeyURL        = "url"
	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Post(url string) slog.Attr       { return slog.String(KeyPost, url) }
func Source(src string) slog.Attr     { return slog.String(KeySource, src) }
func Kind(k string) slog.Attr         { return slog.String(KeyKind, k) }
func Backend(name string) slog.Attr   { return slog.String(KeyBackend, name) }
func Template(name string) slog.Attr  { return slog.String(KeyTemplate, name) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Addr(a string) slog.Attr         { return slog.String(KeyAddr, a) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Method(m string) slog.Attr       { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
