package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/blogbuild/blogbuild/internal/config"
	berrors "github.com/blogbuild/blogbuild/internal/errors"
	"github.com/blogbuild/blogbuild/internal/logfields"
)

// Backend names accepted in build.backends.
const (
	BackendPandoc    = "pandoc"
	BackendNbconvert = "nbconvert"
	BackendGoldmark  = "goldmark"
)

// Converter turns one source file into an HTML fragment.
type Converter interface {
	Name() string
	Supports(kind SourceKind) bool
	Convert(ctx context.Context, src string, kind SourceKind) (string, error)
}

// Result is a converted post source.
type Result struct {
	Kind    SourceKind
	Backend string
	HTML    string
}

// Dispatcher routes each source kind to exactly one converter.
type Dispatcher struct {
	routes  map[SourceKind]Converter
	timeout time.Duration
}

// NewDispatcher creates an empty dispatcher. A positive timeout bounds each
// conversion.
func NewDispatcher(timeout time.Duration) *Dispatcher {
	return &Dispatcher{routes: make(map[SourceKind]Converter), timeout: timeout}
}

// Register routes kind to c, replacing any previous route.
func (d *Dispatcher) Register(kind SourceKind, c Converter) error {
	if c == nil || kind == KindUnknown {
		return berrors.InternalError(fmt.Sprintf("invalid route for %s sources", kind), nil)
	}
	if !c.Supports(kind) {
		return berrors.ValidationFailed("build.backends."+kind.String(),
			fmt.Sprintf("backend %s cannot convert %s sources", c.Name(), kind))
	}
	d.routes[kind] = c
	return nil
}

// Route returns the converter registered for kind.
func (d *Dispatcher) Route(kind SourceKind) (Converter, bool) {
	c, ok := d.routes[kind]
	return c, ok
}

// Convert resolves the kind of path, converts it with the routed backend and
// strips input prompts from the fragment.
func (d *Dispatcher) Convert(ctx context.Context, path string) (*Result, error) {
	kind, err := KindOf(path)
	if err != nil {
		return nil, err
	}
	c, ok := d.routes[kind]
	if !ok {
		return nil, berrors.UnsupportedByBackend(path, kind.String(), "none")
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, berrors.FileSystem("stat", path, err)
	}
	if info.IsDir() {
		return nil, berrors.ValidationFailed("src", "source is a directory: "+path)
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	fragment, err := c.Convert(ctx, path, kind)
	if err != nil {
		return nil, conversionError(path, c.Name(), err)
	}

	fragment, err = StripPrompts(fragment)
	if err != nil {
		return nil, berrors.ConversionFailed(path, c.Name(), err)
	}

	slog.Debug("Converted source",
		logfields.Source(path),
		logfields.Kind(kind.String()),
		logfields.Backend(c.Name()),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))

	return &Result{Kind: kind, Backend: c.Name(), HTML: fragment}, nil
}

func conversionError(path, backend string, err error) error {
	if _, ok := berrors.As(err); ok {
		return err
	}
	be := berrors.ConversionFailed(path, backend, err)
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		be.WithContext("exit_code", exitErr.Code).WithContext("stderr", exitErr.Stderr)
	}
	return be
}

// New builds the dispatcher described by the build configuration.
func New(b config.BuildConfig) (*Dispatcher, error) {
	d := NewDispatcher(b.ConvertTimeout)
	routes := []struct {
		kind    SourceKind
		backend string
	}{
		{KindMarkdown, b.Backends.Markdown},
		{KindNotebook, b.Backends.Notebook},
	}
	for _, r := range routes {
		c, err := NewBackend(r.backend, b)
		if err != nil {
			return nil, err
		}
		if err := d.Register(r.kind, c); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// NewBackend constructs the named backend from the build configuration.
func NewBackend(name string, b config.BuildConfig) (Converter, error) {
	switch name {
	case BackendPandoc, "":
		return NewPandoc(b.Pandoc.Binary, b.Pandoc.Template), nil
	case BackendNbconvert:
		return NewNbconvert(b.Nbconvert.Binary, b.Nbconvert.Template, b.TemplateDir, b.Nbconvert.TempDir), nil
	case BackendGoldmark:
		return NewGoldmark(), nil
	default:
		return nil, berrors.ValidationFailed("build.backends", "unknown backend: "+name)
	}
}
