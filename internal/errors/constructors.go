package errors

import "fmt"

// Convenience functions for common error patterns

// Config errors

func ConfigNotFound(path string) *BuildError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

func ConfigParse(path string, cause error) *BuildError {
	return Wrap(cause, CategoryConfig, SeverityFatal, "failed to parse configuration").
		WithContext("path", path)
}

func ConfigRequired(field string) *BuildError {
	return New(CategoryConfig, SeverityFatal, "required configuration missing: "+field).
		WithContext("field", field)
}

func ValidationFailed(field, reason string) *BuildError {
	return New(CategoryValidation, SeverityFatal, fmt.Sprintf("validation failed for %s: %s", field, reason)).
		WithContext("field", field).
		WithContext("reason", reason)
}

// Conversion errors

// UnsupportedSource reports a source file whose extension has no conversion route.
// The message names the path so the raw error line is enough to find the post.
func UnsupportedSource(path, ext string) *BuildError {
	return New(CategoryUnsupported, SeverityFatal, fmt.Sprintf("unsupported source type %q: %s", ext, path)).
		WithContext("path", path).
		WithContext("extension", ext)
}

// UnsupportedByBackend reports a source kind the configured backend cannot handle.
func UnsupportedByBackend(path, kind, backend string) *BuildError {
	return New(CategoryUnsupported, SeverityFatal, fmt.Sprintf("backend %s cannot convert %s sources: %s", backend, kind, path)).
		WithContext("path", path).
		WithContext("kind", kind).
		WithContext("backend", backend)
}

func ConversionFailed(path, backend string, cause error) *BuildError {
	return Wrap(cause, CategoryConversion, SeverityFatal, "conversion failed: "+path).
		WithContext("path", path).
		WithContext("backend", backend)
}

// Filesystem and rendering errors

func FileSystem(operation, path string, cause error) *BuildError {
	return Wrap(cause, CategoryFileSystem, SeverityFatal, operation+" "+path).
		WithContext("operation", operation).
		WithContext("path", path)
}

func RenderFailed(template, output string, cause error) *BuildError {
	return Wrap(cause, CategoryRender, SeverityFatal, fmt.Sprintf("render %s to %s", template, output)).
		WithContext("template", template).
		WithContext("output", output)
}

func BrokenLinks(count int) *BuildError {
	return New(CategoryLinks, SeverityFatal, fmt.Sprintf("%d broken internal link(s)", count)).
		WithContext("count", count)
}

func Integration(component string, cause error) *BuildError {
	return Wrap(cause, CategoryIntegration, SeverityError, component+" failed").
		WithContext("component", component)
}

// Internal errors

func InternalError(message string, cause error) *BuildError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
