// Package convert turns post sources into HTML fragments.
//
// A SourceKind is derived from the file extension and routed to one Converter
// per kind. Three backends are available: the pandoc and nbconvert
// subprocesses, and goldmark in-process for markdown only. Whatever the
// backend, the fragment leaves the Dispatcher with input-prompt decorations
// removed.
package convert
