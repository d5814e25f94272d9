// Package aggregate turns a completed batch plus its success map into a
// delivery decision: nothing, a single-file save, or a zip archive whose
// member names are relativized against the original drop roots.
package aggregate
