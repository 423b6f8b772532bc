// Package cli implements the command-line interface for collegenav.
//
// The cli package provides the Cobra root command. It loads settings from flags and an optional
// JSON5 config file, reads the input institutions, and wires the HTTP session, matcher,
// extractor, id registry and output writer into a runner. When the run ends it prints a summary
// as a table or JSON and maps the result onto the process exit code.
package cli
