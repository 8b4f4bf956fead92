// Package internal contains the core implementation packages for pagesmith.
//
// # Package Organization
//
// The internal packages are organized by functional domain:
//
//   - build: Incremental build pipeline, staging, compilation and publish
//   - config: Configuration loading and validation
//   - errors: Typed build errors, diagnostics and user suggestions
//   - i18n: Language variants generated from page text translations
//   - logging: Structured logging with optional file rotation
//   - registry: Component lookup and dependency closure
//   - renderer: Template expansion of component tags and placeholders
//   - scanner: Source tree inventory and change detection
//   - server: Preview server with live reload over WebSocket
//   - validation: Compiler invocation and live-reload origin checks
//   - watcher: File system monitoring with debouncing
//
// # Data Flow
//
// A build runs in one direction:
//
//   - Scanner lists source files modified since the last build marker
//   - Registry closes that set over the files including each component
//   - Build stages the rebuild set, calling the renderer for every HTML file
//   - Build compiles staged SCSS and TypeScript with external compilers
//   - Server is notified through a build callback and reloads browsers
//
// Watch mode drives the same pipeline from debounced watcher batches, one
// build at a time.
package internal
