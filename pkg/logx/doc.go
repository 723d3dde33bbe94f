// Package logx configures verisend's structured logging.
//
// A small wrapper (logx.Logger) on top of zerolog keeps:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//   - An optional operator sink (min-level + rate limited) that relays
//     important lines to the operator reporting surface without ever
//     blocking the dispatch thread
package logx
