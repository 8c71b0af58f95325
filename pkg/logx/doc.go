// Package logx configures pewwatch's structured logging.
//
// The repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//   - Sinks hot-swappable on config reload without re-creating loggers
package logx
