// Package logx is dolist's structured logging facade over zerolog.
//
// Short-lived CLI commands use NewConsole and only surface warnings. The
// reminder service builds a Service from the logging config section; loggers
// derived from it follow later Apply calls, so a config reload can change the
// level or move output to a file without rebuilding components.
package logx
