// Package logobs provides a log/slog observer for tasks and scopes. It logs
// task start and join at debug level, completion at info, failures at warn
// and panics at error.
package logobs
