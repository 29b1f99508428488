// Package logging builds the slog loggers used across helioframe.
//
// Two handler formats are supported: a human-oriented console format that
// hoists the component attribute into the message prefix, and standard JSON.
// Context helpers derive per-run structured fields (item id, run id, stage,
// channel) so stage code logs consistently without repeating attributes.
package logging
