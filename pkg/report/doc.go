// Package report renders survey records.
//
// Reporters are registered by format name ("text", "jsonl", "csv") and created with New.
// Streaming formats write each record as it arrives; the text table buffers rows until
// Flush so it can size its columns.
package report
