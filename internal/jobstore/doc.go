// Package jobstore persists conversion job history in SQLite.
//
// Each submitted job gets a row when it starts. Progress updates refresh the
// row's stage and percentage and the final result records the outcome,
// artifact paths and, on failure, the error kind and message. The CLI
// history command reads the rows back newest first.
package jobstore
