// Package process launches external tools and supervises them until exit.
//
// Every line written to stdout or stderr is forwarded to the caller's sink as
// it arrives, a bounded tail of recent output is kept for failure reports, and
// cancelling the context kills the whole process group so encoders that fork
// helpers do not outlive the job. The package never interprets tool output.
package process
