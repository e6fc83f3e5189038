// Package preflight provides readiness checks for the filesystem paths
// dvdmaker writes to.
//
// These checks run in two contexts:
//   - The workflow manager calls ForJob during Prepare. A failing check stops
//     the job before any tool is launched.
//   - The CLI "tools status" command uses RunAll to display path health next
//     to tool availability.
package preflight
