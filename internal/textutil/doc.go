// Package textutil provides text helpers for names that end up on disk or on
// the disc itself.
//
// The primary use cases are:
//   - Sanitizing filenames and path segments for safe filesystem use
//   - Reducing arbitrary titles to a valid disc volume label
//
// Volume labels are transliterated (accents removed) before filtering so that
// "Été" becomes "ETE" rather than "T".
package textutil
