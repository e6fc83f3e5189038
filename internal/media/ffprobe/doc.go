// Package ffprobe runs ffprobe and decodes its JSON report into the source
// metadata the conversion pipeline needs.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Metadata: the reduced view consumed by later stages (duration,
//     geometry, frame rate, audio layout)
//   - Prober: executes ffprobe through a process.Runner
//
// Unknown or malformed numeric fields decode to zero so that missing probe
// data never blocks a conversion.
package ffprobe
