// Package encoding transcodes each source into a DVD-compliant MPEG-2 program
// stream with ffmpeg.
//
// Every job uses one video bitrate for all of its sources. Sources without an
// audio stream receive a generated silent track so each title carries audio.
// Two-pass encoding writes its analysis log under the job's passlog directory
// and reports per-source progress split evenly across both passes.
package encoding
