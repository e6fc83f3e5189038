// Package authoring turns transcoded MPEG program streams into a VIDEO_TS
// tree with dvdauthor and validates the result structurally.
//
// All streams go into a single titleset with one program chain, played in
// input order. Chapter points come from the probed source durations.
package authoring
