// Package dvd holds the DVD-Video domain vocabulary shared by every stage:
// video standard, display aspect, chapter layout and output selection.
package dvd
