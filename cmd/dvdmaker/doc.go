// Command dvdmaker converts video files into a DVD-Video VIDEO_TS folder
// and optional ISO image using ffmpeg, dvdauthor and an ISO builder.
//
// Typical use:
//
//	dvdmaker convert --iso --label "Summer 2024" clip1.mp4 clip2.mkv
//	dvdmaker fit clip1.mp4 clip2.mkv
//	dvdmaker tools status
//	dvdmaker history
package main
