// Package render turns a dense period x entity grid into racing bar chart
// artifacts: an animated GIF, an MP4 video, or a numbered PNG sequence.
//
// All styling travels in an explicit Style value; nothing is configured
// through process-wide plotting state. The strategy (animated frames or one
// static chart per period) and the effective output format are decided up
// front by Plan from the data shape and the detected Capabilities, and the
// outcome is reported in a typed Result.
package render
