// Package audio plays a chime when a popup is shown.
// It uses the beep library to play WAV, OGG, and MP3 files
// with volume control and a sound per priority.
package audio
