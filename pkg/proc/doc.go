// Package proc drives the stop/inspect/resume cycle of a traced process.
//
// The package is independent of the operating system backend: an Inferior
// is anything that can wait for the traced process to change state, read
// its registers and resume it for exactly one machine instruction. The
// native Linux backend lives in the native subpackage.
//
// Controller.Run implements the single-stepping loop:
// * wait until the inferior changes state
// * if it is stopped, read its registers and emit one report line
// * resume it for one instruction and go back to waiting
//
// The loop ends as soon as a wait observes a status that is not a stop.
package proc
