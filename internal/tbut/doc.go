// Package tbut estimates tear film break-up time from an eye video.
//
// It is the composition root of the break-up pipeline: it imports the
// layer packages (l1video, l2polar, l3energy, l4breakup) but none of those
// import tbut. Decoding and ring calibration are injected (see
// internal/tbut/cv for the OpenCV backend) so this package stays free of
// cgo and can be exercised with synthetic frames.
package tbut
