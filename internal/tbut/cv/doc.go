// Package cv is the OpenCV backend for the break-up engine: container
// decoding through gocv.VideoCapture and ring calibration with a blurred
// bright-mask centroid refined by a Hough circle search.
//
// Dependency rule: cv may import the tbut layer packages and gocv. The layer
// packages never import cv, so everything below the engine builds without
// cgo.
package cv
