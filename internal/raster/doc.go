// Package raster turns encoded channel images into normalized flat pixel
// buffers. The resampling filter (Catmull-Rom) affects pixel fidelity only;
// the container contract depends solely on the emitted dimensions and byte
// counts.
package raster
