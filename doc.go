// Package m4v provides a pure Go block-based video frame encoder in the
// style of MPEG-4 Part 2 simple profile, with a matching decoder.
//
// Frames are coded as 16x16 macroblocks of 8x8 DCT blocks. I frames code
// every macroblock on its own; P frames predict from the previous
// reconstructed frame with half-pel motion compensation and skip
// macroblocks that do not change. The package supports:
//   - Planar (I420, YV12) and packed (YUY2, YVYU, UYVY) input
//   - Motion search effort levels 0-5
//   - Per-macroblock quantizers from a luminance mask or a caller field
//   - Automatic and forced key frames with an intra fallback for P frames
//     that do not predict well
//   - An external rate control hook
//
// The bitstream is a compact self-describing layout of its own, not an
// MPEG-4 elementary stream; only this package's decoder reads it.
//
// Basic usage for encoding:
//
//	enc, err := m4v.NewEncoder(m4v.DefaultOptions(640, 480))
//	res, err := enc.Encode(&m4v.Frame{Layout: m4v.LayoutI420, Planes: [3][]byte{yuv}})
//	w.Write(res.Data)
//
// Basic usage for decoding:
//
//	dec := m4v.NewDecoder(r)
//	img, hdr, err := dec.Decode()
package m4v
