package m4v

import (
	"bytes"
	"fmt"
	"testing"
)

func benchFrames(w, h, n int) [][]byte {
	frames := make([][]byte, n)
	for i := range frames {
		frames[i] = synthFrame(w, h, i)
	}
	return frames
}

func benchmarkEncode(b *testing.B, quality int) {
	const w, h = 640, 480
	frames := benchFrames(w, h, 8)
	opts := DefaultOptions(w, h)
	opts.Quality = quality
	enc, err := NewEncoder(opts)
	if err != nil {
		b.Fatal(err)
	}
	defer enc.Close()

	var total int64
	b.SetBytes(int64(len(frames[0])))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		res, err := enc.Encode(&Frame{Layout: LayoutI420, Planes: [3][]byte{frames[i%len(frames)]}})
		if err != nil {
			b.Fatal(err)
		}
		total += int64(len(res.Data))
	}
	b.ReportMetric(float64(total)/float64(b.N), "B/frame")
}

func BenchmarkEncode(b *testing.B) {
	for _, q := range []int{0, 3, 4, 5} {
		b.Run(fmt.Sprintf("Q%d", q), func(b *testing.B) { benchmarkEncode(b, q) })
	}
}

func BenchmarkDecode(b *testing.B) {
	const w, h = 640, 480
	enc, err := NewEncoder(DefaultOptions(w, h))
	if err != nil {
		b.Fatal(err)
	}
	var stream []byte
	for _, f := range benchFrames(w, h, 8) {
		res, err := enc.Encode(&Frame{Layout: LayoutI420, Planes: [3][]byte{f}})
		if err != nil {
			b.Fatal(err)
		}
		stream = append(stream, res.Data...)
	}
	enc.Close()

	b.SetBytes(int64(len(stream)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		headers, err := ScanHeaders(bytes.NewReader(stream))
		if err != nil || len(headers) != 8 {
			b.Fatalf("%d frames: %v", len(headers), err)
		}
	}
}
