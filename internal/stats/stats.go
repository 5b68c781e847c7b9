// Package stats records per-frame encoder statistics as zstd-compressed
// JSON lines.
package stats

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/deepteams/m4v"
)

// Record is one line of the statistics log.
type Record struct {
	Frame       int     `json:"frame"`
	Type        string  `json:"type"` // "I" or "P"
	Fallback    bool    `json:"fallback,omitempty"`
	Bytes       int     `json:"bytes"`
	TotalBits   int     `json:"total_bits"`
	MotionBits  int     `json:"motion_bits"`
	TextureBits int     `json:"texture_bits"`
	Quantizer   int     `json:"quantizer"`
	FCode       int     `json:"fcode"`
	IntraMBs    int     `json:"intra_mbs"`
	PSNR        float64 `json:"psnr,omitempty"`
	SSIM        float64 `json:"ssim,omitempty"`
}

// FromResult builds the record of frame n.
func FromResult(n int, r *m4v.Result) Record {
	typ := "P"
	if r.KeyFrame {
		typ = "I"
	}
	return Record{
		Frame:       n,
		Type:        typ,
		Fallback:    r.Fallback,
		Bytes:       len(r.Data),
		TotalBits:   r.TotalBits,
		MotionBits:  r.MotionBits,
		TextureBits: r.TextureBits,
		Quantizer:   r.Quantizer,
		FCode:       r.FCode,
		IntraMBs:    r.IntraMBs,
		PSNR:        r.PSNR,
		SSIM:        r.SSIM,
	}
}

// Writer appends records to a compressed stream. Close must be called to
// flush the final zstd frame.
type Writer struct {
	zw  *zstd.Encoder
	enc *json.Encoder
}

// NewWriter returns a Writer compressing into w.
func NewWriter(w io.Writer) (*Writer, error) {
	zw, err := zstd.NewWriter(w,
		zstd.WithEncoderConcurrency(1),
		zstd.WithEncoderLevel(zstd.SpeedDefault),
	)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return &Writer{zw: zw, enc: json.NewEncoder(zw)}, nil
}

// Write appends one record.
func (w *Writer) Write(r Record) error {
	return w.enc.Encode(r)
}

// Close flushes and closes the compressed stream. It does not close the
// underlying writer.
func (w *Writer) Close() error {
	return w.zw.Close()
}

// ReadAll decodes every record of a log written by Writer.
func ReadAll(r io.Reader) ([]Record, error) {
	zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	defer zr.Close()

	var records []Record
	sc := bufio.NewScanner(zr)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	for sc.Scan() {
		var rec Record
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return records, fmt.Errorf("stats: line %d: %w", len(records)+1, err)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return records, fmt.Errorf("stats: %w", err)
	}
	return records, nil
}

// Summary aggregates a run.
type Summary struct {
	Frames    int
	KeyFrames int
	Fallbacks int
	Bytes     int
	MeanPSNR  float64 // over frames that carry a PSNR
	MeanSSIM  float64
}

// Summarize aggregates records.
func Summarize(records []Record) Summary {
	var s Summary
	var psnr, ssim float64
	var withPSNR int
	for _, r := range records {
		s.Frames++
		if r.Type == "I" {
			s.KeyFrames++
		}
		if r.Fallback {
			s.Fallbacks++
		}
		s.Bytes += r.Bytes
		if r.PSNR > 0 {
			psnr += r.PSNR
			ssim += r.SSIM
			withPSNR++
		}
	}
	if withPSNR > 0 {
		s.MeanPSNR = psnr / float64(withPSNR)
		s.MeanSSIM = ssim / float64(withPSNR)
	}
	return s
}
