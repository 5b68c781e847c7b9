package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI and encoder messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Root command
		"Encode, decode and inspect m4v video streams": "m4v動画ストリームのエンコード、デコード、解析",

		// Commands
		"Encode raw YUV, images or a GIF into a stream":  "生YUV、画像、GIFをストリームにエンコード",
		"Encode a synthetic moving test pattern":         "動くテストパターンを生成してエンコード",
		"Decode a stream into image files or raw I420":   "ストリームを画像ファイルまたは生I420にデコード",
		"Show the frame headers of a stream":             "ストリームのフレームヘッダーを表示",
		"encode: missing input":                          "encode: 入力が指定されていません",
		"decode: missing input":                          "decode: 入力が指定されていません",
		"info: missing input":                            "info: 入力が指定されていません",

		// Flags
		`Output path ("-" for stdout)`:                          `出力先パス（"-" で標準出力）`,
		`Output directory, or file with --raw ("-" for stdout)`: `出力ディレクトリ、--raw 指定時は出力ファイル（"-" で標準出力）`,
		"YAML encoder profile":                                  "YAMLエンコーダープロファイル",
		"Motion search effort 0-5 (0 = I frames only)":          "動き探索の強度 0-5（0 = Iフレームのみ）",
		"Frame quantizer 1-31":                                  "フレーム量子化値 1-31",
		"Smallest quantizer":                                    "量子化値の下限",
		"Largest quantizer":                                     "量子化値の上限",
		"Largest distance between key frames":                   "キーフレームの最大間隔",
		"Adaptive quantization (none, luminance)":               "適応量子化（none, luminance）",
		"Compute the PSNR of every frame":                       "全フレームのPSNRを計算",
		"Write zstd-compressed per-frame statistics to this file": "フレームごとの統計をzstd圧縮してこのファイルに書き出す",
		"Stop after this many frames (0 = all)":                 "指定フレーム数で停止（0 = すべて）",
		"Raw input size WIDTHxHEIGHT":                           "生入力のサイズ 幅x高さ",
		"Raw input layout (i420, yv12, yuy2, yvyu, uyvy)":       "生入力のレイアウト（i420, yv12, yuy2, yvyu, uyvy）",
		"Scale images to this width":                            "画像をこの幅に拡大縮小",
		"Scale images to this height":                           "画像をこの高さに拡大縮小",
		"Picture width":                                         "画像の幅",
		"Picture height":                                        "画像の高さ",
		"Number of frames to generate":                          "生成するフレーム数",
		"Write raw I420 instead of encoding":                    "エンコードせずに生I420を書き出す",
		"Write raw I420 instead of images":                      "画像の代わりに生I420を書き出す",
		"Image format: png, jpeg":                               "画像形式: png, jpeg",
		"List every frame":                                      "全フレームを一覧表示",
		"Also summarize a statistics file written by encode":    "encodeが書き出した統計ファイルも集計",
		"Log level (debug, info, warn, error)":                  "ログレベル（debug, info, warn, error）",
		"Suppress all log output":                               "ログ出力をすべて抑制",

		// Encode progress
		"Encoding %dx%d at quality %d":       "%dx%d を品質 %d でエンコード中",
		"Frame %d: %s, %d bytes, quantizer %d": "フレーム %d: %s, %d バイト, 量子化値 %d",
		"Interrupted, shutting down...":      "中断されました。終了します...",
		"Encoded %s frames (%s key, %s recoded) into %s bytes, %s kbit/s at %s fps": "%s フレーム（キー %s、再符号化 %s）を %s バイトにエンコード、%s kbit/s（%s fps）",
		"Mean PSNR %s dB, SSIM %s":           "平均PSNR %s dB、SSIM %s",
		"Encoding took %v (%s frames/s)":     "エンコード時間 %v（%s フレーム/秒）",
		"Decoded %d frames to %s":            "%d フレームを %s にデコードしました",

		// Encoder internals
		"Encoder created: %dx%d, quality %d, quantizer %d-%d":                          "エンコーダー作成: %dx%d, 品質 %d, 量子化値 %d-%d",
		"Frame %d recoded as I frame: %d intra macroblocks":                            "フレーム %d をIフレームとして再符号化: イントラマクロブロック %d 個",
		"Frame %d coded as %s: %d bits (%d motion, %d texture), quant %d, %d intra MBs": "フレーム %d を %s として符号化: %d ビット（動き %d、テクスチャ %d）、量子化値 %d、イントラMB %d 個",
		"Intra budget exceeded at macroblock %d,%d, coding frame as I":                 "マクロブロック %d,%d でイントラ上限を超過、Iフレームとして符号化",
		"Search range widened to %d (sigma %.2f)":                                      "探索範囲を %d に拡大（sigma %.2f）",
		"Search range narrowed to %d (sigma %.2f)":                                     "探索範囲を %d に縮小（sigma %.2f）",

		// Info
		"File:":         "ファイル:",
		"Dimensions:":   "サイズ:",
		"Frames:":       "フレーム数:",
		"Size:":         "容量:",
		"key":           "キー",
		"bytes":         "バイト",
		"Recoded:":      "再符号化:",
		"frames logged": "フレーム記録",
		"Mean PSNR:":    "平均PSNR:",
		"Mean SSIM:":    "平均SSIM:",
		"Stream error: %v": "ストリームエラー: %v",
	})
}
