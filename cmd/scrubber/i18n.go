// Package main provides localization for the scrubber CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Flag categories
		"Configuration":    "設定",
		"Media":            "メディア",
		"Cache":            "キャッシュ",
		"Logging":          "ログ",
		"Display":          "表示",
		"Input":            "入力",
		"Output":           "出力先",
		"Scrubbing":        "スクラブ",
		"Layout and Style": "レイアウトとスタイル",
		"Performance":      "性能",
		"Debug":            "デバッグ",

		// Root command
		"Frame-accurate video scrubbing from a warm frame cache": "フレームキャッシュによるフレーム単位の動画スクラブ",
		"Error: %v":                                              "エラー: %v",
		"no video file given":                                    "動画ファイルが指定されていません",
		"Interrupted, shutting down...":                          "中断されました。終了しています...",

		// Global flags
		"YAML configuration file":                                          "YAML設定ファイル",
		"Media backend (auto, libav, mp4)":                                 "メディアバックエンド（auto, libav, mp4）",
		"Path to the ffmpeg binary used by the mp4 backend":                "mp4バックエンドが使うffmpegのパス",
		"Maximum width of decoded pictures":                                "デコード画像の最大幅",
		"Number of ring subsections (min: 3)":                              "リングのサブセクション数（最小: 3）",
		"Frames per ring subsection":                                       "サブセクションあたりのフレーム数",
		"Frame the playhead starts on":                                     "再生ヘッドの開始フレーム",
		"Refill subsections synchronously instead of on the decode worker": "デコードワーカーを使わず同期的にサブセクションを補充",
		"Log level (debug, info, warn, error, quiet)":                             "ログレベル（debug, info, warn, error, quiet）",
		"Write log output to this file":                                    "ログ出力先ファイル",
		"Suppress all log output":                                          "すべてのログ出力を抑制",

		// Play command
		"Scrub a video in the terminal":                                                        "ターミナルで動画をスクラブ",
		"Draw with colored cells instead of sixel graphics":                                    "sixelの代わりに色付きセルで描画",
		"Milliseconds a key is held before it repeats":                                         "キーリピートが始まるまでの時間（ミリ秒）",
		"Milliseconds between repeated steps (0 = every frame)":                                "リピート間隔（ミリ秒、0 = 毎フレーム）",
		"frame %d/%d%s  slot %d  sub %d  %s  req %d pending %d dropped %d  [h/l move, q quit]": "フレーム %d/%d%s  スロット %d  区画 %d  %s  要求 %d 待機 %d 破棄 %d  [h/l 移動, q 終了]",

		// Probe command
		"Show the video stream and how its frame count is estimated": "動画ストリームとフレーム数の推定方法を表示",
		"Print the report as JSON":                                   "JSONで出力",
		"File:         %s":                                           "ファイル:       %s",
		"Backend:      %s":                                           "バックエンド:   %s",
		"Stream:       #%d %s %dx%d":                                 "ストリーム:     #%d %s %dx%d",
		"Time base:    %s":                                           "タイムベース:   %s",
		"Frame rate:   %s":                                           "フレームレート: %s",
		"Duration:     %d":                                           "長さ:           %d",
		"Frame count:  %d":                                           "フレーム数:     %d",
		"Total frames: %d (%s)":                                      "総フレーム数:   %d (%s)",
		"Picture:      %dx%d":                                        "画像サイズ:     %dx%d",

		// Snapshot command
		"Scrub a video and render the cached frames as a PNG strip":              "動画をスクラブしキャッシュ済みフレームをPNGストリップに描画",
		"Output PNG file path":                                                   "出力PNGファイルパス",
		"Also write a summary to this path (.json for JSON, Markdown otherwise)": "サマリーもこのパスに書き出す（.json ならJSON、それ以外はMarkdown）",
		"Number of playhead steps before the snapshot":                           "スナップショット前の再生ヘッド移動回数",
		"Step backward instead of forward":                                       "前方ではなく後方へ移動",
		"Thumbnails per row (min: 1)":                                            "1行あたりのサムネイル数（最小: 1）",
		"Thumbnail width in pixels":                                              "サムネイル幅（ピクセル）",
		"Background color (hex, e.g., #1a1a2e)":                                  "背景色（16進数、例: #1a1a2e）",
		"Playhead and keyframe color (hex)":                                      "再生ヘッドとキーフレームの色（16進数）",
		"JPEG quality when the output ends in .jpg (1-100)":                      "出力が .jpg の場合のJPEG品質（1-100）",
		"TrueType font for the title and frame labels":                           "タイトルとフレームラベル用のTrueTypeフォント",
		"Use bilinear instead of Catmull-Rom thumbnail scaling":                  "サムネイル縮小にCatmull-Romではなくバイリニアを使用",
		"Thumbnail scaling workers (default: CPU count)":                         "サムネイル縮小ワーカー数（デフォルト: CPU数）",
		"Save per-slot images and diagnostics to this directory":                 "スロット画像と診断情報の保存先",
		"Snapshot of %s after %d steps...":                                       "%s を %d ステップ後にスナップショット...",
		"Failed to save summary: %v":                                             "サマリーの保存に失敗しました: %v",
		"Summary saved to %s":                                                    "サマリーを %s に保存しました",
		"Output saved to %s":                                                     "出力を %s に保存しました",

		// Version command
		"Show version information": "バージョン情報を表示",
		"scrubber version %s":      "scrubber バージョン %s",
	})
}
