package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Command level messages (info)
		"Opening %s":                      "%s を開いています",
		"Interrupted, shutting down...":   "中断されました。シャットダウン中...",
		"Snapshot saved to %s":            "スナップショットを %s に保存しました",
		"Summary saved to %s":             "サマリーを %s に保存しました",
		"Pipeline completed successfully": "パイプラインが正常に完了しました",
		"Starting pipeline":               "パイプラインを開始します",

		// Session
		"Filled %d frames from frame %d in %v": "フレーム %[2]d から %[1]d フレームを %[3]v で読み込みました",
		"Dropped decode request: %s":           "デコード要求を破棄しました: %s",
		"Crossed %d -> %d, refilling %s":       "サブセクション %d -> %d を通過、補充: %s",
		"No refill for crossing %d -> %d":      "%d -> %d の補充はありません",
		"No start frame for crossing %d -> %d": "%d -> %d の開始フレームがありません",

		// Stream
		"Seek to frame %d: discarded %d frames": "フレーム %d へのシーク: %d フレームを破棄",

		// Worker
		"Decode worker started":                              "デコードワーカーを開始しました",
		"Decode worker stopped":                              "デコードワーカーを停止しました",
		"Decode request failed (%s): %v":                     "デコード要求に失敗しました (%s): %v",
		"Decoded %d frames from %d into subsection %d in %v": "%[2]d から %[1]d フレームをサブセクション %[3]d に %[4]v でデコードしました",

		// Snapshot pipeline
		"Scrubbing %d steps %s":                     "%d ステップ %s 方向にスクラブ中",
		"Scrub completed at frame %d in %d ms":      "フレーム %d でスクラブが完了しました (%d ms)",
		"Calculating layout":                        "レイアウトを計算中",
		"Layout calculated: %dx%d canvas, %d cells": "レイアウト計算完了: %dx%d キャンバス, %d セル",
		"Compositing %d slots with %d workers":      "%d スロットを %d ワーカーで合成中",
		"Composition completed":                     "合成が完了しました",
		"Strip encoded: %d bytes":                   "ストリップのエンコード完了: %d バイト",

		// Errors
		"Failed to scrub: %s":            "スクラブに失敗しました: %s",
		"Failed to calculate layout: %s": "レイアウトの計算に失敗しました: %s",
		"Failed to composite strip: %s":  "ストリップの合成に失敗しました: %s",
		"Failed to encode strip: %s":     "ストリップのエンコードに失敗しました: %s",
		"Failed to write output: %s":     "出力の書き込みに失敗しました: %s",
	})
}
