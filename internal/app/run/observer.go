package run

import (
	"github.com/John-Robertt/avkit/internal/domain"
)

// Observer 用于把“每条结果/每轮扫描结果”从核心执行流程中解耦出来。
//
// 约束：
// - run 包只发事件，展示方式由 CLI 决定
// - 事件都来自唯一的控制流，实现无需并发安全
type Observer interface {
	// OnItemDone 在某个文件（或音视频对）处理完成时调用，包括跳过的条目。
	OnItemDone(res domain.ItemResult)
	// OnScanDone 在一轮扫描结束时调用；n 从 1 开始计数，err 为本轮的整体失败（若有）。
	OnScanDone(n int, rr domain.ScanReport, err error)
}
