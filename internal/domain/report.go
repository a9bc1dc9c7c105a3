package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	StatusProcessed = "processed"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
	StatusUnmatched = "unmatched"
)

// Reason 码：说明某个条目为什么被跳过/失败。
const (
	ReasonUnmatchedPair    = "unmatched_pair"
	ReasonAlreadyConverted = "already_converted"
	ReasonKnownSucceeded   = "known_succeeded"
	ReasonKnownFailed      = "known_failed"
	ReasonRecentWrite      = "recent_write"
	ReasonTranscodeFailed  = "transcode_failed"
	ReasonStageFailed      = "stage_failed"
	ReasonIOFailed         = "io_failed"
)

// ScanReport 是一轮扫描（discovery -> staging）的结果。
type ScanReport struct {
	ScanID string `json:"scan_id"`
	Dir    string `json:"dir"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary ReportSummary `json:"summary"`
	Items   []ItemResult  `json:"items"`
}

type ReportSummary struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Unmatched int `json:"unmatched"`
}

type ItemResult struct {
	Stem string `json:"stem"`
	Src  string `json:"src"`
	Dst  string `json:"dst"`

	Status   string `json:"status"`
	Reason   string `json:"reason"`
	ErrorMsg string `json:"error_msg"`

	Duration time.Duration `json:"duration_ns"`
}

// NoWork 表示本轮没有发现任何候选输入文件（不是错误）。
func (r ScanReport) NoWork() bool { return len(r.Items) == 0 }

// Finalize 做三件事：
// 1) 时间统一为 UTC
// 2) items 稳定排序：按 stem 字典序；stem=="" 的条目排在最后
// 3) summary 由 items 计算得出
func (r *ScanReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Items, func(i, j int) bool {
		a := r.Items[i].Stem
		b := r.Items[j].Stem
		if a == "" || b == "" {
			return a != "" && b == ""
		}
		return a < b
	})

	var s ReportSummary
	for _, it := range r.Items {
		switch it.Status {
		case StatusProcessed:
			s.Processed++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		case StatusUnmatched:
			s.Unmatched++
		}
	}
	r.Summary = s
}

// MarshalJSON 仅用于集中约束输出的稳定性。
func (r ScanReport) MarshalJSON() ([]byte, error) {
	type Alias ScanReport
	return json.Marshal(Alias(r))
}
