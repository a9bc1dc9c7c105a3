package planner

import (
	"path/filepath"
	"time"

	"github.com/John-Robertt/avkit/internal/domain"
	"github.com/John-Robertt/avkit/internal/naming"
)

// RecentWriteGuard：watch 模式下，mtime 距今不足该时长的文件视为仍在录制，本轮跳过。
// 固定值，不可配置。
const RecentWriteGuard = 60 * time.Second

// Action 是对单个 flv 的判定结果。
type Action int

const (
	ActionConvert Action = iota
	ActionSkip
)

// Decision 描述一次判定；Quiet=true 的跳过只在 debug 日志中出现。
type Decision struct {
	Action Action
	Reason string // domain.Reason*；ActionConvert 时为空
	Quiet  bool
}

// Input 是判定所需的本轮上下文。
type Input struct {
	Watch bool
	Now   time.Time

	// Outputs 是本轮扫描时输出根目录下（递归）已存在的 mp4 stem 集合，幂等判断的唯一依据。
	Outputs map[string]struct{}
	// Record 是进程内记忆，只用于减少重复工作；可为 nil。
	Record *domain.ConversionRecord
}

// Decide 按固定顺序判定一个 flv 是否需要转换：
// 1) watch 且本进程已成功转换过 => 静默跳过
// 2) 输出目录下已有同名 mp4 => 跳过（记日志）
// 3) 本进程内曾转换失败 => 静默跳过（进程重启前不再重试）
// 4) watch 且 mtime 不足 RecentWriteGuard => 静默跳过（可能仍在录制）
func Decide(f domain.InputFile, in Input) Decision {
	if in.Watch && in.Record.Succeeded(f.Stem) {
		return Decision{Action: ActionSkip, Reason: domain.ReasonKnownSucceeded, Quiet: true}
	}
	if _, ok := in.Outputs[f.Stem]; ok {
		return Decision{Action: ActionSkip, Reason: domain.ReasonAlreadyConverted}
	}
	if in.Record.Failed(f.Stem) {
		return Decision{Action: ActionSkip, Reason: domain.ReasonKnownFailed, Quiet: true}
	}
	if in.Watch && in.Now.Sub(f.ModTime) < RecentWriteGuard {
		return Decision{Action: ActionSkip, Reason: domain.ReasonRecentWrite, Quiet: true}
	}
	return Decision{Action: ActionConvert}
}

// DestDir 返回 flv 转换产物的最终目录：输出根目录，或归档时的 <root>/YYYY-M.D。
func DestDir(outRoot string, archive bool, f domain.InputFile) string {
	if !archive {
		return outRoot
	}
	return filepath.Join(outRoot, naming.ArchiveDir(f.ModTime))
}

// DestPath 返回 flv 转换产物的最终路径。
func DestPath(outRoot string, archive bool, f domain.InputFile) string {
	return filepath.Join(DestDir(outRoot, archive, f), f.Stem+".mp4")
}
