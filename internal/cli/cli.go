// Package cli 放两个命令行程序共用的输出与退出约定。
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/John-Robertt/avkit/internal/app/run"
	"github.com/John-Robertt/avkit/internal/config"
	"github.com/John-Robertt/avkit/internal/domain"
)

var _ run.Observer = (*Summary)(nil)

// Summary 在每轮扫描结束时输出一行汇总。
//
// 约定：
// - 交互终端：人类可读的汇总行，失败/未配对条目逐行列出
// - 非终端（被重定向/管道）：每轮输出一个 ScanReport JSON（一行一个）
type Summary struct {
	w    io.Writer
	json bool
	mu   sync.Mutex
}

func NewSummary(w io.Writer, jsonMode bool) *Summary {
	return &Summary{w: w, json: jsonMode}
}

func (s *Summary) OnItemDone(domain.ItemResult) {}

func (s *Summary) OnScanDone(n int, rr domain.ScanReport, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.json {
		_ = json.NewEncoder(s.w).Encode(rr)
		return
	}

	prefix := "完成"
	if n > 1 {
		prefix = fmt.Sprintf("第 %d 轮完成", n)
	}
	fmt.Fprintf(s.w, "%s：processed=%d skipped=%d failed=%d unmatched=%d (%s)\n",
		prefix, rr.Summary.Processed, rr.Summary.Skipped, rr.Summary.Failed, rr.Summary.Unmatched,
		FormatShortDuration(rr.FinishedAt.Sub(rr.StartedAt)),
	)
	if err != nil {
		fmt.Fprintf(s.w, "  本轮异常：%s\n", Truncate(err.Error(), 160))
	}
	for _, it := range rr.Items {
		if it.Status != domain.StatusFailed && it.Status != domain.StatusUnmatched {
			continue
		}
		key := it.Stem
		if key == "" {
			key = "<unknown>"
		}
		line := fmt.Sprintf("  %s %s", key, it.Reason)
		if it.ErrorMsg != "" {
			line += ": " + Truncate(it.ErrorMsg, 160)
		}
		fmt.Fprintln(s.w, line)
	}
}

// IsTTY 判断 f 是否是字符设备（交互终端）。
func IsTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// ConfigFailure 处理配置阶段的失败：非 debug 模式只记日志并正常退出；debug 模式把错误交给调用方。
func ConfigFailure(log *logrus.Entry, debug bool, err error) error {
	if err == nil {
		return nil
	}
	if debug {
		return err
	}
	if code := config.Code(err); code != "" {
		log.WithField("error_code", code).Error(err.Error())
	} else {
		log.Error(err.Error())
	}
	return nil
}

// SignalContext 在收到 SIGINT/SIGTERM 时取消。
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func Truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func FormatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
