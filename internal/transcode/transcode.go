// Package transcode 封装对外部 ffmpeg 进程的同步调用。
//
// 核心流程只依赖 Runner 接口；两个固定的参数模板见 MergeArgs / RemuxArgs。
package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

// DefaultBin 是默认的 ffmpeg 可执行文件名（从 PATH 查找）。
const DefaultBin = "ffmpeg"

// stderr 只保留末尾这么多字节，足够定位 ffmpeg 的报错行。
const stderrTail = 4 << 10

// Runner 同步执行一次转码；返回 nil 表示成功。
type Runner interface {
	Run(ctx context.Context, args []string) error
}

// FFmpeg 是基于 os/exec 的 Runner 实现。
//
// 调用方传入的路径均为绝对路径，子进程沿用当前工作目录。
type FFmpeg struct {
	Bin string
	Log *logrus.Entry
}

var _ Runner = FFmpeg{}

// Run 阻塞直到 ffmpeg 退出。非 0 退出码或无法启动都返回 *Error。
func (f FFmpeg) Run(ctx context.Context, args []string) error {
	bin := f.Bin
	if bin == "" {
		bin = DefaultBin
	}
	if f.Log != nil {
		f.Log.Debugf("%s %s", bin, strings.Join(args, " "))
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}

	e := &Error{Args: append([]string(nil), args...), ExitCode: -1, Stderr: tail(stderr.String(), stderrTail), Err: err}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		e.ExitCode = ee.ExitCode()
	}
	return e
}

// CheckAvailable 确认 bin 可以在 PATH 中找到（或是可执行的路径）。
func CheckAvailable(bin string) error {
	if bin == "" {
		bin = DefaultBin
	}
	if _, err := exec.LookPath(bin); err != nil {
		return fmt.Errorf("未找到 %s，请确认已安装并加入 PATH：%w", bin, err)
	}
	return nil
}

// MergeArgs 合并一个视频与一个音频，两路流都直接 copy，不重编码。
//
//	ffmpeg -i <video> -i <audio> -vcodec copy -acodec copy <out>
func MergeArgs(video, audio, out string) []string {
	return []string{"-i", video, "-i", audio, "-vcodec", "copy", "-acodec", "copy", out}
}

// RemuxArgs 把 flv 重新封装为 mp4，只换容器不重编码。
// 容器装不下的流会让 ffmpeg 直接失败，由调用方记为转换失败。
//
//	ffmpeg -y -i <in> -vcodec copy -acodec copy <out>
func RemuxArgs(in, out string) []string {
	return []string{"-y", "-i", in, "-vcodec", "copy", "-acodec", "copy", out}
}

// Error 描述一次失败的 ffmpeg 调用。
type Error struct {
	Args     []string
	ExitCode int // -1 表示进程未能启动或被信号终止
	Stderr   string
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("ffmpeg 执行失败（exit=%d）：%v", e.ExitCode, e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += "\n" + s
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
