package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/John-Robertt/avkit/internal/naming"
)

const (
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
	// ErrCodeWorkDirNotFound 表示工作目录不存在。
	ErrCodeWorkDirNotFound = "workdir_not_found"
)

const (
	// FileName 是可选配置文件名，位于命令的调用目录。
	FileName = "flv2mp4.yaml"
	// DefaultInterval 是 watch 模式两轮扫描之间的默认间隔。
	DefaultInterval = 30 * time.Second
	// DefaultTimeoutSeconds 与 DefaultInterval 对应，用于 CLI/交互默认值。
	DefaultTimeoutSeconds = 30
)

// Options 是一层配置来源（配置文件 / CLI / 交互问答）。
// nil 字段表示该层未指定，这样 --watch=false 也能覆盖配置文件中的 watch: true。
type Options struct {
	Cwd     *string `yaml:"cwd"`
	Output  *string `yaml:"output"`
	Watch   *bool   `yaml:"watch"`
	Timeout *int    `yaml:"timeout"`
	Archive *bool   `yaml:"archive"`
	Remove  *bool   `yaml:"remove"`
	Skip    *bool   `yaml:"skip"`
	Debug   *bool   `yaml:"debug"`
	FFmpeg  *string `yaml:"ffmpeg"`
}

// Overlay 返回 o 被 top 中已指定字段覆盖后的结果。
func (o Options) Overlay(top Options) Options {
	if top.Cwd != nil {
		o.Cwd = top.Cwd
	}
	if top.Output != nil {
		o.Output = top.Output
	}
	if top.Watch != nil {
		o.Watch = top.Watch
	}
	if top.Timeout != nil {
		o.Timeout = top.Timeout
	}
	if top.Archive != nil {
		o.Archive = top.Archive
	}
	if top.Remove != nil {
		o.Remove = top.Remove
	}
	if top.Skip != nil {
		o.Skip = top.Skip
	}
	if top.Debug != nil {
		o.Debug = top.Debug
	}
	if top.FFmpeg != nil {
		o.FFmpeg = top.FFmpeg
	}
	return o
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（核心流程直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	// WorkDir 是扫描 flv 的目录（绝对路径）。
	WorkDir string
	// OutputDir 是输出根目录（绝对路径），默认 <WorkDir>/flv-to-mp4。
	OutputDir string

	Watch    bool
	Interval time.Duration
	Archive  bool
	Remove   bool
	// Skip 恒为 true：不符合条件的文件总是被跳过。保留该字段以兼容 --skip 参数。
	Skip  bool
	Debug bool

	FFmpeg string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeWorkDirNotFound:
		return fmt.Sprintf("%s：工作目录不存在：%s", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// ReadFile 读取 <dir>/flv2mp4.yaml。文件不存在返回空 Options 且不报错。
func ReadFile(dir string) (Options, error) {
	path := filepath.Join(dir, FileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Options{}, nil
		}
		return Options{}, &Error{Code: ErrCodeInvalid, Path: path, Err: err}
	}
	var o Options
	if err := yaml.Unmarshal(b, &o); err != nil {
		return Options{}, &Error{Code: ErrCodeInvalid, Path: path, Err: err}
	}
	return o, nil
}

// Resolve 把合并后的 Options 规范化为最终配置。
//
// 约定（固定）：
// - 相对路径均以 base（命令调用目录）为基准
// - cwd 未指定 => base
// - output 未指定 => <cwd>/flv-to-mp4
// - timeout 取绝对值；0 或未指定 => 30 秒
// - skip 恒为 true
func Resolve(base string, o Options) (EffectiveConfig, error) {
	baseAbs, err := filepath.Abs(base)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: base, Err: err}
	}

	workDir := baseAbs
	if o.Cwd != nil && strings.TrimSpace(*o.Cwd) != "" {
		workDir = absCleanFrom(baseAbs, *o.Cwd)
	}

	outDir := filepath.Join(workDir, naming.ConvertOutputDir)
	if o.Output != nil && strings.TrimSpace(*o.Output) != "" {
		outDir = absCleanFrom(baseAbs, *o.Output)
	}

	ffmpeg := ""
	if o.FFmpeg != nil {
		ffmpeg = strings.TrimSpace(*o.FFmpeg)
	}

	return EffectiveConfig{
		WorkDir:   workDir,
		OutputDir: outDir,
		Watch:     boolOr(o.Watch, false),
		Interval:  intervalFrom(o.Timeout),
		Archive:   boolOr(o.Archive, false),
		Remove:    boolOr(o.Remove, false),
		Skip:      true,
		Debug:     boolOr(o.Debug, false),
		FFmpeg:    ffmpeg,
	}, nil
}

// CheckWorkDir 确认工作目录存在且是目录。
func CheckWorkDir(eff EffectiveConfig) error {
	fi, err := os.Stat(eff.WorkDir)
	if err != nil {
		if os.IsNotExist(err) {
			return &Error{Code: ErrCodeWorkDirNotFound, Path: eff.WorkDir, Err: err}
		}
		return &Error{Code: ErrCodeInvalid, Path: eff.WorkDir, Err: err}
	}
	if !fi.IsDir() {
		return &Error{Code: ErrCodeInvalid, Path: eff.WorkDir, Err: fmt.Errorf("不是目录")}
	}
	return nil
}

func intervalFrom(timeout *int) time.Duration {
	if timeout == nil || *timeout == 0 {
		return DefaultInterval
	}
	t := *timeout
	if t < 0 {
		t = -t
	}
	return time.Duration(t) * time.Second
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
// - p 若已是绝对路径：直接 Clean
// - p 若是相对路径：Join(base, p) 后 Clean
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}
