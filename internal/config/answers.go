package config

import (
	"path/filepath"
	"strings"

	"github.com/John-Robertt/avkit/internal/naming"
)

// Answers 是交互问答收集到的完整配置（问答本身由外部协作者实现，这里只定义交换格式）。
type Answers struct {
	Cwd    string
	Output string

	Watch   bool
	Archive bool
	Remove  bool
	Skip    bool
	Debug   bool

	// Timeout 只有在选择 watch 时才会被询问；TimeoutSet=false 表示沿用下层配置。
	Timeout    int
	TimeoutSet bool
}

// DefaultAnswers 以当前合并结果为交互问答提供默认值。
func DefaultAnswers(base string, o Options) Answers {
	baseAbs, err := filepath.Abs(base)
	if err != nil {
		baseAbs = filepath.Clean(base)
	}

	cwd := baseAbs
	if o.Cwd != nil && strings.TrimSpace(*o.Cwd) != "" {
		cwd = absCleanFrom(baseAbs, *o.Cwd)
	}
	out := filepath.Join(cwd, naming.ConvertOutputDir)
	if o.Output != nil && strings.TrimSpace(*o.Output) != "" {
		out = absCleanFrom(baseAbs, *o.Output)
	}

	timeout := DefaultTimeoutSeconds
	if o.Timeout != nil && *o.Timeout != 0 {
		timeout = *o.Timeout
	}

	return Answers{
		Cwd:     cwd,
		Output:  out,
		Watch:   boolOr(o.Watch, false),
		Archive: boolOr(o.Archive, false),
		Remove:  boolOr(o.Remove, false),
		Skip:    boolOr(o.Skip, true),
		Debug:   boolOr(o.Debug, false),
		Timeout: timeout,
	}
}

// Options 把问答结果转换为一层配置；问答层优先级最高。
func (a Answers) Options() Options {
	o := Options{
		Cwd:     &a.Cwd,
		Output:  &a.Output,
		Watch:   &a.Watch,
		Archive: &a.Archive,
		Remove:  &a.Remove,
		Skip:    &a.Skip,
		Debug:   &a.Debug,
	}
	if strings.TrimSpace(a.Cwd) == "" {
		o.Cwd = nil
	}
	if strings.TrimSpace(a.Output) == "" {
		o.Output = nil
	}
	if a.TimeoutSet {
		o.Timeout = &a.Timeout
	}
	return o
}
