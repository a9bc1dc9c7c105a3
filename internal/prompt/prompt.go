// Package prompt 通过终端问答收集 flv2mp4 的运行配置。
//
// 问答只产出 config.Answers；是否采用、如何与其它配置层合并由调用方决定。
package prompt

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"

	"github.com/John-Robertt/avkit/internal/config"
	"github.com/John-Robertt/avkit/internal/naming"
)

// Prompter 以 defaults 为初始值询问用户，返回最终答案。
type Prompter interface {
	Ask(defaults config.Answers) (config.Answers, error)
}

// 多选框中的选项文本。
const (
	OptWatch   = "watch：监听目录并定时转换"
	OptArchive = "archive：按日期归档转换结果"
	OptRemove  = "remove：转换成功后删除源文件"
	OptSkip    = "skip：跳过已转换的文件"
	OptDebug   = "debug：输出调试日志"
)

var allOptions = []string{OptWatch, OptArchive, OptRemove, OptSkip, OptDebug}

// Survey 是基于 survey/v2 的终端问答。
type Survey struct {
	// Opts 透传给 survey.AskOne（测试或非标准终端可用 survey.WithStdio 替换输入输出）。
	Opts []survey.AskOpt
}

var _ Prompter = Survey{}

func (s Survey) Ask(def config.Answers) (config.Answers, error) {
	a := def

	if err := survey.AskOne(&survey.Input{
		Message: "工作目录（flv 文件所在目录）：",
		Default: def.Cwd,
	}, &a.Cwd, s.Opts...); err != nil {
		return def, err
	}

	if err := survey.AskOne(&survey.Input{
		Message: "输出目录：",
		Default: outputDefault(def, a.Cwd),
	}, &a.Output, s.Opts...); err != nil {
		return def, err
	}

	var sel []string
	if err := survey.AskOne(&survey.MultiSelect{
		Message: "选择要启用的功能：",
		Options: allOptions,
		Default: Selected(def),
	}, &sel, s.Opts...); err != nil {
		return def, err
	}
	a = ApplySelected(a, sel)

	if a.Watch {
		var raw string
		if err := survey.AskOne(&survey.Input{
			Message: "监听间隔（秒）：",
			Default: strconv.Itoa(def.Timeout),
		}, &raw, append(s.Opts, survey.WithValidator(validateTimeout))...); err != nil {
			return def, err
		}
		t, err := ParseTimeout(raw)
		if err != nil {
			return def, err
		}
		a.Timeout = t
		a.TimeoutSet = true
	}

	return a, nil
}

// outputDefault 在用户改了工作目录、且原输出目录是默认值时，让输出目录跟随新的工作目录。
func outputDefault(def config.Answers, cwd string) string {
	if def.Output == filepath.Join(def.Cwd, naming.ConvertOutputDir) && cwd != def.Cwd && strings.TrimSpace(cwd) != "" {
		return filepath.Join(cwd, naming.ConvertOutputDir)
	}
	return def.Output
}

// Selected 返回 a 中已开启的选项，作为多选框的默认勾选。
func Selected(a config.Answers) []string {
	out := make([]string, 0, len(allOptions))
	for _, opt := range allOptions {
		if *field(&a, opt) {
			out = append(out, opt)
		}
	}
	return out
}

// ApplySelected 按多选结果覆盖 a 的开关字段；未勾选即关闭。
func ApplySelected(a config.Answers, sel []string) config.Answers {
	on := make(map[string]bool, len(sel))
	for _, s := range sel {
		on[s] = true
	}
	for _, opt := range allOptions {
		*field(&a, opt) = on[opt]
	}
	return a
}

func field(a *config.Answers, opt string) *bool {
	switch opt {
	case OptWatch:
		return &a.Watch
	case OptArchive:
		return &a.Archive
	case OptRemove:
		return &a.Remove
	case OptSkip:
		return &a.Skip
	case OptDebug:
		return &a.Debug
	}
	panic("unknown option: " + opt)
}

// ParseTimeout 解析监听间隔（秒），允许负数（之后取绝对值），0 表示使用默认值。
func ParseTimeout(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return config.DefaultTimeoutSeconds, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("监听间隔必须是整数秒，实际是 %q", raw)
	}
	return n, nil
}

func validateTimeout(ans interface{}) error {
	s, ok := ans.(string)
	if !ok {
		return fmt.Errorf("无法识别的输入：%v", ans)
	}
	_, err := ParseTimeout(s)
	return err
}
