package main

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/John-Robertt/avkit/internal/app/run"
	"github.com/John-Robertt/avkit/internal/cli"
	"github.com/John-Robertt/avkit/internal/config"
	"github.com/John-Robertt/avkit/internal/infra/logx"
	"github.com/John-Robertt/avkit/internal/naming"
	"github.com/John-Robertt/avkit/internal/prompt"
	"github.com/John-Robertt/avkit/internal/transcode"
)

func main() {
	if err := newRootCmd(defaultEnv()).Execute(); err != nil {
		os.Exit(1)
	}
}

// env 收拢命令对进程环境的依赖，测试时整体替换。
type env struct {
	getwd    func() (string, error)
	stdout   io.Writer
	stderr   io.Writer
	jsonOut  bool
	prompter prompt.Prompter
	// runner 为空时使用真实 ffmpeg。
	runner func(eff config.EffectiveConfig, log *logrus.Entry) transcode.Runner
	// checkFFmpeg 为空时跳过可用性检查。
	checkFFmpeg func(bin string) error
	deps        run.Deps
}

func defaultEnv() env {
	return env{
		getwd:    os.Getwd,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		jsonOut:  !cli.IsTTY(os.Stdout),
		prompter: prompt.Survey{},
		runner: func(eff config.EffectiveConfig, log *logrus.Entry) transcode.Runner {
			return transcode.FFmpeg{Bin: eff.FFmpeg, Log: log}
		},
		checkFFmpeg: transcode.CheckAvailable,
	}
}

type flags struct {
	debug    bool
	inquirer bool
	watch    bool
	timeout  int
	archive  bool
	remove   bool
	skip     bool
	cwd      string
	output   string
	ffmpeg   string
}

func newRootCmd(e env) *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "flv2mp4",
		Short: "把目录下的 flv 录像无损转换为 mp4",
		Long: `扫描工作目录下的 .flv 文件，用 ffmpeg 无损转封装为 .mp4 并放入输出目录。

已存在同名 mp4（输出目录内递归查找）的文件会被跳过；
--watch 模式下按固定间隔重复扫描，并跳过最近 60 秒内仍在写入的文件。
可选配置文件：调用目录下的 ` + config.FileName + `（命令行参数优先）。`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConvert(cmd, e, f)
		},
	}

	fl := cmd.Flags()
	fl.BoolVarP(&f.debug, "debug", "d", false, "输出调试日志；配置错误时以非 0 退出")
	fl.BoolVarP(&f.inquirer, "inquirer", "q", false, "通过交互问答设置参数")
	fl.BoolVarP(&f.watch, "watch", "w", false, "监听目录，定时转换")
	fl.IntVarP(&f.timeout, "timeout", "t", config.DefaultTimeoutSeconds, "监听间隔（秒）")
	fl.BoolVarP(&f.archive, "archive", "a", false, "按文件修改日期归档（YYYY-M.D）")
	fl.BoolVarP(&f.remove, "remove", "r", false, "转换成功后删除源 flv 文件")
	fl.BoolVar(&f.skip, "skip", true, "跳过已转换的文件（始终生效）")
	fl.StringVarP(&f.cwd, "cwd", "c", "", "工作目录（默认当前目录）")
	fl.StringVarP(&f.output, "output", "o", "", "输出目录（默认 <cwd>/"+naming.ConvertOutputDir+"）")
	fl.StringVar(&f.ffmpeg, "ffmpeg", "", "ffmpeg 可执行文件路径（默认从 PATH 查找）")

	cmd.SetOut(e.stdout)
	cmd.SetErr(e.stderr)
	return cmd
}

// cliOptions 只收集显式传入的参数，未传入的参数不覆盖配置文件。
func cliOptions(cmd *cobra.Command, f flags) config.Options {
	var o config.Options
	ch := cmd.Flags().Changed
	if ch("cwd") {
		o.Cwd = &f.cwd
	}
	if ch("output") {
		o.Output = &f.output
	}
	if ch("watch") {
		o.Watch = &f.watch
	}
	if ch("timeout") {
		o.Timeout = &f.timeout
	}
	if ch("archive") {
		o.Archive = &f.archive
	}
	if ch("remove") {
		o.Remove = &f.remove
	}
	if ch("skip") {
		o.Skip = &f.skip
	}
	if ch("debug") {
		o.Debug = &f.debug
	}
	if ch("ffmpeg") {
		o.FFmpeg = &f.ffmpeg
	}
	return o
}

func runConvert(cmd *cobra.Command, e env, f flags) error {
	boot := logx.New(e.stderr, f.debug).WithField("tool", naming.ConvertOutputDir)

	base, err := e.getwd()
	if err != nil {
		return cli.ConfigFailure(boot, f.debug, err)
	}

	fileOpts, err := config.ReadFile(base)
	if err != nil {
		return cli.ConfigFailure(boot, f.debug, err)
	}
	opts := fileOpts.Overlay(cliOptions(cmd, f))

	if f.inquirer {
		ans, err := e.prompter.Ask(config.DefaultAnswers(base, opts))
		if err != nil {
			return cli.ConfigFailure(boot, f.debug, err)
		}
		opts = opts.Overlay(ans.Options())
	}

	eff, err := config.Resolve(base, opts)
	if err != nil {
		return cli.ConfigFailure(boot, f.debug, err)
	}

	log := logx.New(e.stderr, eff.Debug).WithField("tool", naming.ConvertOutputDir)
	log.Debugf("生效配置：%+v", eff)

	if e.checkFFmpeg != nil {
		if err := e.checkFFmpeg(eff.FFmpeg); err != nil {
			log.Warn(err.Error())
		}
	}

	d := e.deps
	d.Log = log
	if d.Runner == nil && e.runner != nil {
		d.Runner = e.runner(eff, log)
	}
	if d.Obs == nil {
		d.Obs = cli.NewSummary(e.stdout, e.jsonOut)
	}

	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	err = run.NewConverter(eff, d).Run(ctx)
	if errors.Is(err, context.Canceled) {
		log.Info("已停止监听")
		return nil
	}
	return cli.ConfigFailure(log, eff.Debug, err)
}
