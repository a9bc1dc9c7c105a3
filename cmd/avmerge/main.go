package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/avkit/internal/app/run"
	"github.com/John-Robertt/avkit/internal/cli"
	"github.com/John-Robertt/avkit/internal/infra/logx"
	"github.com/John-Robertt/avkit/internal/naming"
	"github.com/John-Robertt/avkit/internal/transcode"
)

func main() {
	if err := newRootCmd(defaultEnv()).Execute(); err != nil {
		os.Exit(1)
	}
}

type env struct {
	getwd   func() (string, error)
	stdout  io.Writer
	stderr  io.Writer
	jsonOut bool
	// runner 为空时使用真实 ffmpeg。
	runner      transcode.Runner
	checkFFmpeg func(bin string) error
}

func defaultEnv() env {
	return env{
		getwd:       os.Getwd,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		jsonOut:     !cli.IsTTY(os.Stdout),
		checkFFmpeg: transcode.CheckAvailable,
	}
}

func newRootCmd(e env) *cobra.Command {
	var (
		debug  bool
		ffmpeg string
	)

	cmd := &cobra.Command{
		Use:   "avmerge",
		Short: "把当前目录下的 <名称>_audio.* 与 <名称>_video.* 合并为一个文件",
		Long: `在当前目录查找 <名称>_audio.* 与同名的 <名称>_video.*，
用 ffmpeg 无损合并为 <名称>.<视频扩展名>，输出到 ./` + naming.MergeOutputDir + `/。
输出已存在的组合会被跳过；找不到视频的音频文件只记录日志。`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logx.New(e.stderr, debug).WithField("tool", naming.MergeOutputDir)

			dir, err := e.getwd()
			if err != nil {
				return cli.ConfigFailure(log, debug, err)
			}

			if e.checkFFmpeg != nil {
				if err := e.checkFFmpeg(ffmpeg); err != nil {
					log.Warn(err.Error())
				}
			}

			r := e.runner
			if r == nil {
				r = transcode.FFmpeg{Bin: ffmpeg, Log: log}
			}

			ctx, stop := cli.SignalContext(cmd.Context())
			defer stop()

			run.ExecuteMerge(ctx, dir, run.Deps{
				Runner: r,
				Log:    log,
				Obs:    cli.NewSummary(e.stdout, e.jsonOut),
			})
			return nil
		},
	}

	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "输出调试日志")
	cmd.Flags().StringVar(&ffmpeg, "ffmpeg", "", "ffmpeg 可执行文件路径（默认从 PATH 查找）")
	cmd.SetOut(e.stdout)
	cmd.SetErr(e.stderr)
	return cmd
}
