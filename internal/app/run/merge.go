package run

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/John-Robertt/avkit/internal/app"
	"github.com/John-Robertt/avkit/internal/domain"
	"github.com/John-Robertt/avkit/internal/infra/fsx"
	"github.com/John-Robertt/avkit/internal/naming"
	"github.com/John-Robertt/avkit/internal/scan"
	"github.com/John-Robertt/avkit/internal/transcode"
)

// ExecuteMerge 在 dir 下查找 <key>_audio.* 与 <key>_video.*，逐对合并到 <dir>/audio-video-merger/。
//
// 该函数把错误“降级”为条目级失败：单对失败不影响其他对；只有扫描本身失败才体现为合成条目。
func ExecuteMerge(ctx context.Context, dir string, d Deps) domain.ScanReport {
	d = d.withDefaults()

	rr := domain.ScanReport{
		ScanID:    uuid.Must(uuid.NewV7()).String(),
		Dir:       dir,
		StartedAt: time.Now().UTC(),
		Items:     make([]domain.ItemResult, 0, 16),
	}
	log := d.Log.WithField("scan", rr.ScanID)
	finish := func() domain.ScanReport {
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		if d.Obs != nil {
			d.Obs.OnScanDone(1, rr, nil)
		}
		return rr
	}

	audio, err := scan.GlobMarker(dir, domain.AudioMarker)
	if err != nil {
		rr.Items = append(rr.Items, syntheticFailed(domain.ReasonIOFailed, fmt.Sprintf("扫描音频失败：%v", err)))
		return finish()
	}
	video, err := scan.GlobMarker(dir, domain.VideoMarker)
	if err != nil {
		rr.Items = append(rr.Items, syntheticFailed(domain.ReasonIOFailed, fmt.Sprintf("扫描视频失败：%v", err)))
		return finish()
	}

	if len(audio) == 0 {
		log.Info(dir)
		log.Info("当前目录下未发现可合并的音视频文件")
		return finish()
	}

	outDir := filepath.Join(dir, naming.MergeOutputDir)
	if err := fsx.EnsureDir(outDir); err != nil {
		rr.Items = append(rr.Items, syntheticFailed(domain.ReasonIOFailed, fmt.Sprintf("创建输出目录失败：%v", err)))
		return finish()
	}

	pairs, unmatched := app.PairByKey(audio, video)
	log.Debugf("audio=%d video=%d pairs=%d unmatched=%d", len(audio), len(video), len(pairs), len(unmatched))

	for _, a := range unmatched {
		log.WithField("file", a.Name()).Infof("未找到【%s】对应的视频文件", a.AbsPath)
		res := domain.ItemResult{
			Stem:   a.Stem,
			Src:    a.AbsPath,
			Status: domain.StatusUnmatched,
			Reason: domain.ReasonUnmatchedPair,
		}
		rr.Items = append(rr.Items, res)
		d.itemDone(res)
	}

	for _, p := range pairs {
		res := mergeOne(ctx, d, log.WithField("file", string(p.Key)), outDir, p)
		rr.Items = append(rr.Items, res)
		d.itemDone(res)
	}

	return finish()
}

func mergeOne(ctx context.Context, d Deps, log logEntry, outDir string, p domain.Pair) domain.ItemResult {
	started := d.Now()
	dst := filepath.Join(outDir, p.OutputName())
	res := domain.ItemResult{
		Stem:   string(p.Key),
		Src:    p.Video.AbsPath,
		Dst:    dst,
		Status: domain.StatusProcessed, // 失败时覆盖
	}

	if fsx.Exists(dst) {
		log.Infof("【%s】的合并文件已存在", p.Key)
		res.Status = domain.StatusSkipped
		res.Reason = domain.ReasonAlreadyConverted
		return res
	}

	// 移除合并出错或没合并完成的旧文件，避免 ffmpeg 拒绝覆盖或产物混淆。
	intermediate := naming.MergeIntermediate(p)
	if removed, err := fsx.RemoveIfExists(intermediate); err != nil {
		return fail(log, res, domain.ReasonIOFailed, fmt.Errorf("清理旧的中间文件失败：%w", err))
	} else if removed {
		log.Debugf("已清理旧的中间文件：%s", intermediate)
	}

	log.Infof("正在合并：%s", p.Key)
	if err := d.Runner.Run(ctx, transcode.MergeArgs(p.Video.AbsPath, p.Audio.AbsPath, intermediate)); err != nil {
		return fail(log, res, domain.ReasonTranscodeFailed, fmt.Errorf("%s合并失败：%w", p.Audio.AbsPath, err))
	}

	if err := fsx.Move(intermediate, dst); err != nil {
		return fail(log, res, domain.ReasonStageFailed, fmt.Errorf("%s合并结果移动失败：%w", p.Audio.AbsPath, err))
	}

	res.Duration = d.Now().Sub(started)
	log.Infof("合并成功，耗时：%.2fs", res.Duration.Seconds())
	return res
}
