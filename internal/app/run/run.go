package run

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/John-Robertt/avkit/internal/app/planner"
	"github.com/John-Robertt/avkit/internal/config"
	"github.com/John-Robertt/avkit/internal/domain"
	"github.com/John-Robertt/avkit/internal/infra/fsx"
	"github.com/John-Robertt/avkit/internal/naming"
	"github.com/John-Robertt/avkit/internal/scan"
	"github.com/John-Robertt/avkit/internal/transcode"
)

type logEntry = *logrus.Entry

// Converter 执行 flv -> mp4 的转换流程，并持有本进程的 ConversionRecord。
//
// 约束：
// - 所有文件串行处理；ffmpeg 调用阻塞整个流程
// - ConversionRecord 只由 Converter 读写，进程退出即丢弃
type Converter struct {
	cfg    config.EffectiveConfig
	deps   Deps
	record *domain.ConversionRecord
	scans  int

	// removals 跟踪尚未完成的延迟删除；Run 返回前等待它们结束。
	removals sync.WaitGroup
}

func NewConverter(cfg config.EffectiveConfig, d Deps) *Converter {
	return &Converter{
		cfg:    cfg,
		deps:   d.withDefaults(),
		record: domain.NewConversionRecord(),
	}
}

// Record 返回本进程的转换记忆（只读使用）。
func (c *Converter) Record() *domain.ConversionRecord { return c.record }

// Scans 返回已完成的扫描轮数。
func (c *Converter) Scans() int { return c.scans }

// Run 校验工作目录、准备输出目录，然后执行一次扫描或进入 watch 循环。
// 返回的错误都属于配置级失败（或 watch 被 ctx 取消）。
// 返回前会等待已排期的源文件删除完成，删除本身不阻塞转换流程。
func (c *Converter) Run(ctx context.Context) error {
	log := c.deps.Log
	log.Debugf("输入输出目录：%s %s", c.cfg.WorkDir, c.cfg.OutputDir)

	if err := config.CheckWorkDir(c.cfg); err != nil {
		return err
	}

	if !fsx.Exists(c.cfg.OutputDir) {
		if err := fsx.EnsureDir(c.cfg.OutputDir); err != nil {
			return &config.Error{Code: config.ErrCodeInvalid, Path: c.cfg.OutputDir, Err: err}
		}
		log.Infof("转换结果存放目录创建成功：%s", c.cfg.OutputDir)
	}

	defer c.removals.Wait()

	if c.cfg.Watch {
		return c.Watch(ctx)
	}

	rr, err := c.Scan(ctx)
	c.scans++
	if c.deps.Obs != nil {
		c.deps.Obs.OnScanDone(c.scans, rr, err)
	}
	return err
}

// Watch 按固定间隔重复扫描，直到 ctx 被取消。
//
// 每一轮相互独立：单轮的错误（包括 panic）只记日志，不影响下一轮的调度。
// 上一轮全部完成后才开始计时，因此两轮之间不会重叠。
func (c *Converter) Watch(ctx context.Context) error {
	log := c.deps.Log
	for {
		rr, err := c.scanSafely(ctx)
		if err != nil {
			log.Errorf("本轮转换检查出错：%v", err)
		}

		c.scans++
		log.Infof("[Watching] 已执行 %d 次", c.scans)
		if c.deps.Obs != nil {
			c.deps.Obs.OnScanDone(c.scans, rr, err)
		}

		t := time.NewTimer(c.cfg.Interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (c *Converter) scanSafely(ctx context.Context) (rr domain.ScanReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("扫描过程异常：%v", r)
		}
	}()
	return c.Scan(ctx)
}

// Scan 执行一轮 discovery -> filter -> convert -> staging。
// 单个文件的失败被限制在该文件内；返回的 error 只表示本轮无法进行（例如无法列目录）。
func (c *Converter) Scan(ctx context.Context) (domain.ScanReport, error) {
	rr := domain.ScanReport{
		ScanID:    uuid.Must(uuid.NewV7()).String(),
		Dir:       c.cfg.WorkDir,
		StartedAt: time.Now().UTC(),
		Items:     make([]domain.ItemResult, 0, 16),
	}
	log := c.deps.Log.WithField("scan", rr.ScanID)
	finish := func(err error) (domain.ScanReport, error) {
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		return rr, err
	}

	flvs, err := scan.Glob(c.cfg.WorkDir, "*.flv")
	if err != nil {
		return finish(fmt.Errorf("扫描 flv 失败：%w", err))
	}
	outputs, err := scan.OutputStems(c.cfg.OutputDir, ".mp4")
	if err != nil {
		return finish(fmt.Errorf("扫描输出目录失败：%w", err))
	}

	if len(flvs) == 0 {
		log.Info(c.cfg.WorkDir)
		log.Info("当前目录下未发现flv文件")
		return finish(nil)
	}

	in := planner.Input{
		Watch:   c.cfg.Watch,
		Now:     c.deps.Now(),
		Outputs: outputs,
		Record:  c.record,
	}

	for _, f := range flvs {
		flog := log.WithField("file", f.Name())

		var res domain.ItemResult
		dec := planner.Decide(f, in)
		if dec.Action == planner.ActionSkip {
			res = skipped(flog, f, dec)
		} else {
			res = c.convertOne(ctx, flog, f)
		}

		rr.Items = append(rr.Items, res)
		c.deps.itemDone(res)
	}

	return finish(nil)
}

func skipped(log logEntry, f domain.InputFile, dec planner.Decision) domain.ItemResult {
	msg := ""
	switch dec.Reason {
	case domain.ReasonKnownSucceeded:
		msg = fmt.Sprintf("%s 文件已转换过", f.Stem)
	case domain.ReasonAlreadyConverted:
		msg = fmt.Sprintf("%s的mp4版本的文件已存在", f.Stem)
	case domain.ReasonKnownFailed:
		msg = fmt.Sprintf("%s 转换异常文件，已跳过", f.Stem)
	case domain.ReasonRecentWrite:
		msg = fmt.Sprintf("%s 文件内容最近仍在修改，可能还未录制结束，暂时跳过", f.Stem)
	default:
		msg = fmt.Sprintf("%s 已跳过（%s）", f.Stem, dec.Reason)
	}
	if dec.Quiet {
		log.Debug(msg)
	} else {
		log.Info(msg)
	}

	return domain.ItemResult{
		Stem:   f.Stem,
		Src:    f.AbsPath,
		Status: domain.StatusSkipped,
		Reason: dec.Reason,
	}
}

func (c *Converter) convertOne(ctx context.Context, log logEntry, f domain.InputFile) domain.ItemResult {
	started := c.deps.Now()
	dst := planner.DestPath(c.cfg.OutputDir, c.cfg.Archive, f)
	res := domain.ItemResult{
		Stem:   f.Stem,
		Src:    f.AbsPath,
		Dst:    dst,
		Status: domain.StatusProcessed, // 失败时覆盖
	}

	log.Infof("正在转换：%s", f.AbsPath)

	// 移除转换出错或没转换完成的旧文件，避免把残留当成本次产物。
	intermediate := naming.RemuxIntermediate(f)
	if removed, err := fsx.RemoveIfExists(intermediate); err != nil {
		c.record.MarkFailed(f.Stem)
		return fail(log, res, domain.ReasonIOFailed, fmt.Errorf("清理旧的中间文件失败：%w", err))
	} else if removed {
		log.Debugf("已清理旧的中间文件：%s", intermediate)
	}

	if err := c.deps.Runner.Run(ctx, transcode.RemuxArgs(f.AbsPath, intermediate)); err != nil {
		c.record.MarkFailed(f.Stem)
		return fail(log, res, domain.ReasonTranscodeFailed, fmt.Errorf("%s转换失败：%w", f.Stem, err))
	}

	if err := fsx.EnsureDir(planner.DestDir(c.cfg.OutputDir, c.cfg.Archive, f)); err != nil {
		c.record.MarkFailed(f.Stem)
		return fail(log, res, domain.ReasonStageFailed, fmt.Errorf("创建归档目录失败：%w", err))
	}
	if err := fsx.Move(intermediate, dst); err != nil {
		c.record.MarkFailed(f.Stem)
		return fail(log, res, domain.ReasonStageFailed, fmt.Errorf("%s转换结果移动失败：%w", f.Stem, err))
	}

	res.Duration = c.deps.Now().Sub(started)
	log.Infof("转换成功，耗时：%.2fs", res.Duration.Seconds())

	if c.cfg.Remove {
		fsx.RemoveLater(&c.removals, f.AbsPath, c.deps.RemoveDelay, func(err error) {
			log.Debugf("删除源文件失败（已忽略）：%v", err)
		})
	}

	c.record.MarkSucceeded(f.Stem)
	return res
}

func fail(log logEntry, res domain.ItemResult, reason string, err error) domain.ItemResult {
	log.Error(err.Error())
	res.Status = domain.StatusFailed
	res.Reason = reason
	res.ErrorMsg = err.Error()
	return res
}

func syntheticFailed(reason, msg string) domain.ItemResult {
	return domain.ItemResult{
		Status:   domain.StatusFailed,
		Reason:   reason,
		ErrorMsg: msg,
	}
}
