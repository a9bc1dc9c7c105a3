package run

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/avkit/internal/config"
	"github.com/John-Robertt/avkit/internal/domain"
)

func convertCfg(t *testing.T, dir string, mut func(*config.EffectiveConfig)) config.EffectiveConfig {
	t.Helper()
	eff, err := config.Resolve(dir, config.Options{})
	require.NoError(t, err)
	if mut != nil {
		mut(&eff)
	}
	return eff
}

func fixedNow(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestConverter_ConvertAndIdempotent(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-time.Hour)
	writeFile(t, filepath.Join(dir, "x.flv"), "x", old)
	writeFile(t, filepath.Join(dir, "y.flv"), "y", old)

	cfg := convertCfg(t, dir, nil)

	fr := &fakeRunner{}
	require.NoError(t, NewConverter(cfg, Deps{Runner: fr}).Run(context.Background()))
	assert.Equal(t, 2, fr.count())
	assert.Equal(t, "fresh:x.flv", readFile(t, filepath.Join(dir, "flv-to-mp4", "x.mp4")))
	assert.Equal(t, "fresh:y.flv", readFile(t, filepath.Join(dir, "flv-to-mp4", "y.mp4")))
	assert.True(t, exists(filepath.Join(dir, "x.flv")), "未指定 remove 时保留源文件")

	// 第二次运行（新进程，空记忆）：输出已存在，不应再调用 ffmpeg。
	fr2 := &fakeRunner{}
	obs := &recordObserver{}
	require.NoError(t, NewConverter(cfg, Deps{Runner: fr2, Obs: obs}).Run(context.Background()))
	assert.Equal(t, 0, fr2.count())
	require.Len(t, obs.items, 2)
	for _, it := range obs.items {
		assert.Equal(t, domain.ReasonAlreadyConverted, it.Reason)
	}
}

func TestConverter_RemuxArgs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "x.flv"), "x", time.Time{})

	fr := &fakeRunner{}
	c := NewConverter(convertCfg(t, dir, nil), Deps{Runner: fr})
	_, err := c.Scan(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, fr.count())
	assert.Equal(t,
		[]string{"-y", "-i", filepath.Join(dir, "x.flv"), "-vcodec", "copy", "-acodec", "copy", filepath.Join(dir, "x.mp4")},
		fr.calls[0],
	)
}

func TestConverter_FailureIsolationAndNoRetry(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-10 * time.Minute)
	writeFile(t, filepath.Join(dir, "x.flv"), "x", old)
	writeFile(t, filepath.Join(dir, "y.flv"), "y", old)
	writeFile(t, filepath.Join(dir, "z.flv"), "z", old)

	cfg := convertCfg(t, dir, func(e *config.EffectiveConfig) { e.Watch = true })
	require.NoError(t, config.CheckWorkDir(cfg))

	fr := &fakeRunner{failOn: map[string]bool{"x.flv": true}}
	c := NewConverter(cfg, Deps{Runner: fr})

	rr, err := c.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, fr.count(), "x 失败后 y、z 仍应被尝试")
	assert.Equal(t, domain.ReportSummary{Processed: 2, Failed: 1}, rr.Summary)
	assert.True(t, exists(filepath.Join(dir, "flv-to-mp4", "y.mp4")))
	assert.True(t, exists(filepath.Join(dir, "flv-to-mp4", "z.mp4")))
	assert.False(t, exists(filepath.Join(dir, "flv-to-mp4", "x.mp4")))
	assert.True(t, c.Record().Failed("x"))
	assert.True(t, c.Record().Succeeded("y"))

	// 同一进程的下一轮：x 不重试，y/z 被记忆跳过。
	rr, err = c.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, fr.count())
	reasons := map[string]string{}
	for _, it := range rr.Items {
		reasons[it.Stem] = it.Reason
	}
	assert.Equal(t, map[string]string{
		"x": domain.ReasonKnownFailed,
		"y": domain.ReasonKnownSucceeded,
		"z": domain.ReasonKnownSucceeded,
	}, reasons)
}

func TestConverter_RecentWriteGuard(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	src := filepath.Join(dir, "live.flv")
	writeFile(t, src, "x", now.Add(-10*time.Second))

	cfg := convertCfg(t, dir, func(e *config.EffectiveConfig) { e.Watch = true })
	fr := &fakeRunner{}
	c := NewConverter(cfg, Deps{Runner: fr, Now: fixedNow(now)})

	rr, err := c.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, fr.count())
	require.Len(t, rr.Items, 1)
	assert.Equal(t, domain.ReasonRecentWrite, rr.Items[0].Reason)

	writeFile(t, src, "x", now.Add(-120*time.Second))
	rr, err = c.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, fr.count())
	assert.Equal(t, 1, rr.Summary.Processed)
}

func TestConverter_ArchiveByDate(t *testing.T) {
	dir := t.TempDir()
	mtime := time.Date(2024, 3, 5, 21, 30, 0, 0, time.Local)
	writeFile(t, filepath.Join(dir, "show.flv"), "x", mtime)

	cfg := convertCfg(t, dir, func(e *config.EffectiveConfig) { e.Archive = true })
	fr := &fakeRunner{}
	require.NoError(t, NewConverter(cfg, Deps{Runner: fr}).Run(context.Background()))

	assert.Equal(t, "fresh:show.flv", readFile(t, filepath.Join(dir, "flv-to-mp4", "2024-3.5", "show.mp4")))

	// 归档目录内的产物同样参与幂等判定（递归检查）。
	fr2 := &fakeRunner{}
	require.NoError(t, NewConverter(cfg, Deps{Runner: fr2}).Run(context.Background()))
	assert.Equal(t, 0, fr2.count())
}

func TestConverter_StaleIntermediateReplaced(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "show.flv"), "x", time.Time{})
	writeFile(t, filepath.Join(dir, "show.mp4"), "stale", time.Time{})

	fr := &fakeRunner{}
	require.NoError(t, NewConverter(convertCfg(t, dir, nil), Deps{Runner: fr}).Run(context.Background()))

	assert.Equal(t, "fresh:show.flv", readFile(t, filepath.Join(dir, "flv-to-mp4", "show.mp4")))
	assert.False(t, exists(filepath.Join(dir, "show.mp4")))
}

func TestConverter_StaleIntermediateRemovedEvenOnFailure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "show.flv"), "x", time.Time{})
	writeFile(t, filepath.Join(dir, "show.mp4"), "stale", time.Time{})

	fr := &fakeRunner{failOn: map[string]bool{"show.flv": true}}
	c := NewConverter(convertCfg(t, dir, nil), Deps{Runner: fr})
	rr, err := c.Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, rr.Summary.Failed)
	assert.Equal(t, domain.ReasonTranscodeFailed, rr.Items[0].Reason)
	assert.False(t, exists(filepath.Join(dir, "show.mp4")), "残留文件不应被误认为本次产物")
	assert.False(t, exists(filepath.Join(dir, "flv-to-mp4", "show.mp4")))
}

func TestConverter_RemoveSourceAfterSuccess(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "x.flv")
	writeFile(t, src, "x", time.Time{})

	cfg := convertCfg(t, dir, func(e *config.EffectiveConfig) { e.Remove = true })
	fr := &fakeRunner{}
	// 使用默认的 500ms 延迟：Run 返回时删除必须已经完成，而不是仍在后台排队。
	require.NoError(t, NewConverter(cfg, Deps{Runner: fr}).Run(context.Background()))

	assert.True(t, exists(filepath.Join(dir, "flv-to-mp4", "x.mp4")))
	if exists(src) {
		t.Fatalf("Run 返回后源文件应已删除：%s", src)
	}
}

func TestConverter_RemoveDoesNotDelayBatch(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.flv", "b.flv", "c.flv"} {
		writeFile(t, filepath.Join(dir, name), name, time.Time{})
	}

	cfg := convertCfg(t, dir, func(e *config.EffectiveConfig) { e.Remove = true })
	c := NewConverter(cfg, Deps{Runner: &fakeRunner{}, RemoveDelay: 200 * time.Millisecond})

	start := time.Now()
	rr, err := c.Scan(context.Background())
	require.NoError(t, err)
	if d := time.Since(start); d >= 200*time.Millisecond {
		t.Fatalf("延迟删除不应阻塞本轮转换：%v", d)
	}
	assert.Equal(t, 3, rr.Summary.Processed)

	c.removals.Wait()
	for _, name := range []string{"a.flv", "b.flv", "c.flv"} {
		if exists(filepath.Join(dir, name)) {
			t.Fatalf("%s 应已删除", name)
		}
	}
}

func TestConverter_WatchCancelWaitsForRemoval(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "x.flv")
	writeFile(t, src, "x", time.Now().Add(-time.Hour))

	cfg := convertCfg(t, dir, func(e *config.EffectiveConfig) {
		e.Watch = true
		e.Remove = true
		e.Interval = time.Hour
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	obs := &recordObserver{stopAfter: 1, cancel: cancel}
	err := NewConverter(cfg, Deps{Runner: &fakeRunner{}, Obs: obs}).Run(ctx)
	require.True(t, errors.Is(err, context.Canceled), "err=%v", err)

	if exists(src) {
		t.Fatalf("watch 取消返回后源文件应已删除：%s", src)
	}
}

func TestConverter_RemoveSkippedOnFailure(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "x.flv")
	writeFile(t, src, "x", time.Time{})

	cfg := convertCfg(t, dir, func(e *config.EffectiveConfig) { e.Remove = true })
	fr := &fakeRunner{failOn: map[string]bool{"x.flv": true}}
	require.NoError(t, NewConverter(cfg, Deps{Runner: fr, RemoveDelay: time.Millisecond}).Run(context.Background()))

	time.Sleep(50 * time.Millisecond)
	assert.True(t, exists(src))
}

func TestConverter_NoFlvIsNoWork(t *testing.T) {
	dir := t.TempDir()
	obs := &recordObserver{}
	fr := &fakeRunner{}
	require.NoError(t, NewConverter(convertCfg(t, dir, nil), Deps{Runner: fr, Obs: obs}).Run(context.Background()))

	assert.Equal(t, 0, fr.count())
	assert.Equal(t, []int{1}, obs.scans)
	assert.True(t, exists(filepath.Join(dir, "flv-to-mp4")), "输出目录在启动时创建")
}

func TestConverter_MissingWorkDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	cfg := convertCfg(t, dir, nil)

	err := NewConverter(cfg, Deps{Runner: &fakeRunner{}}).Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, config.ErrCodeWorkDirNotFound, config.Code(err))
	assert.False(t, exists(cfg.OutputDir))
}

func TestConverter_WatchLoopSurvivesPanicAndCounts(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-time.Hour)
	writeFile(t, filepath.Join(dir, "x.flv"), "x", old)

	cfg := convertCfg(t, dir, func(e *config.EffectiveConfig) {
		e.Watch = true
		e.Interval = 5 * time.Millisecond
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fr := &fakeRunner{panicOnce: true}
	obs := &recordObserver{stopAfter: 3, cancel: cancel}
	c := NewConverter(cfg, Deps{Runner: fr, Obs: obs})

	err := c.Run(ctx)
	require.True(t, errors.Is(err, context.Canceled), "err=%v", err)

	assert.Equal(t, 3, c.Scans())
	assert.Equal(t, []int{1, 2, 3}, obs.scans)
	// 第一轮 panic 被限制在本轮内，第二轮正常转换，第三轮由记忆跳过。
	require.Error(t, obs.errs[0])
	assert.NoError(t, obs.errs[1])
	assert.NoError(t, obs.errs[2])
	assert.Equal(t, 2, fr.count())
	assert.True(t, exists(filepath.Join(dir, "flv-to-mp4", "x.mp4")))
}
