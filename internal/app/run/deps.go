package run

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/John-Robertt/avkit/internal/domain"
	"github.com/John-Robertt/avkit/internal/infra/logx"
	"github.com/John-Robertt/avkit/internal/transcode"
)

// DefaultRemoveDelay 是转换成功后删除源 flv 前的等待时间。
const DefaultRemoveDelay = 500 * time.Millisecond

// Deps 是核心流程依赖的外部协作者；零值字段会被替换为默认实现。
type Deps struct {
	Runner transcode.Runner
	Log    *logrus.Entry
	Obs    Observer

	// Now 用于 mtime 判定与耗时统计，测试可替换。
	Now func() time.Time
	// RemoveDelay 为 0 时使用 DefaultRemoveDelay。
	RemoveDelay time.Duration
}

func (d Deps) withDefaults() Deps {
	if d.Runner == nil {
		d.Runner = transcode.FFmpeg{}
	}
	if d.Log == nil {
		d.Log = logx.Discard()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.RemoveDelay <= 0 {
		d.RemoveDelay = DefaultRemoveDelay
	}
	return d
}

func (d Deps) itemDone(res domain.ItemResult) {
	if d.Obs != nil {
		d.Obs.OnItemDone(res)
	}
}
