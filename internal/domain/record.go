package domain

// Outcome 是某个 stem 在本进程内最近一次转换的结果。
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeSucceeded
	OutcomeFailed
)

// ConversionRecord 是进程内的 {stem -> outcome} 记忆。
//
// 约束：
// - 进程启动时为空，只在本进程内有效，从不落盘
// - 只是缓存：输出目录里是否已有同名 mp4 才是幂等判断的唯一依据
// - 失败的 stem 在进程重启前不会被重试
// - 只由单一控制流读写，不加锁
type ConversionRecord struct {
	m map[string]Outcome
}

func NewConversionRecord() *ConversionRecord {
	return &ConversionRecord{m: make(map[string]Outcome)}
}

func (r *ConversionRecord) MarkSucceeded(stem string) { r.m[stem] = OutcomeSucceeded }

func (r *ConversionRecord) MarkFailed(stem string) { r.m[stem] = OutcomeFailed }

// Outcome 返回 stem 的记录；nil record 视为空。
func (r *ConversionRecord) Outcome(stem string) Outcome {
	if r == nil {
		return OutcomeUnknown
	}
	return r.m[stem]
}

func (r *ConversionRecord) Succeeded(stem string) bool { return r.Outcome(stem) == OutcomeSucceeded }

func (r *ConversionRecord) Failed(stem string) bool { return r.Outcome(stem) == OutcomeFailed }

// Len 返回已记录的 stem 数。
func (r *ConversionRecord) Len() int {
	if r == nil {
		return 0
	}
	return len(r.m)
}
