package run

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/avkit/internal/domain"
)

// fakeRunner 模拟 ffmpeg：把“fresh:<输入文件名>”写到参数里的最后一个路径。
type fakeRunner struct {
	mu    sync.Mutex
	calls [][]string
	// failOn 中的文件名（任一输入参数的 basename）会让本次调用失败。
	failOn map[string]bool
	// panicOnce 为 true 时第一次调用直接 panic。
	panicOnce bool
}

func (f *fakeRunner) Run(ctx context.Context, args []string) error {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string(nil), args...))
	doPanic := f.panicOnce
	f.panicOnce = false
	f.mu.Unlock()

	if doPanic {
		panic("boom")
	}

	out := args[len(args)-1]
	var inputs []string
	for i := 0; i < len(args)-1; i++ {
		if args[i] == "-i" && i+1 < len(args) {
			inputs = append(inputs, args[i+1])
		}
	}
	for _, in := range inputs {
		if f.failOn[filepath.Base(in)] {
			return errors.New("exit status 1: Could not find tag for codec")
		}
	}
	return os.WriteFile(out, []byte("fresh:"+filepath.Base(inputs[0])), 0o644)
}

func (f *fakeRunner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type recordObserver struct {
	items []domain.ItemResult
	scans []int
	errs  []error

	// stopAfter > 0 时，在第 stopAfter 轮结束后调用 cancel。
	stopAfter int
	cancel    context.CancelFunc
}

func (o *recordObserver) OnItemDone(res domain.ItemResult) {
	o.items = append(o.items, res)
}

func (o *recordObserver) OnScanDone(n int, rr domain.ScanReport, err error) {
	o.scans = append(o.scans, n)
	o.errs = append(o.errs, err)
	if o.stopAfter > 0 && n >= o.stopAfter && o.cancel != nil {
		o.cancel()
	}
}

func writeFile(t *testing.T, path, content string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	if !mtime.IsZero() {
		require.NoError(t, os.Chtimes(path, mtime, mtime))
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
