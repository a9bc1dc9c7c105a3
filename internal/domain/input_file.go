package domain

import (
	"path/filepath"
	"time"
)

// InputFile 描述一次扫描得到的源媒体文件（只做 stat，不读内容）。
//
// 不变量（实现必须遵守）：
// - AbsPath 必须是 clean + absolute
// - 每轮扫描重新读取，不跨轮复用
type InputFile struct {
	AbsPath string
	Stem    string // filename without ext
	Ext     string // ".flv"，保留原始大小写
	Size    int64
	ModTime time.Time
}

// Dir 返回文件所在目录。
func (f InputFile) Dir() string { return filepath.Dir(f.AbsPath) }

// Name 返回带扩展名的文件名。
func (f InputFile) Name() string { return f.Stem + f.Ext }
