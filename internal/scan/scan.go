package scan

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/John-Robertt/avkit/internal/domain"
	"github.com/John-Robertt/avkit/internal/naming"
)

// Glob 列出 dir 下（不递归）文件名匹配 pattern 的普通文件。
//
// 规则：
// - pattern 使用 filepath.Match 语法，只匹配文件名
// - 返回的 AbsPath 均为 clean + absolute
// - 输出按文件名字典序排列（枚举顺序稳定）
//
// 注意：扫描阶段只做 stat（DirEntry.Info），不读文件内容。
func Glob(dir, pattern string) ([]domain.InputFile, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, err
	}

	files := make([]domain.InputFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if ok, _ := filepath.Match(pattern, name); !ok {
			continue
		}

		info, err := e.Info()
		if err != nil {
			// 枚举与 stat 之间文件被删除：视为本轮不存在。
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		if !info.Mode().IsRegular() {
			continue
		}

		stem, ext := naming.Stem(name)
		files = append(files, domain.InputFile{
			AbsPath: filepath.Join(abs, name),
			Stem:    stem,
			Ext:     ext,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].AbsPath < files[j].AbsPath })
	return files, nil
}

// GlobMarker 列出 dir 下形如 *<marker>.* 且 stem 以 marker 结尾的文件。
func GlobMarker(dir, marker string) ([]domain.InputFile, error) {
	files, err := Glob(dir, "*"+marker+".*")
	if err != nil {
		return nil, err
	}
	out := files[:0]
	for _, f := range files {
		if _, ok := domain.KeyFromStem(f.Stem, marker); ok {
			out = append(out, f)
		}
	}
	return out, nil
}

// OutputStems 递归收集 root 下扩展名为 ext 的文件 stem（用于“已转换”判定）。
// root 不存在时返回空集合且不报错。
func OutputStems(root, ext string) (map[string]struct{}, error) {
	stems := map[string]struct{}{}

	root = filepath.Clean(root)
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return stems, nil
		}
		return nil, err
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if filepath.Ext(name) != ext {
			return nil
		}
		stems[strings.TrimSuffix(name, ext)] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stems, nil
}
