package naming

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/John-Robertt/avkit/internal/domain"
)

// 固定的输出子目录名（相对工作目录）。
const (
	MergeOutputDir   = "audio-video-merger"
	ConvertOutputDir = "flv-to-mp4"
)

// Stem 返回去掉最后一个扩展名的文件名，以及该扩展名。
func Stem(name string) (stem, ext string) {
	name = filepath.Base(name)
	ext = filepath.Ext(name)
	return strings.TrimSuffix(name, ext), ext
}

// ArchiveDir 返回按日期归档的目录名：YYYY-M.D。
// 月、日不补零（2024-03-05 => "2024-3.5"），与历史产物保持一致。
func ArchiveDir(t time.Time) string {
	return fmt.Sprintf("%d-%d.%d", t.Year(), int(t.Month()), t.Day())
}

// RemuxIntermediate 返回 flv 转换时 ffmpeg 的输出位置：与源文件同目录、同 stem、扩展名为 .mp4。
func RemuxIntermediate(src domain.InputFile) string {
	return filepath.Join(src.Dir(), src.Stem+".mp4")
}

// MergeIntermediate 返回合并时 ffmpeg 的输出位置：与视频文件同目录。
func MergeIntermediate(p domain.Pair) string {
	return filepath.Join(p.Video.Dir(), p.OutputName())
}
