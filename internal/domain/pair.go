package domain

import "strings"

const (
	// AudioMarker / VideoMarker 是文件名约定：<key>_audio.<ext> 与 <key>_video.<ext> 为一组。
	AudioMarker = "_audio"
	VideoMarker = "_video"
)

// PairKey 是音频与视频共享的 stem（去掉 marker 后的部分）。
type PairKey string

// KeyFromStem 去掉 stem 末尾的 marker；stem 不以 marker 结尾时返回 false。
func KeyFromStem(stem, marker string) (PairKey, bool) {
	if !strings.HasSuffix(stem, marker) {
		return "", false
	}
	key := strings.TrimSuffix(stem, marker)
	if key == "" {
		return "", false
	}
	return PairKey(key), true
}

// Pair 是一次合并的工作单元。
type Pair struct {
	Key   PairKey
	Audio InputFile
	Video InputFile
}

// OutputName 返回合并产物的文件名：视频名去掉 marker，扩展名沿用视频。
func (p Pair) OutputName() string {
	return string(p.Key) + p.Video.Ext
}
