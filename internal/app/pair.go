package app

import (
	"github.com/John-Robertt/avkit/internal/domain"
)

// PairByKey 把音频文件与视频文件按 PairKey 配对。
//
// - 每个音频文件按 stem 去掉 _audio 得到 key，再找 stem == key+"_video" 的视频
// - 多个视频同时匹配时取枚举顺序中的第一个（顺序由 scan 保证稳定）
// - 找不到视频的音频进入 unmatched（视频可能还没录完，不是错误）
// - pairs 保持音频的枚举顺序
func PairByKey(audio, video []domain.InputFile) (pairs []domain.Pair, unmatched []domain.InputFile) {
	index := make(map[domain.PairKey]int, len(video))
	for i := range video {
		k, ok := domain.KeyFromStem(video[i].Stem, domain.VideoMarker)
		if !ok {
			continue
		}
		if _, dup := index[k]; dup {
			continue
		}
		index[k] = i
	}

	pairs = make([]domain.Pair, 0, len(audio))
	unmatched = make([]domain.InputFile, 0)
	for _, a := range audio {
		k, ok := domain.KeyFromStem(a.Stem, domain.AudioMarker)
		if !ok {
			unmatched = append(unmatched, a)
			continue
		}
		vi, ok := index[k]
		if !ok {
			unmatched = append(unmatched, a)
			continue
		}
		pairs = append(pairs, domain.Pair{Key: k, Audio: a, Video: video[vi]})
	}
	return pairs, unmatched
}
