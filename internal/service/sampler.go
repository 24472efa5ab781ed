package service

import "math/rand/v2"

// Sampler 打乱候选题目顺序；测试中替换为确定性实现
type Sampler interface {
	Shuffle(ids []string)
}

// RandomSampler 使用 math/rand/v2 的全局源，可并发使用
type RandomSampler struct{}

func (RandomSampler) Shuffle(ids []string) {
	rand.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
}
