package sentiment

import (
	"context"
)

// Prediction 分类器原始输出
type Prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"` // 置信度 [0,1]
}

// Backend 情感/情绪分类后端
type Backend interface {
	Classify(ctx context.Context, text string) (Prediction, error)
	Name() string
}
