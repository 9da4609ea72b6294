// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sentiment 情感分类适配与情绪轨迹
package sentiment

import (
	"strings"
	"unicode"
)

// Label 固定的三类情感标签
type Label string

const (
	Positive Label = "positive"
	Neutral  Label = "neutral"
	Negative Label = "negative"
)

// Value positive=+1，neutral=0，negative=-1
func (l Label) Value() float64 {
	switch l {
	case Positive:
		return 1
	case Negative:
		return -1
	default:
		return 0
	}
}

// Valid 是否为三类标签之一
func (l Label) Valid() bool {
	return l == Positive || l == Neutral || l == Negative
}

// rawLabels 分类器原始标签到三类标签的映射：极性名、LABEL_n、星级、情绪名
var rawLabels = map[string]Label{
	"positive": Positive, "pos": Positive, "label_2": Positive,
	"neutral": Neutral, "neu": Neutral, "label_1": Neutral,
	"negative": Negative, "neg": Negative, "label_0": Negative,

	"1 star": Negative, "2 stars": Negative, "3 stars": Neutral, "4 stars": Positive, "5 stars": Positive,

	"joy": Positive, "love": Positive, "admiration": Positive, "amusement": Positive,
	"approval": Positive, "caring": Positive, "excitement": Positive, "gratitude": Positive,
	"optimism": Positive, "pride": Positive, "relief": Positive, "happy": Positive,

	"sadness": Negative, "anger": Negative, "fear": Negative, "disgust": Negative,
	"annoyance": Negative, "disappointment": Negative, "disapproval": Negative,
	"embarrassment": Negative, "grief": Negative, "nervousness": Negative, "remorse": Negative,
	"anxiety": Negative, "sad": Negative, "angry": Negative,

	"surprise": Neutral, "confusion": Neutral, "curiosity": Neutral,
	"realization": Neutral, "desire": Neutral,
}

// MapRaw 将原始标签归一到三类标签；无法识别时 ok=false
func MapRaw(raw string) (Label, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.TrimFunc(key, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
	l, ok := rawLabels[key]
	return l, ok
}
