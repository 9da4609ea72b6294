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

package splitter

import (
	"strings"
	"unicode/utf8"
)

// DefaultSeparators 由粗到细的分隔符，"" 表示按字符切分
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// RecursiveSplitter 递归字符切片器：先按粗分隔符切，超长片段再用更细的分隔符切，
// 然后合并相邻片段直到 chunkSize，相邻 chunk 之间保留不超过 chunkOverlap 的重叠。长度按 rune 计。
type RecursiveSplitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// NewRecursiveSplitter 创建递归切片器；overlap 必须小于 size，否则取 size/3
func NewRecursiveSplitter(chunkSize, chunkOverlap int) *RecursiveSplitter {
	if chunkSize <= 0 {
		chunkSize = 300
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 3
	}
	return &RecursiveSplitter{chunkSize: chunkSize, chunkOverlap: chunkOverlap, separators: DefaultSeparators}
}

// Name 返回切片器名称
func (s *RecursiveSplitter) Name() string {
	return "recursive_character"
}

// Split 切分文本，返回非空 chunk 列表
func (s *RecursiveSplitter) Split(text string) []string {
	return s.split(text, s.separators)
}

func (s *RecursiveSplitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var rest []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	var pieces []string
	for _, p := range strings.Split(text, separator) {
		if p != "" {
			pieces = append(pieces, p)
		}
	}

	var out, good []string
	for _, p := range pieces {
		if runeLen(p) < s.chunkSize {
			good = append(good, p)
			continue
		}
		if len(good) > 0 {
			out = append(out, s.merge(good, separator)...)
			good = nil
		}
		if len(rest) == 0 {
			out = append(out, p)
		} else {
			out = append(out, s.split(p, rest)...)
		}
	}
	if len(good) > 0 {
		out = append(out, s.merge(good, separator)...)
	}
	return out
}

// merge 合并片段至 chunkSize，滑出窗口时保留尾部 chunkOverlap 作为下一块开头
func (s *RecursiveSplitter) merge(pieces []string, separator string) []string {
	sepLen := runeLen(separator)
	var docs, current []string
	total := 0
	joinCost := func() int {
		if len(current) > 0 {
			return sepLen
		}
		return 0
	}
	for _, p := range pieces {
		l := runeLen(p)
		if total+l+joinCost() > s.chunkSize && len(current) > 0 {
			if doc := strings.TrimSpace(strings.Join(current, separator)); doc != "" {
				docs = append(docs, doc)
			}
			for total > s.chunkOverlap || (total > 0 && total+l+joinCost() > s.chunkSize) {
				drop := runeLen(current[0])
				if len(current) > 1 {
					drop += sepLen
				}
				total -= drop
				current = current[1:]
			}
		}
		total += l + joinCost()
		current = append(current, p)
	}
	if doc := strings.TrimSpace(strings.Join(current, separator)); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
