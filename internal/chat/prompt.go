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

package chat

import (
	"strings"
)

// NoDataFallback 检索失败或无结果时写入提示词的上下文
const NoDataFallback = "No relevant data found."

const behaviourGuidelines = `You are a mental health chatbot offering support. Show empathy and use the retrieved data for accuracy.
Only answer with factual statements from the retrieved data.

All answers should be related to mental health. If someone asks about a topic that is not related to the provided data, do not answer it.
Instead of refusing outright, reply that you don't know much about that.
While this is an AI chatbot, your answers must feel human: your tone should be calm, trustworthy and friendly, and your language rather informal.
Some light humour can lift the user's mood, and an occasional emoji makes it feel real.

The person using this may not want to talk to anyone in real life. They might feel scared or overwhelmed at the thought of sharing their feelings, so they are coming to you for advice.

Keep answers short, never more than a short paragraph.
For example, Input: Can you help me manage my stress level? Output: of course, what has been bothering you?

Avoid generic lines such as "I'm really sorry to hear that".
User messages start with a bracketed sentiment tag such as [negative]; use it to adjust your tone and never repeat it back.`

// BuildSystemPrompt 行为准则 + 启动时检索到的片段
func BuildSystemPrompt(snippets []string) string {
	var b strings.Builder
	b.WriteString(behaviourGuidelines)
	b.WriteString("\n\nRetrieved data:\n")
	b.WriteString(formatSnippets(snippets))
	return b.String()
}

// BuildTurnContext 按轮检索的临时上下文，不进入会话状态
func BuildTurnContext(snippets []string) string {
	return "Retrieved data for this message:\n" + formatSnippets(snippets)
}

func formatSnippets(snippets []string) string {
	var lines []string
	for _, s := range snippets {
		if s = strings.TrimSpace(s); s != "" {
			lines = append(lines, "- "+s)
		}
	}
	if len(lines) == 0 {
		return NoDataFallback
	}
	return strings.Join(lines, "\n")
}
