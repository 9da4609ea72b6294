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

package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	einodoc "github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/schema"
)

// 文档元数据键
const (
	MetaSource = "source"
	MetaPage   = "page"
)

// DirLoader 实现 Eino document.Loader：Source.URI 为目录（或 file:// 前缀），
// 递归加载其中的 PDF（每页一个 Document）与 .txt/.md（每文件一个 Document）
type DirLoader struct {
	readPDF func([]byte) ([]PDFPage, error)
}

// NewDirLoader 创建目录加载器
func NewDirLoader() *DirLoader {
	return &DirLoader{readPDF: ExtractPDFPages}
}

// Load 实现 github.com/cloudwego/eino/components/document.Loader
func (l *DirLoader) Load(ctx context.Context, src einodoc.Source, _ ...einodoc.LoaderOption) ([]*schema.Document, error) {
	dir := strings.TrimSpace(src.URI)
	if strings.HasPrefix(strings.ToLower(dir), "file://") {
		dir = dir[len("file://"):]
	}
	if dir == "" {
		return nil, fmt.Errorf("Source.URI 为空")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("读取数据目录失败: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s 不是目录", dir)
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".pdf", ".txt", ".md":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("遍历数据目录失败: %w", err)
	}
	sort.Strings(files)

	var docs []*schema.Document
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取 %s 失败: %w", path, err)
		}
		if strings.EqualFold(filepath.Ext(path), ".pdf") {
			pages, err := l.readPDF(data)
			if err != nil {
				return nil, fmt.Errorf("解析 %s 失败: %w", path, err)
			}
			for _, p := range pages {
				docs = append(docs, &schema.Document{
					Content:  p.Text,
					MetaData: map[string]any{MetaSource: path, MetaPage: strconv.Itoa(p.Page)},
				})
			}
			continue
		}
		if text := strings.TrimSpace(string(data)); text != "" {
			docs = append(docs, &schema.Document{
				Content:  text,
				MetaData: map[string]any{MetaSource: path},
			})
		}
	}
	return docs, nil
}
