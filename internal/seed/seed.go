// Package seed 从 YAML 文件加载基础分类体系
package seed

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ashwinyue/next-concept/internal/model"
)

// File 种子文件结构
type File struct {
	Concepts []*model.Concept `yaml:"concepts"`
}

// Load 读取种子文件
func Load(path string) ([]*model.Concept, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// Parse 解析种子内容，未声明层级的概念默认为 L1
func Parse(r io.Reader) ([]*model.Concept, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	seen := make(map[string]struct{}, len(f.Concepts))
	for i, c := range f.Concepts {
		if c == nil {
			return nil, fmt.Errorf("concept #%d is empty", i+1)
		}
		if c.Layer == "" {
			c.Layer = model.LayerFoundation
		}
		if _, ok := seen[c.ID]; ok {
			return nil, fmt.Errorf("duplicate concept id %q", c.ID)
		}
		seen[c.ID] = struct{}{}
	}
	return f.Concepts, nil
}
