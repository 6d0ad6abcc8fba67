// Package generator 使用 eino ChatModel 生成概念草稿
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/kaptinlin/jsonrepair"

	"github.com/ashwinyue/next-concept/internal/logger"
	cmodel "github.com/ashwinyue/next-concept/internal/model"
	"github.com/ashwinyue/next-concept/internal/service/callback"
	"github.com/ashwinyue/next-concept/internal/service/concept"
)

var (
	// ErrUnavailable 未配置 ChatModel
	ErrUnavailable = errors.New("draft generator is not configured")
	// ErrEmptyIdea 缺少描述
	ErrEmptyIdea = errors.New("idea is required")
	// ErrMalformedOutput 模型输出无法解析
	ErrMalformedOutput = errors.New("generator returned malformed output")
)

// Brief 生成请求
type Brief struct {
	Idea             string   `json:"idea"`
	ParentHint       string   `json:"parent_hint,omitempty"`
	DomainContext    string   `json:"domain_context,omitempty"`
	StylePreferences string   `json:"style_preferences,omitempty"`
	ReferenceURLs    []string `json:"reference_urls,omitempty"`
	// ParentProperties 父概念链上已有的属性名，提示模型不要重复声明
	ParentProperties []string `json:"parent_properties,omitempty"`
}

// Suggestion 生成结果
type Suggestion struct {
	Fragment   concept.Fragment `json:"payload"`
	Rationale  string           `json:"rationale"`
	Warnings   []string         `json:"warnings"`
	References []string         `json:"references"`
}

// Generator 草稿生成器
type Generator struct {
	chatModel model.ChatModel
	handlers  []callbacks.Handler
	log       *logger.Logger
}

// Option 生成器选项
type Option func(*Generator)

// WithCallbacks 为每次模型调用挂载回调处理器
func WithCallbacks(handlers ...callbacks.Handler) Option {
	return func(g *Generator) {
		g.handlers = append(g.handlers, handlers...)
	}
}

// NewGenerator 创建草稿生成器，chatModel 为 nil 时 Suggest 返回 ErrUnavailable
func NewGenerator(chatModel model.ChatModel, log *logger.Logger, opts ...Option) *Generator {
	if log == nil {
		log = logger.Nop()
	}
	g := &Generator{chatModel: chatModel, log: log.With("component", "generator")}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

const systemPrompt = `You design document concepts for a layered document taxonomy.
A concept inherits fields from exactly one parent and declares only the fields it adds.
Respond with a single JSON object and nothing else.`

const userPromptTemplate = `Draft a new concept from the brief below.

Idea: {idea}
Parent hint: {parent}
Domain context: {domain}
Style preferences: {style}
Reference URLs: {refs}
Properties already inherited from the parent (do not redeclare them): {inherited}

Return JSON with these fields:
{
  "label": "Human readable name",
  "id": "kebab-case-identifier",
  "description": "One or two sentences",
  "inherits": "parent concept id",
  "synonyms": ["..."],
  "properties": [{"name": "snake_case", "type": "string|number|date|boolean|ref:<ConceptId>|<Type>[]", "required": false, "description": "..."}],
  "relationships": [{"name": "snake_case", "target": "concept id", "cardinality": "0..*", "description": "..."}],
  "extraction_template": {"classification_hints": ["..."], "file_patterns": ["*.pdf"]},
  "rationale": "Why the concept is shaped this way",
  "warnings": ["..."],
  "references": ["..."]
}`

// generatedDraft 模型输出结构
type generatedDraft struct {
	Label              string                     `json:"label"`
	ID                 string                     `json:"id"`
	Description        string                     `json:"description"`
	Inherits           string                     `json:"inherits"`
	Synonyms           []string                   `json:"synonyms"`
	Properties         []cmodel.Property          `json:"properties"`
	Relationships      []cmodel.Relationship      `json:"relationships"`
	ExtractionTemplate *cmodel.ExtractionTemplate `json:"extraction_template"`
	Rationale          string                     `json:"rationale"`
	Warnings           []string                   `json:"warnings"`
	References         []string                   `json:"references"`
}

// Suggest 根据简述生成草稿
func (g *Generator) Suggest(ctx context.Context, brief Brief) (*Suggestion, error) {
	if g.chatModel == nil {
		return nil, ErrUnavailable
	}
	if strings.TrimSpace(brief.Idea) == "" {
		return nil, ErrEmptyIdea
	}

	messages := []*schema.Message{
		{Role: schema.System, Content: systemPrompt},
		{Role: schema.User, Content: buildPrompt(brief)},
	}

	ctx = callback.WithRun(ctx, callback.RunInfo("concept-draft"), g.handlers...)
	resp, err := g.chatModel.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("failed to generate draft: %w", err)
	}

	raw := extractJSON(resp.Content)
	var out generatedDraft
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		g.log.Warn("unparseable generator output", "error", err, "content_length", len(resp.Content))
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	return toSuggestion(out, brief), nil
}

func buildPrompt(b Brief) string {
	r := strings.NewReplacer(
		"{idea}", strings.TrimSpace(b.Idea),
		"{parent}", orNone(b.ParentHint),
		"{domain}", orNone(b.DomainContext),
		"{style}", orNone(b.StylePreferences),
		"{refs}", orNone(strings.Join(concept.Dedupe(b.ReferenceURLs), ", ")),
		"{inherited}", orNone(strings.Join(concept.Dedupe(b.ParentProperties), ", ")),
	)
	return r.Replace(userPromptTemplate)
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return strings.TrimSpace(s)
}

func toSuggestion(out generatedDraft, brief Brief) *Suggestion {
	inherits := strings.TrimSpace(out.Inherits)
	if inherits == "" {
		inherits = strings.TrimSpace(brief.ParentHint)
	}

	frag := concept.Fragment{
		Label:              strings.TrimSpace(out.Label),
		ID:                 concept.DeriveID(out.ID),
		Description:        strings.TrimSpace(out.Description),
		Inherits:           inherits,
		Synonyms:           concept.Dedupe(out.Synonyms),
		Properties:         concept.NormalizeProperties(out.Properties),
		Relationships:      concept.NormalizeRelationships(out.Relationships),
		ExtractionTemplate: out.ExtractionTemplate,
	}

	warnings := append([]string(nil), out.Warnings...)
	inherited := make(map[string]struct{}, len(brief.ParentProperties))
	for _, name := range brief.ParentProperties {
		inherited[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}
	for _, p := range frag.Properties {
		if _, ok := inherited[strings.ToLower(p.Name)]; ok {
			warnings = append(warnings, fmt.Sprintf("Property %q overrides an inherited property.", p.Name))
		}
	}

	return &Suggestion{
		Fragment:   frag,
		Rationale:  strings.TrimSpace(out.Rationale),
		Warnings:   concept.Dedupe(warnings),
		References: concept.MergeTags(out.References, brief.ReferenceURLs),
	}
}

// extractJSON 从模型输出中取出 JSON 对象，必要时用 jsonrepair 修复
func extractJSON(content string) string {
	s := strings.TrimSpace(content)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	if i := strings.Index(s, "{"); i >= 0 {
		if j := strings.LastIndex(s, "}"); j > i {
			if sub := s[i : j+1]; json.Valid([]byte(sub)) {
				return sub
			}
		}
		s = s[i:]
	}

	if json.Valid([]byte(s)) {
		return s
	}

	out, err := jsonrepair.JSONRepair(s)
	if err != nil {
		return s
	}
	return out
}
