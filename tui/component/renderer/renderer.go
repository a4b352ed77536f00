package renderer

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"newsrag/llm"
)

const welcome = "Ask about today's news, or just say hello.\nType a message and press Enter to send."

// MessageRenderer 把对话轮次渲染为终端文本
type MessageRenderer struct {
	markdownRenderer *glamour.TermRenderer
	styles           *MessageStyles
	renderedCache    []string // 已完成轮次的渲染缓存
	viewportWidth    int
}

// NewMessageRenderer 创建消息渲染器
func NewMessageRenderer(styles *MessageStyles) *MessageRenderer {
	if styles == nil {
		styles = DefaultMessageStyles()
	}

	// 渲染器创建失败时退回纯文本
	markdownRenderer, _ := glamour.NewTermRenderer(
		glamour.WithStylePath("dracula"),
		glamour.WithWordWrap(0),
	)
	return &MessageRenderer{
		markdownRenderer: markdownRenderer,
		styles:           styles,
	}
}

// SetViewportWidth 设置视口宽度
func (r *MessageRenderer) SetViewportWidth(width int) {
	r.viewportWidth = width
}

// Render 渲染已完成的轮次，加上仍在流式输出的回复和最近一次错误。
// 已完成轮次只渲染一次，之后走缓存。
func (r *MessageRenderer) Render(turns []llm.Turn, pending string, streaming bool, errText string) string {
	if len(turns) == 0 && !streaming && pending == "" && errText == "" {
		return welcome
	}

	// 列表被清空时重置缓存
	if len(turns) < len(r.renderedCache) {
		r.renderedCache = r.renderedCache[:0]
	}
	for i := len(r.renderedCache); i < len(turns); i++ {
		r.renderedCache = append(r.renderedCache, r.RenderTurn(turns[i]))
	}

	parts := make([]string, 0, len(r.renderedCache)+2)
	for _, cached := range r.renderedCache {
		if cached != "" {
			parts = append(parts, cached)
		}
	}
	if streaming || pending != "" {
		parts = append(parts, r.renderPending(pending, streaming))
	}
	if errText != "" {
		parts = append(parts, r.styles.Error.Render("Error: "+errText))
	}

	content := strings.Join(parts, "\n\n")
	if r.viewportWidth > 0 {
		return lipgloss.NewStyle().Width(r.viewportWidth).Render(content)
	}
	return content
}

// RenderTurn 渲染单个轮次
func (r *MessageRenderer) RenderTurn(t llm.Turn) string {
	if t.Text == "" {
		return ""
	}
	switch t.Role {
	case llm.RoleUser:
		return r.styles.User.Render("You:") + " " + t.Text
	case llm.RoleAssistant:
		return r.styles.Assistant.Render("Assistant:") + "\n" + r.renderMarkdown(t.Text)
	}
	return r.styles.System.Render(t.Text)
}

// renderPending 流式输出中的回复不走 Markdown，半截的语法会渲染错乱
func (r *MessageRenderer) renderPending(text string, streaming bool) string {
	header := r.styles.Assistant.Render("Assistant:")
	if text == "" {
		return header + "\n" + r.styles.System.Render("thinking...")
	}
	if streaming {
		text += r.styles.Cursor.Render("▌")
	}
	return header + "\n" + text
}

func (r *MessageRenderer) renderMarkdown(content string) string {
	if r.markdownRenderer == nil {
		return content
	}
	rendered, err := r.markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	// glamour 会在前后加空行
	return strings.TrimSpace(rendered)
}
