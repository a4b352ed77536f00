package component

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"newsrag/llm"
)

// EditorSubmitMsg 用户提交了一个问题
type EditorSubmitMsg struct {
	Value string
}

// HistoryMsg 载入已有会话的历史
type HistoryMsg struct {
	Conversation llm.Conversation
}

// EditModel 封装输入框组件
type EditModel struct {
	textarea textarea.Model
	locked   bool // 回复输出期间不接受提交
}

// NewEditModel 创建新的输入框组件
func NewEditModel() EditModel {
	ta := textarea.New()
	ta.Placeholder = "Ask about the news..."
	ta.Focus()

	ta.Prompt = "> "
	ta.CharLimit = 2000
	ta.ShowLineNumbers = false
	ta.SetWidth(30)
	ta.SetHeight(1)
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()

	// Enter 用于提交
	ta.KeyMap.InsertNewline.SetEnabled(false)

	return EditModel{textarea: ta}
}

// Init 初始化组件
func (m EditModel) Init() tea.Cmd {
	return textarea.Blink
}

// Update 更新组件状态
func (m EditModel) Update(msg tea.Msg) (EditModel, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEnter {
		value := strings.TrimSpace(m.textarea.Value())
		if value == "" || m.locked {
			return m, nil
		}
		m.textarea.Reset()
		return m, func() tea.Msg {
			return EditorSubmitMsg{Value: value}
		}
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

// View 渲染组件视图
func (m EditModel) View() string {
	return m.textarea.View()
}

// SetWidth 设置组件宽度
func (m *EditModel) SetWidth(width int) {
	m.textarea.SetWidth(width)
}

// SetLocked 在回复输出期间锁定提交
func (m *EditModel) SetLocked(locked bool) {
	m.locked = locked
}

// Height 返回组件高度
func (m EditModel) Height() int {
	return m.textarea.Height()
}
