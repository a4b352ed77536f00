package component

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"newsrag/client"
	"newsrag/pubsub"
)

// StatusModel 状态栏：spinner、请求状态和当前会话 id
type StatusModel struct {
	spinner   spinner.Model
	running   bool
	text      string
	sessionID string
	width     int
}

// NewStatusModel 创建新的状态组件
func NewStatusModel(sessionID string) StatusModel {
	s := spinner.New()
	s.Spinner = spinner.Jump
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return StatusModel{
		spinner:   s,
		text:      "Ready",
		sessionID: sessionID,
	}
}

// Init 初始化组件
func (m StatusModel) Init() tea.Cmd {
	return nil
}

// Update 更新组件状态
func (m StatusModel) Update(msg tea.Msg) (StatusModel, tea.Cmd) {
	if ev, ok := msg.(pubsub.Event[client.Message]); ok {
		switch ev.Type {
		case pubsub.StartedEvent:
			m.text = "Thinking..."
			if !m.running {
				m.running = true
				return m, m.spinner.Tick
			}
		case pubsub.ChunkEvent:
			m.text = "Streaming..."
		case pubsub.CompletedEvent:
			m.running = false
			m.text = "Ready"
			if ev.Payload.SessionID != "" {
				m.sessionID = ev.Payload.SessionID
			}
		case pubsub.FailedEvent:
			m.running = false
			m.text = "Request failed"
		}
		return m, nil
	}

	// spinner 动画帧
	if m.running {
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View 渲染组件视图
func (m StatusModel) View() string {
	content := m.text
	if m.running {
		content = fmt.Sprintf("%s %s", m.spinner.View(), m.text)
	}
	if m.sessionID != "" {
		content += lipgloss.NewStyle().Faint(true).Render("  session " + m.sessionID)
	}

	style := lipgloss.NewStyle().Padding(1, 0)
	if m.width > 0 {
		style = style.MaxWidth(m.width)
	}
	return style.Render(content)
}

// SetWidth 设置组件宽度
func (m *StatusModel) SetWidth(width int) {
	m.width = width
}

// IsRunning 返回是否有请求在进行
func (m StatusModel) IsRunning() bool {
	return m.running
}

// SessionID 返回状态栏显示的会话 id
func (m StatusModel) SessionID() string {
	return m.sessionID
}
