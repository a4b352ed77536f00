package component

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"newsrag/client"
	"newsrag/llm"
	"newsrag/pubsub"
	"newsrag/tui/component/renderer"
)

// ListModel 封装消息列表组件
// 负责对话轮次和 viewport 管理，渲染委托给 MessageRenderer
type ListModel struct {
	viewport  viewport.Model
	turns     []llm.Turn
	pending   string // 正在流式输出的回复
	streaming bool
	errText   string
	width     int
	height    int

	renderer *renderer.MessageRenderer
}

// NewListModel 创建新的消息列表组件
func NewListModel() ListModel {
	m := ListModel{
		viewport: viewport.New(30, 5),
		renderer: renderer.NewMessageRenderer(nil),
		width:    30,
		height:   5,
	}
	m.updateViewportContent()
	return m
}

// Init 初始化组件
func (m ListModel) Init() tea.Cmd {
	return nil
}

// Update 更新组件状态
func (m ListModel) Update(msg tea.Msg) (ListModel, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.MouseMsg:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.viewport.ScrollUp(3)
		case tea.MouseButtonWheelDown:
			m.viewport.ScrollDown(3)
		}
	case HistoryMsg:
		m.turns = append([]llm.Turn(nil), msg.Conversation...)
		m.updateViewportContent()
		m.viewport.GotoBottom()
		return m, nil
	case pubsub.Event[client.Message]:
		m.apply(msg)
		m.updateViewportContent()
		m.viewport.GotoBottom()
		return m, nil
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// apply 根据事件推进对话状态
func (m *ListModel) apply(ev pubsub.Event[client.Message]) {
	switch ev.Type {
	case pubsub.StartedEvent:
		m.turns = append(m.turns, llm.Turn{Role: llm.RoleUser, Text: ev.Payload.Content})
		m.pending = ""
		m.errText = ""
		m.streaming = true
	case pubsub.ChunkEvent:
		m.pending += ev.Payload.Content
	case pubsub.CompletedEvent:
		m.turns = append(m.turns, llm.Turn{Role: llm.RoleAssistant, Text: ev.Payload.Content})
		m.pending = ""
		m.streaming = false
	case pubsub.FailedEvent:
		// 保留已收到的部分回复
		if m.pending != "" {
			m.turns = append(m.turns, llm.Turn{Role: llm.RoleAssistant, Text: m.pending})
		}
		m.pending = ""
		m.streaming = false
		if ev.Payload.Err != nil {
			m.errText = ev.Payload.Err.Error()
		}
	}
}

// View 渲染组件视图
func (m ListModel) View() string {
	return m.viewport.View()
}

// Turns 返回已完成的轮次
func (m ListModel) Turns() []llm.Turn {
	return m.turns
}

// SetSize 设置组件尺寸
func (m *ListModel) SetSize(width, height int) {
	if height < 1 {
		height = 1
	}
	m.width = width
	m.height = height

	m.viewport.Width = width
	m.viewport.Height = height
	m.renderer.SetViewportWidth(width)

	m.updateViewportContent()
	m.viewport.GotoBottom()
}

func (m *ListModel) updateViewportContent() {
	m.viewport.SetContent(m.renderer.Render(m.turns, m.pending, m.streaming, m.errText))
}
