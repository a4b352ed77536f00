package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"newsrag/client"
	"newsrag/pubsub"
	"newsrag/tui/component"
)

// Model 聊天界面模型
type Model struct {
	list   component.ListModel
	edit   component.EditModel
	status component.StatusModel

	client *client.Client
	sub    <-chan pubsub.Event[client.Message]
	ctx    context.Context
	cancel context.CancelFunc

	width  int
	height int
}

// InitialModel 创建初始模型并订阅客户端事件
func InitialModel(c *client.Client) Model {
	ctx, cancel := context.WithCancel(context.Background())
	return Model{
		list:   component.NewListModel(),
		edit:   component.NewEditModel(),
		status: component.NewStatusModel(c.SessionID()),
		client: c,
		sub:    c.Broker().Subscribe(ctx),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.list.Init(),
		m.edit.Init(),
		m.status.Init(),
		m.loadHistory(),
		m.waitForEvent(),
	)
}

// waitForEvent 等待下一条客户端事件；通道关闭后不再返回消息
func (m Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		event, ok := <-m.sub
		if !ok {
			return nil
		}
		return event
	}
}

// loadHistory 恢复会话时拉取历史记录，失败时静默忽略
func (m Model) loadHistory() tea.Cmd {
	if m.client.SessionID() == "" {
		return nil
	}
	return func() tea.Msg {
		conv, err := m.client.History(m.ctx)
		if err != nil {
			return nil
		}
		return component.HistoryMsg{Conversation: conv}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()

	case component.EditorSubmitMsg:
		m.edit.SetLocked(true)
		// 发送在后台进行，结果通过 broker 回到界面；错误也会作为 FailedEvent 发布
		go func(query string) {
			_ = m.client.Send(m.ctx, query)
		}(msg.Value)

	case pubsub.Event[client.Message]:
		if msg.Type == pubsub.CompletedEvent || msg.Type == pubsub.FailedEvent {
			m.edit.SetLocked(false)
		}
		cmds = append(cmds, m.waitForEvent())

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.cancel()
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd

	m.list, cmd = m.list.Update(msg)
	cmds = append(cmds, cmd)

	m.edit, cmd = m.edit.Update(msg)
	cmds = append(cmds, cmd)

	m.status, cmd = m.status.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) layout() {
	statusHeight := lipgloss.Height(m.status.View())
	listHeight := m.height - statusHeight - m.edit.Height()

	m.list.SetSize(m.width, listHeight)
	m.edit.SetWidth(m.width)
	m.status.SetWidth(m.width)
}

func (m Model) View() string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.list.View(),
		m.status.View(),
		m.edit.View(),
	)
}
