package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/basket/internal/busy"
	"github.com/five82/basket/internal/shop"
)

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	styles := m.theme.Styles()

	header := m.renderHeader(styles)
	footer := m.renderFooter(styles)
	bodyHeight := max(3, m.height-lipgloss.Height(header)-lipgloss.Height(footer))

	var body string
	switch {
	case m.blocked():
		body = m.renderOverlay(styles, bodyHeight, m.renderBusy(styles))
	case m.loginOpen:
		body = m.renderOverlay(styles, bodyHeight, m.renderLogin(styles))
	case m.prompt != promptNone:
		body = m.renderOverlay(styles, bodyHeight, m.renderPrompt(styles))
	case m.screen == screenItems:
		body = m.renderItems(styles, bodyHeight)
	default:
		body = m.renderLists(styles, bodyHeight)
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m Model) renderHeader(styles Styles) string {
	parts := []string{styles.Logo.Render("basket")}

	if m.session.Authenticated() && m.session.Actor != nil {
		parts = append(parts, styles.SuccessText.Render("● "+m.session.Actor.Email))
	} else if m.session.Authenticated() {
		parts = append(parts, styles.SuccessText.Render("● signed in"))
	} else {
		parts = append(parts, styles.WarningText.Render("○ guest"))
	}

	if m.mode != "" {
		parts = append(parts, styles.Badge.Render(m.mode))
	}

	if m.snapshot.HasLists {
		parts = append(parts, styles.MutedText.Render(fmt.Sprintf("%d lists · %d items", len(m.snapshot.Lists), m.snapshot.TotalItems())))
	}

	if m.busy.Visible && m.busy.Mode == busy.ModeSoft {
		parts = append(parts, styles.AccentText.Render(m.spinner.View()+" "+m.busy.Message))
	}

	if m.snapshot.IsOffline() {
		parts = append(parts, styles.DangerText.Render("offline"))
	} else if !m.snapshot.LastUpdated.IsZero() {
		parts = append(parts, styles.FaintText.Render("updated "+m.snapshot.LastUpdated.Format("15:04:05")))
	}

	return styles.Header.Width(m.width).Render(strings.Join(parts, "  "))
}

func (m Model) renderFooter(styles Styles) string {
	var lines []string
	if m.status != "" {
		style := styles.MutedText
		if m.statusErr {
			style = styles.DangerText
		}
		lines = append(lines, style.Render(m.status))
	}
	if m.showHelp {
		lines = append(lines, m.help.FullHelpView(m.keys.FullHelp()))
	} else {
		lines = append(lines, m.help.ShortHelpView(m.keys.ShortHelp()))
	}
	return styles.Footer.Width(m.width).Render(strings.Join(lines, "\n"))
}

func (m Model) renderLists(styles Styles, height int) string {
	title := "Lists"
	if !m.session.Authenticated() {
		title = "Guest lists"
	}

	var rows []string
	if !m.snapshot.HasLists && m.snapshot.LastError == nil {
		rows = append(rows, styles.MutedText.Render("Loading lists..."))
	} else if len(m.snapshot.Lists) == 0 {
		rows = append(rows, styles.MutedText.Render("No lists yet. Press n to create one."))
	}
	for i, l := range m.snapshot.Lists {
		name := l.Name
		if name == "" {
			name = "(unnamed)"
		}
		line := fmt.Sprintf("%-*s %s", max(10, m.width/2), truncate(name, max(10, m.width/2)), countLabel(l))
		if i == m.listCursor {
			rows = append(rows, styles.Selected.Render("› "+line))
		} else {
			rows = append(rows, styles.Text.Render("  "+line))
		}
	}
	return m.renderPanel(styles, title, rows, height, m.listCursor)
}

func (m Model) renderItems(styles Styles, height int) string {
	title := m.listName
	if title == "" {
		title = "Items"
	}
	if m.hidePurchased {
		title += " (hiding purchased)"
	}

	items := m.visibleItems()
	var rows []string
	switch {
	case m.items == nil && m.itemsErr == nil:
		rows = append(rows, styles.MutedText.Render("Loading items..."))
	case len(items) == 0:
		rows = append(rows, styles.MutedText.Render("Nothing to buy. Press n to add an item."))
	}
	for i, it := range items {
		rows = append(rows, m.renderItemRow(styles, it, i == m.itemCursor))
	}
	return m.renderPanel(styles, title, rows, height, m.itemCursor)
}

func (m Model) renderItemRow(styles Styles, it shop.Item, selected bool) string {
	box := "[ ]"
	if it.Purchased {
		box = "[x]"
	}
	line := fmt.Sprintf("%s %s", box, it.Name)
	if it.Count != 0 && it.Count != 1 {
		line += " × " + formatCount(it.Count)
	}
	if it.Image != nil {
		line += " 📷"
	}
	switch {
	case selected:
		return styles.Selected.Render("› " + line)
	case it.Purchased:
		return styles.FaintText.Strikethrough(true).Render("  " + line)
	default:
		return styles.Text.Render("  " + line)
	}
}

// renderPanel draws rows in a bordered panel, scrolling to keep cursor visible.
func (m Model) renderPanel(styles Styles, title string, rows []string, height, cursor int) string {
	inner := max(1, height-3)
	start := 0
	if cursor >= inner {
		start = cursor - inner + 1
	}
	end := min(len(rows), start+inner)
	if start > end {
		start = end
	}
	content := styles.AccentText.Bold(true).Render(title) + "\n" + strings.Join(rows[start:end], "\n")
	return styles.Panel.
		Width(max(20, m.width-2)).
		Height(inner + 1).
		Render(content)
}

func (m Model) renderOverlay(styles Styles, height int, content string) string {
	return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center, styles.Overlay.Render(content))
}

func (m Model) renderBusy(styles Styles) string {
	msg := m.busy.Message
	if msg == "" {
		msg = "Working..."
	}
	return styles.AccentText.Render(m.spinner.View()) + " " + styles.Text.Render(msg)
}

func (m Model) renderLogin(styles Styles) string {
	lines := []string{
		styles.AccentText.Bold(true).Render("Sign in"),
		"",
		styles.MutedText.Render("Email"),
		m.emailInput.View(),
		styles.MutedText.Render("Password"),
		m.passInput.View(),
		"",
		styles.FaintText.Render("tab switch field · enter submit · esc cancel"),
	}
	if m.status != "" && m.statusErr {
		lines = append(lines, styles.DangerText.Render(m.status))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderPrompt(styles Styles) string {
	if m.prompt == promptConfirmDelete {
		return styles.DangerText.Render(fmt.Sprintf("Delete %q?", m.pendingName)) + "\n\n" +
			styles.FaintText.Render("y confirm · n cancel")
	}

	var title string
	switch m.prompt {
	case promptNewList:
		title = "New list"
	case promptRenameList:
		title = "Rename list"
	case promptShareList:
		title = "Share with (email)"
	case promptNewItem:
		title = "New item (name [count])"
	case promptEditItem:
		title = "Edit item (name [count])"
	}
	lines := []string{
		styles.AccentText.Bold(true).Render(title),
		"",
		m.input.View(),
		"",
		styles.FaintText.Render("enter save · esc cancel"),
	}
	if m.status != "" && m.statusErr {
		lines = append(lines, styles.DangerText.Render(m.status))
	}
	return strings.Join(lines, "\n")
}

func countLabel(l shop.List) string {
	n := l.ItemsCount
	if n == 1 {
		return "1 item"
	}
	return fmt.Sprintf("%d items", n)
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}
