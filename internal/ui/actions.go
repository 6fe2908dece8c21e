package ui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/basket/internal/api"
	"github.com/five82/basket/internal/lists"
	"github.com/five82/basket/internal/prefs"
	"github.com/five82/basket/internal/shop"
)

var errNoService = errors.New("list service unavailable")

func (m Model) loadItems() tea.Cmd {
	ctx, svc, listID := m.ctx, m.lists, m.listID
	return func() tea.Msg {
		if svc == nil {
			return itemsMsg{listID: listID, err: errNoService}
		}
		items, err := svc.Items(ctx, listID)
		return itemsMsg{listID: listID, items: items, err: err}
	}
}

func (m Model) loginCmd() tea.Cmd {
	ctx, sessions, path := m.ctx, m.sessions, m.prefsPath
	creds := shop.Credentials{
		Email:    strings.TrimSpace(m.emailInput.Value()),
		Password: m.passInput.Value(),
	}
	logger := m.logger
	return func() tea.Msg {
		if creds.Email == "" || creds.Password == "" {
			return loginDoneMsg{err: errors.New("email and password are required")}
		}
		if sessions == nil {
			return loginDoneMsg{err: errors.New("sign-in unavailable")}
		}
		if _, err := sessions.Login(ctx, creds); err != nil {
			return loginDoneMsg{err: err}
		}
		if err := prefs.Update(path, func(p *prefs.Prefs) { p.LastEmail = creds.Email }); err != nil {
			logger.Warn("save last email failed", "error", err)
		}
		return loginDoneMsg{email: creds.Email}
	}
}

func (m Model) logoutCmd() tea.Cmd {
	ctx, sessions := m.ctx, m.sessions
	return func() tea.Msg {
		if sessions != nil {
			sessions.Logout(ctx)
		}
		return opDoneMsg{status: "Signed out, showing guest lists"}
	}
}

func (m Model) toggleCmd(item shop.Item) tea.Cmd {
	return m.listOp(true, func(ctx context.Context, svc ListService) (string, error) {
		updated, err := svc.TogglePurchased(ctx, m.listID, item.ID)
		if err != nil {
			return "", err
		}
		if updated.Purchased {
			return fmt.Sprintf("%s purchased", updated.Name), nil
		}
		return fmt.Sprintf("%s back on the list", updated.Name), nil
	})
}

func (m Model) deleteCmd() tea.Cmd {
	if m.deleteItem {
		item, ok := m.selectedItem()
		if !ok {
			return nil
		}
		return m.listOp(true, func(ctx context.Context, svc ListService) (string, error) {
			if err := svc.DeleteItem(ctx, m.listID, item.ID); err != nil {
				return "", err
			}
			return "Deleted " + item.Name, nil
		})
	}
	list, ok := m.selectedList()
	if !ok {
		return nil
	}
	return m.listOp(false, func(ctx context.Context, svc ListService) (string, error) {
		if err := svc.DeleteList(ctx, list.ID); err != nil {
			return "", err
		}
		return "Deleted " + list.Name, nil
	})
}

// submitPrompt turns the prompt value into a command. Input errors are
// returned so the prompt stays open.
func (m Model) submitPrompt() (tea.Cmd, error) {
	value := strings.TrimSpace(m.input.Value())
	switch m.prompt {
	case promptNewList:
		return m.listOp(false, func(ctx context.Context, svc ListService) (string, error) {
			saved, err := svc.SaveList(ctx, shop.List{Name: value})
			if err != nil {
				return "", err
			}
			return "Created " + saved.Name, nil
		}), nil

	case promptRenameList:
		list, ok := m.selectedList()
		if !ok {
			return nil, nil
		}
		list.Name = value
		return m.listOp(false, func(ctx context.Context, svc ListService) (string, error) {
			saved, err := svc.SaveList(ctx, list)
			if err != nil {
				return "", err
			}
			return "Renamed to " + saved.Name, nil
		}), nil

	case promptShareList:
		list, ok := m.selectedList()
		if !ok {
			return nil, nil
		}
		if value == "" {
			return nil, errors.New("email is required")
		}
		return m.listOp(false, func(ctx context.Context, svc ListService) (string, error) {
			if err := svc.ShareList(ctx, list.ID, value); err != nil {
				return "", err
			}
			return fmt.Sprintf("Shared %s with %s", list.Name, value), nil
		}), nil

	case promptNewItem, promptEditItem:
		name, count, err := parseItemInput(value)
		if err != nil {
			return nil, err
		}
		item := shop.Item{Name: name, Count: count}
		if m.prompt == promptEditItem {
			current, ok := m.selectedItem()
			if !ok {
				return nil, nil
			}
			current.Name, current.Count = name, count
			item = current
		}
		return m.listOp(true, func(ctx context.Context, svc ListService) (string, error) {
			saved, err := svc.SaveItem(ctx, m.listID, item)
			if err != nil {
				return "", err
			}
			return "Saved " + saved.Name, nil
		}), nil
	}
	return nil, nil
}

// listOp runs fn against the list service off the UI goroutine.
func (m Model) listOp(reloadItems bool, fn func(context.Context, ListService) (string, error)) tea.Cmd {
	ctx, svc := m.ctx, m.lists
	return func() tea.Msg {
		if svc == nil {
			return opDoneMsg{err: errNoService}
		}
		status, err := fn(ctx, svc)
		return opDoneMsg{status: status, err: err, reloadItems: reloadItems}
	}
}

func (m Model) saveTheme(name string) tea.Cmd {
	return m.savePrefs(func(p *prefs.Prefs) { p.Theme = name })
}

func (m Model) saveHidePurchased(hide bool) tea.Cmd {
	return m.savePrefs(func(p *prefs.Prefs) { p.HidePurchased = hide })
}

func (m Model) savePrefs(fn func(*prefs.Prefs)) tea.Cmd {
	path, logger := m.prefsPath, m.logger
	return func() tea.Msg {
		if err := prefs.Update(path, fn); err != nil {
			logger.Warn("save preferences failed", "error", err)
		}
		return nil
	}
}

// parseItemInput splits "Milk 2" into a name and a count. A missing count
// means one.
func parseItemInput(s string) (string, float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", 0, errors.New("item name is required")
	}
	fields := strings.Fields(s)
	if len(fields) > 1 {
		last := fields[len(fields)-1]
		if n, err := strconv.ParseFloat(strings.TrimPrefix(last, "x"), 64); err == nil {
			if n <= 0 {
				return "", 0, errors.New("count must be positive")
			}
			return strings.Join(fields[:len(fields)-1], " "), n, nil
		}
	}
	return strings.Join(fields, " "), 1, nil
}

func formatItemInput(it shop.Item) string {
	if it.Count == 0 || it.Count == 1 {
		return it.Name
	}
	return it.Name + " " + formatCount(it.Count)
}

func formatCount(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// DescribeError converts an operation error into a one-line message for people.
func DescribeError(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, lists.ErrGuestUnsupported):
		return "Sign in to do that"
	case errors.Is(err, lists.ErrEmptyName):
		return "Name must not be empty"
	case errors.Is(err, lists.ErrListNotFound):
		return "List no longer exists"
	case errors.Is(err, lists.ErrItemNotFound):
		return "Item no longer exists"
	case errors.Is(err, context.Canceled):
		return "Cancelled"
	}

	var httpErr *api.HTTPError
	if !errors.As(err, &httpErr) {
		return err.Error()
	}
	if fields, ferr := httpErr.FieldErrors(); ferr == nil && len(fields) > 0 {
		msgs := make([]string, 0, len(fields))
		for _, f := range fields {
			msgs = append(msgs, fieldMessage(f))
		}
		return strings.Join(msgs, "; ")
	}
	switch httpErr.Kind {
	case api.KindUnauthorized:
		if msg := httpErr.Message(); msg != "" {
			return msg
		}
		return "Wrong email or password"
	case api.KindConflict:
		if msg := httpErr.Message(); msg != "" {
			return msg
		}
		return "Already exists"
	case api.KindNotFound:
		if msg := httpErr.Message(); msg != "" {
			return msg
		}
		return "Not found"
	}
	if msg := httpErr.Message(); msg != "" {
		return msg
	}
	return fmt.Sprintf("Server error (%d)", httpErr.Status)
}

func fieldMessage(f shop.FieldError) string {
	switch f.Code {
	case shop.CodeListNameEmpty:
		return "List name must not be empty"
	case shop.CodeItemNameEmpty:
		return "Item name must not be empty"
	case shop.CodeItemCountEmpty:
		return "Item count is required"
	case shop.CodeImageTypeForbidden:
		return "Only images can be attached"
	case shop.CodeImageTooLarge:
		return "Image is too large"
	}
	return f.Field + ": " + f.Code
}
