package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"

	"github.com/five82/basket/internal/shop"
)

// Multipart is a pre-encoded request body that is sent unchanged.
type Multipart struct {
	ContentType string
	Body        io.Reader
}

// NewFileUpload encodes r as a single multipart file field.
func NewFileUpload(field, filename string, r io.Reader) (Multipart, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		return Multipart{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return Multipart{}, fmt.Errorf("copy upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return Multipart{}, fmt.Errorf("close multipart: %w", err)
	}
	return Multipart{ContentType: w.FormDataContentType(), Body: &buf}, nil
}

func listPath(id shop.ID) string {
	return "/list/" + url.PathEscape(id.String())
}

func itemsPath(listID shop.ID) string {
	return listPath(listID) + "/items"
}

func itemPath(listID, itemID shop.ID) string {
	return itemsPath(listID) + "/" + url.PathEscape(itemID.String())
}

// Me returns the user behind the current session cookie.
func (c *Client) Me(ctx context.Context) (*shop.User, error) {
	var u shop.User
	if err := c.Get(ctx, "/me", &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Login exchanges credentials for a session cookie.
func (c *Client) Login(ctx context.Context, creds shop.Credentials) (*shop.User, error) {
	var u shop.User
	if err := c.Post(ctx, "/login", creds, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Register creates an account and signs it in.
func (c *Client) Register(ctx context.Context, creds shop.Credentials) (*shop.User, error) {
	var u shop.User
	if err := c.Post(ctx, "/register", creds, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Logout ends the server session.
func (c *Client) Logout(ctx context.Context) error {
	return c.Delete(ctx, "/logout")
}

// Lists returns every list the user owns or has been shared.
func (c *Client) Lists(ctx context.Context) ([]shop.List, error) {
	var lists []shop.List
	if err := c.Get(ctx, "/list", &lists); err != nil {
		return nil, err
	}
	return lists, nil
}

// CreateList creates a list and returns the stored record.
func (c *Client) CreateList(ctx context.Context, list shop.List) (shop.List, error) {
	var out shop.List
	err := c.Post(ctx, "/list", shop.List{Name: list.Name}, &out)
	return out, err
}

// GetList fetches one list.
func (c *Client) GetList(ctx context.Context, id shop.ID) (shop.List, error) {
	var out shop.List
	err := c.Get(ctx, listPath(id), &out)
	return out, err
}

// UpdateList renames a list.
func (c *Client) UpdateList(ctx context.Context, list shop.List) (shop.List, error) {
	var out shop.List
	err := c.Put(ctx, listPath(list.ID), shop.List{Name: list.Name}, &out)
	return out, err
}

// DeleteList removes a list.
func (c *Client) DeleteList(ctx context.Context, id shop.ID) error {
	return c.Delete(ctx, listPath(id))
}

// ShareList grants the user with email access to the list. A 404 means no
// such user; a 409 means the list is already shared with them.
func (c *Client) ShareList(ctx context.Context, id shop.ID, email string) error {
	return c.Post(ctx, listPath(id), shop.ShareRequest{Email: email}, nil)
}

// ImportLists uploads guest lists to the signed-in account.
func (c *Client) ImportLists(ctx context.Context, lists []shop.List) error {
	return c.Post(ctx, "/list/import", lists, nil)
}

// Items returns the items of a list.
func (c *Client) Items(ctx context.Context, listID shop.ID) ([]shop.Item, error) {
	var items []shop.Item
	if err := c.Get(ctx, itemsPath(listID), &items); err != nil {
		return nil, err
	}
	return items, nil
}

// GetItem fetches one item.
func (c *Client) GetItem(ctx context.Context, listID, itemID shop.ID) (shop.Item, error) {
	var out shop.Item
	err := c.Get(ctx, itemPath(listID, itemID), &out)
	return out, err
}

// CreateItem adds an item to a list.
func (c *Client) CreateItem(ctx context.Context, listID shop.ID, item shop.Item) (shop.Item, error) {
	var out shop.Item
	item.ID = ""
	item.Image = nil
	err := c.Post(ctx, itemsPath(listID), item, &out)
	return out, err
}

// UpdateItem replaces an item's name, count and purchased flag.
func (c *Client) UpdateItem(ctx context.Context, listID shop.ID, item shop.Item) (shop.Item, error) {
	var out shop.Item
	body := item
	body.Image = nil
	err := c.Put(ctx, itemPath(listID, item.ID), body, &out)
	return out, err
}

// DeleteItem removes an item.
func (c *Client) DeleteItem(ctx context.Context, listID, itemID shop.ID) error {
	return c.Delete(ctx, itemPath(listID, itemID))
}

// PutItemImage uploads a picture for an item as the multipart field "file".
func (c *Client) PutItemImage(ctx context.Context, listID, itemID shop.ID, filename string, r io.Reader) (shop.Image, error) {
	body, err := NewFileUpload("file", filename, r)
	if err != nil {
		return shop.Image{}, err
	}
	var out shop.Image
	err = c.Put(ctx, itemPath(listID, itemID)+"/image", body, &out)
	return out, err
}

// DeleteItemImage removes an item's picture.
func (c *Client) DeleteItemImage(ctx context.Context, listID, itemID shop.ID) error {
	return c.Delete(ctx, itemPath(listID, itemID)+"/image")
}
