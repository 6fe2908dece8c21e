// Package shop holds the shopping-list records shared by the guest store,
// the API client and the mock server.
package shop

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ID identifies a list, item or user. Servers hand out numeric ids while
// guest records carry generated strings, so ids are kept in string form and
// compared by value.
type ID string

// NewLocalID returns a fresh id for a record created in guest mode.
func NewLocalID() ID {
	return ID(uuid.NewString())
}

// String returns the id as text.
func (id ID) String() string {
	return string(id)
}

// IsZero reports whether the id is unset.
func (id ID) IsZero() bool {
	return strings.TrimSpace(string(id)) == ""
}

// Int64 returns the numeric form of a server-assigned id.
func (id ID) Int64() (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	return n, err == nil
}

// MarshalJSON writes numeric ids as JSON numbers and everything else as strings.
func (id ID) MarshalJSON() ([]byte, error) {
	if n, ok := id.Int64(); ok {
		return []byte(strconv.FormatInt(n, 10)), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON accepts either a JSON number or a JSON string.
func (id *ID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*id = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	*id = ID(canonicalNumber(n.String()))
	return nil
}

// canonicalNumber writes integral numbers without a fraction or exponent, so
// 1.0 and 1e0 name the same record as 1. Plain integer literals are kept
// verbatim.
func canonicalNumber(lit string) string {
	if !strings.ContainsAny(lit, ".eE") {
		return lit
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) >= 1e21 {
		return lit
	}
	if f >= -(1 << 63) && f < 1<<63 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// User is the identity returned by /me and /login.
type User struct {
	ID    ID     `json:"id"`
	Email string `json:"email"`
}

// UnmarshalJSON accepts the server's "_id" spelling as well as "id".
func (u *User) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID    ID     `json:"id"`
		AltID ID     `json:"_id"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	u.ID = raw.ID
	if u.ID.IsZero() {
		u.ID = raw.AltID
	}
	u.Email = raw.Email
	return nil
}

// Credentials are posted to /login and /register.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Image describes an uploaded item picture.
type Image struct {
	ID      ID     `json:"id,omitempty"`
	URL     string `json:"url,omitempty"`
	ItemsID ID     `json:"itemsId,omitempty"`
}

// Item is one line on a shopping list.
type Item struct {
	ID        ID      `json:"id,omitempty"`
	Name      string  `json:"name"`
	Count     float64 `json:"count"`
	Purchased bool    `json:"purchased"`
	ListID    ID      `json:"list_id,omitempty"`
	Image     *Image  `json:"image,omitempty"`
}

// List is a shopping list. Guest lists carry their items inline; server
// lists report ItemsCount and serve items from a separate endpoint.
type List struct {
	ID         ID     `json:"id,omitempty"`
	Name       string `json:"name"`
	OwnerID    ID     `json:"ownerId,omitempty"`
	ItemsCount int64  `json:"itemsCount,omitempty"`
	Items      []Item `json:"items,omitempty"`
}

type listAlias List

// UnmarshalJSON accepts the server's "_id" spelling as well as "id".
func (l *List) UnmarshalJSON(data []byte) error {
	var raw struct {
		listAlias
		AltID ID `json:"_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*l = List(raw.listAlias)
	if l.ID.IsZero() {
		l.ID = raw.AltID
	}
	return nil
}

// Clone returns a deep copy of the list including its items.
func (l List) Clone() List {
	dup := l
	if l.Items != nil {
		dup.Items = make([]Item, len(l.Items))
		copy(dup.Items, l.Items)
	}
	return dup
}

// ShareRequest is posted to /list/{id} to share a list by email.
type ShareRequest struct {
	Email string `json:"email"`
}

// FieldError is the validation error body element returned by the server.
type FieldError struct {
	Field string `json:"field"`
	Code  string `json:"code"`
}

// Validation error codes used by the server.
const (
	CodeListNameEmpty      = "LIST_NAME_EMPTY"
	CodeItemNameEmpty      = "ITEM_NAME_EMPTY"
	CodeItemCountEmpty     = "ITEM_COUNT_EMPTY"
	CodeImageTypeForbidden = "IMAGE_TYPE_NOT_ALLOWED"
	CodeImageTooLarge      = "IMAGE_TOO_LARGE"
)

// FindList returns the index of the list whose id matches, or -1.
func FindList(lists []List, id ID) int {
	for i := range lists {
		if lists[i].ID == id {
			return i
		}
	}
	return -1
}
