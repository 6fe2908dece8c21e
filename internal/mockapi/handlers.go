package mockapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/five82/basket/internal/shop"
)

// listDTO mirrors the server's list payload, which spells the id "_id".
type listDTO struct {
	ID         shop.ID `json:"_id"`
	Name       string  `json:"name"`
	OwnerID    shop.ID `json:"ownerId"`
	ItemsCount int64   `json:"itemsCount"`
}

func toDTO(l shop.List) listDTO {
	return listDTO{ID: l.ID, Name: l.Name, OwnerID: l.OwnerID, ItemsCount: l.ItemsCount}
}

// readValid reads the body and validates it against schema. It writes the
// 400 response itself and returns false on failure.
func (s *Server) readValid(w http.ResponseWriter, r *http.Request, schema string, dest any) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Could not read body")
		return false
	}
	if fields := s.validator.check(schema, body); len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, fields)
		return false
	}
	if err := json.Unmarshal(body, dest); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed body")
		return false
	}
	return true
}

// visibleList resolves {listID} for the current user. It writes 404 and
// returns nil when the list is missing or not shared with the user. The
// caller must hold mu.
func (s *Server) visibleList(w http.ResponseWriter, r *http.Request) *listRecord {
	rec := s.lists[shop.ID(chi.URLParam(r, "listID"))]
	if rec == nil || !rec.visibleTo(userFrom(r.Context()).ID) {
		writeError(w, http.StatusNotFound, "List not found")
		return nil
	}
	return rec
}

func findItem(rec *listRecord, id shop.ID) int {
	for i := range rec.items {
		if rec.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Server) handleLists(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	s.mu.Lock()
	out := make([]listDTO, 0, len(s.order))
	for _, id := range s.order {
		if rec := s.lists[id]; rec.visibleTo(user.ID) {
			out = append(out, toDTO(rec.dto()))
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateList(w http.ResponseWriter, r *http.Request) {
	var in shop.List
	if !s.readValid(w, r, schemaList, &in) {
		return
	}
	s.mu.Lock()
	rec := s.addList(userFrom(r.Context()).ID, strings.TrimSpace(in.Name))
	dto := rec.dto()
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, toDTO(dto))
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var in []shop.List
	if !s.readValid(w, r, schemaImport, &in) {
		return
	}
	owner := userFrom(r.Context()).ID
	s.mu.Lock()
	out := make([]listDTO, 0, len(in))
	for _, l := range in {
		rec := s.addList(owner, strings.TrimSpace(l.Name))
		for _, it := range l.Items {
			it.ID = s.newID()
			it.ListID = rec.id
			it.Image = nil
			rec.items = append(rec.items, it)
		}
		out = append(out, toDTO(rec.dto()))
	}
	s.mu.Unlock()
	s.logger.Debug("imported guest lists", "user", owner.String(), "count", len(out))
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleGetList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec := s.visibleList(w, r); rec != nil {
		writeJSON(w, http.StatusOK, toDTO(rec.dto()))
	}
}

func (s *Server) handleUpdateList(w http.ResponseWriter, r *http.Request) {
	var in shop.List
	if !s.readValid(w, r, schemaList, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec := s.visibleList(w, r); rec != nil {
		rec.name = strings.TrimSpace(in.Name)
		writeJSON(w, http.StatusOK, toDTO(rec.dto()))
	}
}

func (s *Server) handleDeleteList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.visibleList(w, r)
	if rec == nil {
		return
	}
	if rec.ownerID != userFrom(r.Context()).ID {
		writeError(w, http.StatusForbidden, "Only the owner can delete a list")
		return
	}
	s.removeList(rec.id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleShareList(w http.ResponseWriter, r *http.Request) {
	var in shop.ShareRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed body")
		return
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	user := userFrom(r.Context())

	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.visibleList(w, r)
	if rec == nil {
		return
	}
	target := s.accounts[email]
	if target == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if target.user.ID == user.ID || target.user.ID == rec.ownerID || rec.shared[target.user.ID] {
		writeError(w, http.StatusConflict, "List already shared with this user")
		return
	}
	rec.shared[target.user.ID] = true
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.visibleList(w, r)
	if rec == nil {
		return
	}
	out := make([]shop.Item, len(rec.items))
	copy(out, rec.items)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var in shop.Item
	if !s.readValid(w, r, schemaItem, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.visibleList(w, r)
	if rec == nil {
		return
	}
	item := shop.Item{
		ID:        s.newID(),
		Name:      strings.TrimSpace(in.Name),
		Count:     in.Count,
		Purchased: in.Purchased,
		ListID:    rec.id,
	}
	rec.items = append(rec.items, item)
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.visibleList(w, r)
	if rec == nil {
		return
	}
	idx := findItem(rec, shop.ID(chi.URLParam(r, "itemID")))
	if idx < 0 {
		writeError(w, http.StatusNotFound, "Item not found")
		return
	}
	writeJSON(w, http.StatusOK, rec.items[idx])
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var in shop.Item
	if !s.readValid(w, r, schemaItem, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.visibleList(w, r)
	if rec == nil {
		return
	}
	idx := findItem(rec, shop.ID(chi.URLParam(r, "itemID")))
	if idx < 0 {
		writeError(w, http.StatusNotFound, "Item not found")
		return
	}
	item := &rec.items[idx]
	item.Name = strings.TrimSpace(in.Name)
	item.Count = in.Count
	item.Purchased = in.Purchased
	writeJSON(w, http.StatusOK, *item)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.visibleList(w, r)
	if rec == nil {
		return
	}
	idx := findItem(rec, shop.ID(chi.URLParam(r, "itemID")))
	if idx < 0 {
		writeError(w, http.StatusNotFound, "Item not found")
		return
	}
	rec.items = append(rec.items[:idx], rec.items[idx+1:]...)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePutImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+(64<<10))
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusBadRequest, []shop.FieldError{{Field: "file", Code: shop.CodeImageTooLarge}})
			return
		}
		writeError(w, http.StatusBadRequest, "Missing file")
		return
	}
	defer func() { _ = file.Close() }()

	head := make([]byte, 512)
	n, _ := io.ReadFull(file, head)
	if !strings.HasPrefix(http.DetectContentType(head[:n]), "image/") {
		writeJSON(w, http.StatusBadRequest, []shop.FieldError{{Field: "file", Code: shop.CodeImageTypeForbidden}})
		return
	}
	if header.Size > maxImageBytes {
		writeJSON(w, http.StatusBadRequest, []shop.FieldError{{Field: "file", Code: shop.CodeImageTooLarge}})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.visibleList(w, r)
	if rec == nil {
		return
	}
	idx := findItem(rec, shop.ID(chi.URLParam(r, "itemID")))
	if idx < 0 {
		writeError(w, http.StatusNotFound, "Item not found")
		return
	}
	imageID := s.newID()
	img := &shop.Image{
		ID:      imageID,
		URL:     "/api/images/" + imageID.String(),
		ItemsID: rec.items[idx].ID,
	}
	rec.items[idx].Image = img
	writeJSON(w, http.StatusOK, img)
}

func (s *Server) handleDeleteImage(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.visibleList(w, r)
	if rec == nil {
		return
	}
	idx := findItem(rec, shop.ID(chi.URLParam(r, "itemID")))
	if idx < 0 || rec.items[idx].Image == nil {
		writeError(w, http.StatusNotFound, "Image not found")
		return
	}
	rec.items[idx].Image = nil
	w.WriteHeader(http.StatusNoContent)
}
