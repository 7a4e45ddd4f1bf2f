package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nexsite/internal/admin"
	"github.com/nexsite/internal/db"
)

const (
	workspaceSessionKey = "admin_workspace"
	flashNotice         = "notice"
	flashWarning        = "warning"

	demoContentWarning = "Using demo data - store connection failed"
	demoLeadsWarning   = "Using demo leads - store connection failed"
)

// workspace returns the caller's admin workspace, assigning a session id
// on first visit. The session is saved by the caller's response helper.
func (a *API) workspace(c *gin.Context) *admin.Workspace {
	session := sessions.Default(c)
	id, _ := session.Get(workspaceSessionKey).(string)
	if id == "" {
		id = uuid.NewString()
		session.Set(workspaceSessionKey, id)
	}
	return a.workspaces.Get(id)
}

// editor returns the workspace editor, loading it on first use.
func (a *API) editor(c *gin.Context) *admin.ContentEditor {
	ed := a.workspace(c).Editor
	if !ed.Loaded() {
		a.loadEditor(c, ed)
	}
	return ed
}

func (a *API) loadEditor(c *gin.Context, ed *admin.ContentEditor) {
	ed.Load(c.Request.Context())
	if ed.UsingDemo() {
		addFlash(c, flashWarning, demoContentWarning)
	}
}

// leadBoard returns the workspace lead board, loading it on first use.
func (a *API) leadBoard(c *gin.Context) *admin.LeadBoard {
	board := a.workspace(c).Leads
	if !board.Loaded() {
		board.Load(c.Request.Context())
		if board.UsingDemo() {
			addFlash(c, flashWarning, demoLeadsWarning)
		}
	}
	return board
}

func addFlash(c *gin.Context, kind, message string) {
	sessions.Default(c).AddFlash(message, kind)
}

func takeFlashes(c *gin.Context, kind string) []string {
	raw := sessions.Default(c).Flashes(kind)
	messages := make([]string, 0, len(raw))
	for _, value := range raw {
		if text, ok := value.(string); ok {
			messages = append(messages, text)
		}
	}
	return messages
}

func saveSession(c *gin.Context) {
	if err := sessions.Default(c).Save(); err != nil {
		c.Error(err)
	}
}

// redirectAdmin finishes a POST with a see-other redirect.
func redirectAdmin(c *gin.Context, location string) {
	saveSession(c)
	c.Redirect(http.StatusSeeOther, location)
}

func (a *API) renderAdmin(c *gin.Context, template string, data gin.H) {
	data["notices"] = takeFlashes(c, flashNotice)
	data["warnings"] = takeFlashes(c, flashWarning)
	saveSession(c)
	a.renderHTML(c, http.StatusOK, template, data)
}

func websiteAnchor(section string) string {
	if section == "" {
		return "/admin/website"
	}
	return "/admin/website#section-" + url.PathEscape(section)
}

// applyDraftForm copies posted fields onto draft. Metadata that does not
// parse is left as it was.
func applyDraftForm(c *gin.Context, draft *admin.Draft) {
	draft.Title = strings.TrimSpace(c.PostForm("title"))
	draft.Content = c.PostForm("content")
	draft.ImageURL = strings.TrimSpace(c.PostForm("image_url"))
	draft.DisplayOrder = parseIntDefault(c.PostForm("display_order"), draft.DisplayOrder)
	draft.IsActive = parseFormBool(c.PostForm("is_active"))
	if raw, ok := c.GetPostForm("metadata"); ok {
		draft.SetMetadataText(raw)
	}
}

// ShowLeads renders the lead review board.
func (a *API) ShowLeads(c *gin.Context) {
	board := a.leadBoard(c)
	a.renderAdmin(c, "admin_leads.html", gin.H{
		"title":     "Consultation Requests",
		"leads":     board.Rows(),
		"usingDemo": board.UsingDemo(),
		"statuses":  []db.LeadStatus{db.LeadStatusPending, db.LeadStatusCompleted, db.LeadStatusRejected},
	})
}

// UpdateLeadStatusForm applies a status button from the board.
func (a *API) UpdateLeadStatusForm(c *gin.Context) {
	status := db.LeadStatus(strings.TrimSpace(c.PostForm("status")))
	if err := a.leadBoard(c).SetStatus(c.Request.Context(), c.Param("id"), status); err != nil {
		addFlash(c, flashWarning, err.Error())
	} else {
		addFlash(c, flashNotice, fmt.Sprintf("Status updated to %s", status))
	}
	redirectAdmin(c, "/admin")
}

// ShowWebsite renders the content editor.
func (a *API) ShowWebsite(c *gin.Context) {
	ed := a.editor(c)
	editing, isEditing := ed.Editing()
	creating, isCreating := ed.Creating()

	data := gin.H{
		"title":      "Website Content",
		"sections":   ed.Sections(),
		"usingDemo":  ed.UsingDemo(),
		"unsynced":   ed.Unsynced(),
		"isEditing":  isEditing,
		"editing":    editing,
		"isCreating": isCreating,
		"creating":   creating,
	}
	if isEditing {
		data["editingMetadata"] = editing.MetadataText()
	}
	if isCreating {
		data["creatingMetadata"] = creating.MetadataText()
	}
	if a.sync != nil {
		data["sync"] = a.sync.Stats()
	}
	a.renderAdmin(c, "admin_website.html", data)
}

// ReloadWebsite discards the local copy and reads the store again.
func (a *API) ReloadWebsite(c *gin.Context) {
	a.loadEditor(c, a.workspace(c).Editor)
	redirectAdmin(c, "/admin/website")
}

// ToggleWebsiteSection expands or collapses one section.
func (a *API) ToggleWebsiteSection(c *gin.Context) {
	section := c.Param("section")
	a.editor(c).ToggleSection(section)
	redirectAdmin(c, websiteAnchor(section))
}

// BeginWebsiteCreate opens a new-item draft for a section.
func (a *API) BeginWebsiteCreate(c *gin.Context) {
	section := c.Param("section")
	a.editor(c).BeginCreate(section)
	redirectAdmin(c, websiteAnchor(section))
}

// SaveWebsiteCreate creates the open draft.
func (a *API) SaveWebsiteCreate(c *gin.Context) {
	ed := a.editor(c)
	draft, ok := ed.Creating()
	if !ok {
		draft = ed.BeginCreate(strings.TrimSpace(c.PostForm("section")))
	}
	applyDraftForm(c, &draft)

	item, err := ed.SaveNew(c.Request.Context(), draft)
	if err != nil {
		addFlash(c, flashWarning, capitalize(err.Error()))
		redirectAdmin(c, websiteAnchor(draft.Section))
		return
	}
	addFlash(c, flashNotice, "Item created successfully")
	redirectAdmin(c, websiteAnchor(item.Section))
}

// CancelWebsiteCreate discards the new-item draft.
func (a *API) CancelWebsiteCreate(c *gin.Context) {
	a.editor(c).CancelCreate()
	redirectAdmin(c, "/admin/website")
}

// BeginWebsiteEdit opens an item for editing.
func (a *API) BeginWebsiteEdit(c *gin.Context) {
	draft, err := a.editor(c).BeginEdit(c.Param("id"))
	if err != nil {
		addFlash(c, flashWarning, capitalize(err.Error()))
		redirectAdmin(c, "/admin/website")
		return
	}
	redirectAdmin(c, websiteAnchor(draft.Section))
}

// SaveWebsiteEdit saves the posted edit form.
func (a *API) SaveWebsiteEdit(c *gin.Context) {
	ed := a.editor(c)
	id := c.Param("id")

	draft, ok := ed.Editing()
	if !ok || draft.ID != id {
		item, found := ed.Item(id)
		if !found {
			addFlash(c, flashWarning, capitalize(admin.ErrItemNotFound.Error()))
			redirectAdmin(c, "/admin/website")
			return
		}
		draft = admin.DraftOf(item)
	}
	applyDraftForm(c, &draft)

	if _, err := ed.SaveEdit(c.Request.Context(), draft); err != nil {
		addFlash(c, flashWarning, capitalize(err.Error()))
		redirectAdmin(c, websiteAnchor(draft.Section))
		return
	}
	addFlash(c, flashNotice, "Item updated successfully")
	redirectAdmin(c, websiteAnchor(draft.Section))
}

// CancelWebsiteEdit closes the edit form.
func (a *API) CancelWebsiteEdit(c *gin.Context) {
	a.editor(c).CancelEdit()
	redirectAdmin(c, "/admin/website")
}

// ToggleWebsiteItem flips an item's is_active flag.
func (a *API) ToggleWebsiteItem(c *gin.Context) {
	ed := a.editor(c)
	id := c.Param("id")
	item, _ := ed.Item(id)

	active, err := ed.ToggleActive(c.Request.Context(), id)
	if err != nil {
		addFlash(c, flashWarning, capitalize(err.Error()))
		redirectAdmin(c, "/admin/website")
		return
	}
	state := "deactivated"
	if active {
		state = "activated"
	}
	addFlash(c, flashNotice, fmt.Sprintf("Item %s successfully", state))
	redirectAdmin(c, websiteAnchor(item.Section))
}

// DeleteWebsiteItem removes an item; the form must post confirm=yes.
func (a *API) DeleteWebsiteItem(c *gin.Context) {
	ed := a.editor(c)
	id := c.Param("id")
	item, _ := ed.Item(id)

	confirmed := parseFormBool(c.PostForm("confirm"))
	if err := ed.Delete(c.Request.Context(), id, confirmed); err != nil {
		addFlash(c, flashWarning, capitalize(err.Error()))
		redirectAdmin(c, websiteAnchor(item.Section))
		return
	}
	addFlash(c, flashNotice, "Item deleted successfully")
	redirectAdmin(c, websiteAnchor(item.Section))
}

type leadStatusRequest struct {
	Status db.LeadStatus `json:"status"`
}

// ListAdminContent returns the editor's grouped copy.
func (a *API) ListAdminContent(c *gin.Context) {
	ed := a.editor(c)
	saveSession(c)
	c.JSON(http.StatusOK, gin.H{
		"sections":   ed.Sections(),
		"using_demo": ed.UsingDemo(),
		"unsynced":   ed.Unsynced(),
	})
}

type contentCreateRequest struct {
	admin.Draft
	DisplayOrder *int `json:"display_order"`
}

// CreateAdminContent creates an item from a JSON draft. Without an explicit
// display_order the item goes to the end of its section.
func (a *API) CreateAdminContent(c *gin.Context) {
	ed := a.editor(c)
	saveSession(c)

	req := contentCreateRequest{Draft: admin.Draft{Metadata: db.EmptyObject(), IsActive: true}}
	if !bindJSON(c, &req, "invalid content payload") {
		return
	}
	draft := req.Draft
	if req.DisplayOrder != nil {
		draft.DisplayOrder = *req.DisplayOrder
	} else {
		draft.DisplayOrder = len(ed.Items(draft.Section))
	}

	item, err := ed.SaveNew(c.Request.Context(), draft)
	if err != nil {
		respondError(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	c.JSON(http.StatusCreated, item)
}

// UpdateAdminContent applies a JSON body over the current item. Fields
// missing from the body keep their current values.
func (a *API) UpdateAdminContent(c *gin.Context) {
	ed := a.editor(c)
	saveSession(c)

	id := c.Param("id")
	item, ok := ed.Item(id)
	if !ok {
		respondError(c, http.StatusNotFound, admin.ErrItemNotFound.Error())
		return
	}

	draft := admin.DraftOf(item)
	if !bindJSON(c, &draft, "invalid content payload") {
		return
	}
	draft.ID = id

	updated, err := ed.SaveEdit(c.Request.Context(), draft)
	switch {
	case errors.Is(err, admin.ErrItemNotFound):
		respondError(c, http.StatusNotFound, err.Error())
		return
	case err != nil:
		respondError(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	c.JSON(http.StatusOK, updated)
}

// ToggleAdminContent flips is_active and returns the new value.
func (a *API) ToggleAdminContent(c *gin.Context) {
	ed := a.editor(c)
	saveSession(c)

	id := c.Param("id")
	active, err := ed.ToggleActive(c.Request.Context(), id)
	if err != nil {
		respondError(c, http.StatusNotFound, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "is_active": active})
}

// DeleteAdminContent removes an item when ?confirm=true is given.
func (a *API) DeleteAdminContent(c *gin.Context) {
	ed := a.editor(c)
	saveSession(c)

	id := c.Param("id")
	err := ed.Delete(c.Request.Context(), id, parseFormBool(c.Query("confirm")))
	switch {
	case errors.Is(err, admin.ErrNotConfirmed):
		respondError(c, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, admin.ErrItemNotFound):
		respondError(c, http.StatusNotFound, err.Error())
		return
	case err != nil:
		c.Error(err)
		respondError(c, http.StatusInternalServerError, "delete failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// ListAdminLeads returns the lead board rows.
func (a *API) ListAdminLeads(c *gin.Context) {
	board := a.leadBoard(c)
	saveSession(c)
	c.JSON(http.StatusOK, gin.H{
		"leads":      board.Rows(),
		"using_demo": board.UsingDemo(),
	})
}

// UpdateAdminLeadStatus sets a lead's review status.
func (a *API) UpdateAdminLeadStatus(c *gin.Context) {
	board := a.leadBoard(c)
	saveSession(c)

	var req leadStatusRequest
	if !bindJSON(c, &req, "invalid status payload") {
		return
	}

	id := c.Param("id")
	err := board.SetStatus(c.Request.Context(), id, req.Status)
	switch {
	case errors.Is(err, admin.ErrInvalidStatus):
		respondError(c, http.StatusUnprocessableEntity, err.Error())
		return
	case errors.Is(err, admin.ErrLeadNotFound):
		respondError(c, http.StatusNotFound, err.Error())
		return
	case err != nil:
		c.Error(err)
		respondError(c, http.StatusInternalServerError, "status update failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": req.Status})
}

// GetSyncState reports background write progress for the caller's workspace.
func (a *API) GetSyncState(c *gin.Context) {
	ed := a.workspace(c).Editor
	saveSession(c)

	payload := gin.H{"unsynced": ed.Unsynced()}
	if a.sync != nil {
		payload["outbox"] = a.sync.Stats()
	}
	c.JSON(http.StatusOK, payload)
}

func capitalize(message string) string {
	r, size := utf8.DecodeRuneInString(message)
	if r == utf8.RuneError {
		return message
	}
	return string(unicode.ToUpper(r)) + message[size:]
}
