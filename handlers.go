package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/otiai10/opengraph/v2"
)

func (app *App) HandleHome(w http.ResponseWriter, r *http.Request) {
	links, err := app.cachedLinks("default")
	if err != nil {
		log.Printf("error while getting links: %v", err)
		writeInternalServerErr(w)
		return
	}

	p := app.Data
	p.Links = links
	if err := app.Templates.Home.Execute(w, p); err != nil {
		log.Printf("error while writing template: %v", err)
	}
}

func (app *App) HandleListApplications(w http.ResponseWriter, r *http.Request) {
	sort := r.URL.Query().Get("sort")
	switch sort {
	case "asc", "desc":
	default:
		sort = "default"
	}

	links, err := app.cachedLinks(sort)
	if err != nil {
		log.Printf("error while getting links: %v", err)
		writeInternalServerErr(w)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, links)
}

type linkForm struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	IconID *int64 `json:"iconId"`
}

func (app *App) HandleCreateApplication(w http.ResponseWriter, r *http.Request) {
	var form linkForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	if form.Title == "" {
		writeError(w, http.StatusBadRequest, "title is missing")
		return
	}
	if form.URL == "" {
		writeError(w, http.StatusBadRequest, "url is missing")
		return
	}

	created, err := app.DB.InsertLink(form.Title, form.URL, form.IconID)
	if err != nil {
		log.Printf("error while inserting link: %v", err)
		writeInternalServerErr(w)
		return
	}

	app.Cache.Invalidate(cacheTagLinks)
	app.Cache.Invalidate(cacheTagIcons)

	writeJSON(w, http.StatusOK, created)
}

func (app *App) HandleUpdateApplication(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var form linkForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	if form.Title == "" {
		writeError(w, http.StatusBadRequest, "title is missing")
		return
	}
	if form.URL == "" {
		writeError(w, http.StatusBadRequest, "url is missing")
		return
	}

	if err := app.DB.UpdateLink(id, form.Title, form.URL, form.IconID); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "link not found")
			return
		}
		log.Printf("error while updating link: %v", err)
		writeInternalServerErr(w)
		return
	}

	updated, err := app.DB.GetLink(id)
	if err != nil {
		log.Printf("error while getting link: %v", err)
		writeInternalServerErr(w)
		return
	}

	app.Cache.Invalidate(cacheTagLinks)
	app.Cache.Invalidate(cacheTagIcons)

	writeJSON(w, http.StatusOK, updated)
}

func (app *App) HandleDeleteApplication(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	shifted, deletedSort, err := app.DB.DeleteLink(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "link not found")
			return
		}
		log.Printf("error while deleting link: %v", err)
		writeInternalServerErr(w)
		return
	}

	app.Cache.Invalidate(cacheTagLinks)
	app.Cache.Invalidate(cacheTagIcons)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":          true,
		"shifted":          shifted,
		"deletedSortOrder": deletedSort,
	})
}

func (app *App) HandleReorderApplications(w http.ResponseWriter, r *http.Request) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid data format")
		return
	}

	items := make([]ReorderItem, 0, len(raw))
	for _, rm := range raw {
		var it struct {
			ID        *int64 `json:"id"`
			SortOrder *int   `json:"sortOrder"`
		}
		if err := json.Unmarshal(rm, &it); err != nil || it.ID == nil || it.SortOrder == nil {
			writeError(w, http.StatusBadRequest,
				"each item must have numeric `id` and `sortOrder`")
			return
		}
		items = append(items, ReorderItem{ID: *it.ID, SortOrder: *it.SortOrder})
	}

	updated, reason, err := app.DB.Reorder(items)
	if err != nil {
		if errors.Is(err, ErrDuplicateID) || errors.Is(err, ErrUnknownID) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("error while reordering links: %v", err)
		writeInternalServerErr(w)
		return
	}

	resp := map[string]interface{}{
		"success": true,
		"updated": updated,
	}
	if reason != "" {
		resp["reason"] = reason
	} else {
		app.Cache.Invalidate(cacheTagLinks)
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandlePreview fetches OpenGraph metadata so the create dialog can prefill
// title and icon suggestions from the target page.
func (app *App) HandlePreview(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		writeError(w, http.StatusBadRequest, "url is missing")
		return
	}

	ogp, err := opengraph.Fetch(url)
	if err != nil {
		writeError(w, http.StatusBadRequest, "error while fetching link: "+err.Error())
		return
	}

	ogp.ToAbs()
	image := ""
	if len(ogp.Image) > 0 {
		image = ogp.Image[0].URL
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"url":         url,
		"title":       ogp.Title,
		"description": ogp.Description,
		"image":       image,
	})
}

// HandleUserInfo reports the proxy-asserted account name with its case
// preserved; only the DOMAIN\ prefix is stripped. Lowercasing is an
// allow-list concern, not a display one.
func (app *App) HandleUserInfo(w http.ResponseWriter, r *http.Request) {
	var username *string
	if raw := stripDomain(app.Gate.resolver.rawIdentity(r.Header)); raw != "" {
		username = &raw
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, map[string]interface{}{"username": username})
}

func (app *App) HandleAdminMe(w http.ResponseWriter, r *http.Request) {
	var username *string
	p, isAdmin := app.Gate.Identify(r.Header)
	if p.Username != "" {
		username = &p.Username
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"username": username,
		"isAdmin":  isAdmin,
	})
}
