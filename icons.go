package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
)

const maxIconBytes = 5 << 20

var allowedIconExts = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".ico":  "image/x-icon",
	".svg":  "image/svg+xml",
}

var (
	unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)
	safeFileName    = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
)

func (app *App) HandleListIcons(w http.ResponseWriter, r *http.Request) {
	icons, err := app.cachedIcons()
	if err != nil {
		log.Printf("error while getting icons: %v", err)
		writeInternalServerErr(w)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, icons)
}

func (app *App) HandleUploadIcon(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxIconBytes + 1<<20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if _, ok := allowedIconExts[ext]; !ok {
		writeError(w, http.StatusBadRequest,
			"unsupported file type, allowed: .png, .jpg, .jpeg, .webp, .ico, .svg")
		return
	}

	if header.Size > maxIconBytes {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("file too large (max %d KB)", maxIconBytes/1024))
		return
	}

	if err := os.MkdirAll(app.cfg.UploadDir, 0o755); err != nil {
		log.Printf("error while creating upload dir: %v", err)
		writeInternalServerErr(w)
		return
	}

	base := sanitizeBaseName(strings.TrimSuffix(filepath.Base(header.Filename), ext))
	fileName, err := uniqueFileName(app.cfg.UploadDir, base, ext)
	if err != nil {
		log.Printf("error while picking file name: %v", err)
		writeInternalServerErr(w)
		return
	}

	fullPath := filepath.Join(app.cfg.UploadDir, fileName)
	if err := saveUpload(fullPath, file); err != nil {
		log.Printf("error while saving icon file: %v", err)
		writeInternalServerErr(w)
		return
	}

	created, err := app.DB.InsertIcon(name, fileName)
	if err != nil {
		// best-effort rollback of the file so the row insert failure does
		// not leave an orphan asset behind
		os.Remove(fullPath)
		log.Printf("error while inserting icon: %v", err)
		writeInternalServerErr(w)
		return
	}

	app.Cache.Invalidate(cacheTagIcons)

	writeJSON(w, http.StatusCreated, created)
}

func (app *App) HandleRenameIcon(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var form struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	form.Name = strings.TrimSpace(form.Name)
	if form.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	if err := app.DB.RenameIcon(id, form.Name); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "icon not found")
			return
		}
		log.Printf("error while renaming icon: %v", err)
		writeInternalServerErr(w)
		return
	}

	icon, err := app.DB.GetIcon(id)
	if err != nil {
		log.Printf("error while getting icon: %v", err)
		writeInternalServerErr(w)
		return
	}

	app.Cache.Invalidate(cacheTagIcons)

	writeJSON(w, http.StatusOK, icon)
}

func (app *App) HandleDeleteIcon(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	// Live count, never the cached one: a link may have been attached
	// since the icons listing was cached.
	icon, err := app.DB.GetIcon(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "icon not found")
			return
		}
		log.Printf("error while getting icon: %v", err)
		writeInternalServerErr(w)
		return
	}

	if icon.InUseCount > 0 {
		writeError(w, http.StatusConflict,
			fmt.Sprintf("icon is used by %d links", icon.InUseCount))
		return
	}

	// Remove the file first; a file that is already gone counts as
	// removed, any other failure aborts so the row keeps its asset.
	if icon.FileName != "" {
		err := os.Remove(filepath.Join(app.cfg.UploadDir, icon.FileName))
		if err != nil && !os.IsNotExist(err) {
			log.Printf("error while removing icon file: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to remove file")
			return
		}
	}

	if err := app.DB.DeleteIcon(id); err != nil {
		log.Printf("error while deleting icon: %v", err)
		writeInternalServerErr(w)
		return
	}

	app.Cache.Invalidate(cacheTagIcons)

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (app *App) HandleIconFile(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if !safeFileName.MatchString(name) {
		writeError(w, http.StatusBadRequest, "invalid filename")
		return
	}

	fullPath := filepath.Join(app.cfg.UploadDir, name)
	stat, err := os.Stat(fullPath)
	if os.IsNotExist(err) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		log.Printf("error while serving icon file: %v", err)
		writeInternalServerErr(w)
		return
	}

	// "." and ".." pass the pattern above but resolve to directories.
	if !stat.Mode().IsRegular() {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	if ct, ok := allowedIconExts[strings.ToLower(filepath.Ext(name))]; ok {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("ETag", fmt.Sprintf(`W/"%x-%x"`, stat.Size(), stat.ModTime().UnixNano()))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")

	// ServeFile answers If-None-Match/If-Modified-Since with 304 using the
	// ETag above and the file's mtime.
	http.ServeFile(w, r, fullPath)
}

// sanitizeBaseName reduces an uploaded file's base name to a safe slug.
func sanitizeBaseName(base string) string {
	base = unsafeNameChars.ReplaceAllString(base, "-")
	base = strings.Trim(base, "-")
	if len(base) > 80 {
		base = base[:80]
	}
	if base == "" {
		base = "icon"
	}

	return base
}

// uniqueFileName appends -2, -3, ... until the name is free in dir.
func uniqueFileName(dir, base, ext string) (string, error) {
	for n := 0; ; n++ {
		candidate := base + ext
		if n > 0 {
			candidate = fmt.Sprintf("%s-%d%s", base, n+1, ext)
		}

		_, err := os.Stat(filepath.Join(dir, candidate))
		if os.IsNotExist(err) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
	}
}

func saveUpload(path string, src io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return err
	}

	return dst.Close()
}
