package http

import (
	"io"
	"net/http"
	"strconv"

	"github.com/aretw0/taleweave/pkg/domain"
	"github.com/go-chi/chi/v5"
)

// maxAvatarBytes bounds uploaded avatar images.
const maxAvatarBytes = 8 << 20

// mountResources registers CRUD routes for the services configured on s.
func (s *Server) mountResources(r chi.Router) {
	if s.Characters != nil {
		r.Get("/characters", s.ListCharacters)
		r.Post("/characters", s.SaveCharacter)
		r.Get("/characters/{characterID}", s.GetCharacter)
		r.Put("/characters/{characterID}", s.SaveCharacter)
		r.Delete("/characters/{characterID}", s.DeleteCharacter)
		r.Get("/characters/{characterID}/avatar", s.GetAvatar)
		r.Put("/characters/{characterID}/avatar", s.PutAvatar)
	}
	if s.WorldBooks != nil {
		r.Get("/characters/{characterID}/worldbook", s.ListWorldBook)
		r.Post("/characters/{characterID}/worldbook", s.AddWorldBookEntry)
		r.Put("/characters/{characterID}/worldbook", s.ReplaceWorldBook)
		r.Put("/characters/{characterID}/worldbook/{uid}", s.UpdateWorldBookEntry)
		r.Delete("/characters/{characterID}/worldbook/{uid}", s.DeleteWorldBookEntry)
	}
	if s.Regex != nil {
		r.Get("/regex/{owner}/scripts", s.ListScripts)
		r.Post("/regex/{owner}/scripts", s.SaveScript)
		r.Put("/regex/{owner}/scripts", s.ReplaceScripts)
		r.Delete("/regex/{owner}/scripts/{key}", s.DeleteScript)
		r.Get("/regex/{owner}/settings", s.GetScriptSettings)
		r.Put("/regex/{owner}/settings", s.PutScriptSettings)
	}
}

// ListCharacters handles GET /characters.
func (s *Server) ListCharacters(w http.ResponseWriter, r *http.Request) {
	chars, err := s.Characters.List(r.Context())
	if err != nil {
		s.writeError(w, "ListCharacters", err)
		return
	}
	s.writeJSON(w, http.StatusOK, chars)
}

// GetCharacter handles GET /characters/{id}.
func (s *Server) GetCharacter(w http.ResponseWriter, r *http.Request) {
	c, err := s.Characters.Get(r.Context(), chi.URLParam(r, "characterID"))
	if err != nil {
		s.writeError(w, "GetCharacter", err)
		return
	}
	s.writeJSON(w, http.StatusOK, c)
}

// SaveCharacter handles POST /characters and PUT /characters/{id}.
// The path id, when present, wins over the body.
func (s *Server) SaveCharacter(w http.ResponseWriter, r *http.Request) {
	var c domain.Character
	if !s.decode(w, r, &c) {
		return
	}
	status := http.StatusCreated
	if id := chi.URLParam(r, "characterID"); id != "" {
		c.ID = id
		status = http.StatusOK
	}
	saved, err := s.Characters.Save(r.Context(), c)
	if err != nil {
		s.writeError(w, "SaveCharacter", err)
		return
	}
	s.writeJSON(w, status, saved)
}

// DeleteCharacter handles DELETE /characters/{id}.
func (s *Server) DeleteCharacter(w http.ResponseWriter, r *http.Request) {
	if err := s.Characters.Delete(r.Context(), chi.URLParam(r, "characterID")); err != nil {
		s.writeError(w, "DeleteCharacter", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetAvatar handles GET /characters/{id}/avatar.
func (s *Server) GetAvatar(w http.ResponseWriter, r *http.Request) {
	data, err := s.Characters.Avatar(r.Context(), chi.URLParam(r, "characterID"))
	if err != nil {
		s.writeError(w, "GetAvatar", err)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// PutAvatar handles PUT /characters/{id}/avatar with the raw image as body.
func (s *Server) PutAvatar(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxAvatarBytes+1))
	if err != nil {
		s.writeError(w, "PutAvatar", err)
		return
	}
	if len(data) == 0 || len(data) > maxAvatarBytes {
		s.writeError(w, "PutAvatar", &domain.ValidationError{Field: "avatar", Reason: "avatar must be between 1 byte and 8 MiB"})
		return
	}
	if err := s.Characters.SetAvatar(r.Context(), chi.URLParam(r, "characterID"), data); err != nil {
		s.writeError(w, "PutAvatar", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListWorldBook handles GET /characters/{id}/worldbook.
func (s *Server) ListWorldBook(w http.ResponseWriter, r *http.Request) {
	entries, err := s.WorldBooks.List(r.Context(), chi.URLParam(r, "characterID"))
	if err != nil {
		s.writeError(w, "ListWorldBook", err)
		return
	}
	s.writeJSON(w, http.StatusOK, entries)
}

// AddWorldBookEntry handles POST /characters/{id}/worldbook.
func (s *Server) AddWorldBookEntry(w http.ResponseWriter, r *http.Request) {
	var entry domain.WorldBookEntry
	if !s.decode(w, r, &entry) {
		return
	}
	added, err := s.WorldBooks.Add(r.Context(), chi.URLParam(r, "characterID"), entry)
	if err != nil {
		s.writeError(w, "AddWorldBookEntry", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, added)
}

// ReplaceWorldBook handles PUT /characters/{id}/worldbook. The body may be a
// list of entries or a character-card book keyed by uid.
func (s *Server) ReplaceWorldBook(w http.ResponseWriter, r *http.Request) {
	var raw any
	if !s.decode(w, r, &raw) {
		return
	}
	entries, err := s.WorldBooks.Replace(r.Context(), chi.URLParam(r, "characterID"), raw)
	if err != nil {
		s.writeError(w, "ReplaceWorldBook", err)
		return
	}
	s.writeJSON(w, http.StatusOK, entries)
}

// UpdateWorldBookEntry handles PUT /characters/{id}/worldbook/{uid}.
func (s *Server) UpdateWorldBookEntry(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.uidParam(w, r)
	if !ok {
		return
	}
	var entry domain.WorldBookEntry
	if !s.decode(w, r, &entry) {
		return
	}
	entry.UID = uid
	updated, err := s.WorldBooks.Update(r.Context(), chi.URLParam(r, "characterID"), entry)
	if err != nil {
		s.writeError(w, "UpdateWorldBookEntry", err)
		return
	}
	s.writeJSON(w, http.StatusOK, updated)
}

// DeleteWorldBookEntry handles DELETE /characters/{id}/worldbook/{uid}.
func (s *Server) DeleteWorldBookEntry(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.uidParam(w, r)
	if !ok {
		return
	}
	if err := s.WorldBooks.Delete(r.Context(), chi.URLParam(r, "characterID"), uid); err != nil {
		s.writeError(w, "DeleteWorldBookEntry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) uidParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	uid, err := strconv.Atoi(chi.URLParam(r, "uid"))
	if err != nil {
		s.writeError(w, "ParseUID", &domain.ValidationError{Field: "uid", Reason: "uid must be an integer"})
		return 0, false
	}
	return uid, true
}

// ListScripts handles GET /regex/{owner}/scripts.
func (s *Server) ListScripts(w http.ResponseWriter, r *http.Request) {
	scripts, err := s.Regex.Scripts(r.Context(), chi.URLParam(r, "owner"))
	if err != nil {
		s.writeError(w, "ListScripts", err)
		return
	}
	s.writeJSON(w, http.StatusOK, scripts)
}

// SaveScript handles POST /regex/{owner}/scripts. A script with an existing
// key replaces it.
func (s *Server) SaveScript(w http.ResponseWriter, r *http.Request) {
	var script domain.RegexScript
	if !s.decode(w, r, &script) {
		return
	}
	if err := s.Regex.Save(r.Context(), chi.URLParam(r, "owner"), script); err != nil {
		s.writeError(w, "SaveScript", err)
		return
	}
	s.writeJSON(w, http.StatusOK, script)
}

// ReplaceScripts handles PUT /regex/{owner}/scripts.
func (s *Server) ReplaceScripts(w http.ResponseWriter, r *http.Request) {
	var scripts []domain.RegexScript
	if !s.decode(w, r, &scripts) {
		return
	}
	if err := s.Regex.Replace(r.Context(), chi.URLParam(r, "owner"), scripts); err != nil {
		s.writeError(w, "ReplaceScripts", err)
		return
	}
	s.writeJSON(w, http.StatusOK, scripts)
}

// DeleteScript handles DELETE /regex/{owner}/scripts/{key}.
func (s *Server) DeleteScript(w http.ResponseWriter, r *http.Request) {
	if err := s.Regex.Delete(r.Context(), chi.URLParam(r, "owner"), chi.URLParam(r, "key")); err != nil {
		s.writeError(w, "DeleteScript", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetScriptSettings handles GET /regex/{owner}/settings.
func (s *Server) GetScriptSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.Regex.Settings(r.Context(), chi.URLParam(r, "owner"))
	if err != nil {
		s.writeError(w, "GetScriptSettings", err)
		return
	}
	s.writeJSON(w, http.StatusOK, settings)
}

// PutScriptSettings handles PUT /regex/{owner}/settings.
func (s *Server) PutScriptSettings(w http.ResponseWriter, r *http.Request) {
	var settings domain.RegexSettings
	if !s.decode(w, r, &settings) {
		return
	}
	if err := s.Regex.SetSettings(r.Context(), chi.URLParam(r, "owner"), settings); err != nil {
		s.writeError(w, "PutScriptSettings", err)
		return
	}
	s.writeJSON(w, http.StatusOK, settings)
}
