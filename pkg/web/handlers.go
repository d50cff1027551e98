package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/sipeed/picochat/pkg/chat"
	"github.com/sipeed/picochat/pkg/history"
	"github.com/sipeed/picochat/pkg/logger"
	"github.com/sipeed/picochat/pkg/metrics"
	"github.com/sipeed/picochat/pkg/render"
	"github.com/sipeed/picochat/pkg/session"
	"github.com/sipeed/picochat/pkg/sidebar"
)

type messageView struct {
	Content string         `json:"content"`
	Class   chat.Direction `json:"class"`
	HTML    string         `json:"html"`
}

func viewOf(m chat.Message) messageView {
	return messageView{Content: m.Content, Class: m.Class, HTML: render.HTML(m.Content)}
}

func viewsOf(msgs []chat.Message) []messageView {
	out := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, viewOf(m))
	}
	return out
}

type stateResponse struct {
	Messages       []messageView      `json:"messages"`
	Documents      []sidebar.Document `json:"documents"`
	History        []history.Entry    `json:"history"`
	HistoryVisible bool               `json:"history_visible"`
	ProfileVisible bool               `json:"profile_visible"`
}

func stateOf(r *http.Request, sess *session.Session) stateResponse {
	side := sess.Sidebar.State()
	return stateResponse{
		Messages:       viewsOf(sess.Surface.Messages()),
		Documents:      side.Documents,
		History:        sess.History.Entries(r.Context()),
		HistoryVisible: side.HistoryVisible,
		ProfileVisible: side.ProfileVisible,
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("bad request: %w", err)
	}
	return nil
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	// Already logged in
	if _, ok := s.currentSession(r); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if r.Method == http.MethodGet {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, loginHTML)
		return
	}

	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	isJSON := strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
	if isJSON {
		if err := decodeBody(w, r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "bad request")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		body.Username = r.FormValue("username")
		body.Password = r.FormValue("password")
	}

	if err := s.gate.Authenticate(body.Username, body.Password); err != nil {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		logger.WarnCF("webchat", "WebChat login failed", map[string]interface{}{
			"remote": r.RemoteAddr,
		})
		if isJSON {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, loginPage(err.Error()))
		return
	}

	token, _, err := s.sessions.Create()
	if err != nil {
		logger.ErrorCF("webchat", "Failed to create session", map[string]interface{}{"error": err.Error()})
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	metrics.LoginsTotal.WithLabelValues("success").Inc()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(s.cookieTTL.Seconds()),
	})

	if isJSON {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		if err := s.sessions.Destroy(r.Context(), cookie.Value); err != nil {
			logger.WarnCF("webchat", "Failed to clear session", map[string]interface{}{"error": err.Error()})
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"sessions": s.sessions.Len(),
	})
}

func (s *Server) handleUI(w http.ResponseWriter, _ *http.Request, _ *session.Session) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, chatHTML)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	writeJSON(w, http.StatusOK, stateOf(r, sess))
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req struct {
		Message string `json:"message"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	if !sess.Surface.Submit(req.Message) {
		writeError(w, http.StatusBadRequest, "message is empty")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"messages": viewsOf(sess.Surface.Messages()),
	})
}

func (s *Server) handleNewChat(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	saved, err := sess.NewChat(r.Context())
	if err != nil {
		logger.ErrorCF("webchat", "New chat failed", map[string]interface{}{
			"session": sess.ID,
			"error":   err.Error(),
		})
		writeError(w, http.StatusInternalServerError, "could not save chat")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"saved": saved,
		"state": stateOf(r, sess),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	entries := make([]history.Entry, 0)
	for i, name := range sess.History.List(r.Context()) {
		entries = append(entries, history.Entry{Index: i, Name: name})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"history": entries})
}

func (s *Server) handleToggleHistory(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	visible, entries := sess.ToggleHistory(r.Context())
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"visible": visible,
		"history": entries,
	})
}

func (s *Server) handleLoadHistory(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	loaded := false
	if index, err := strconv.Atoi(r.PathValue("index")); err == nil {
		loaded = sess.LoadHistory(r.Context(), index)
	} else {
		sess.Sidebar.HideHistory()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"loaded": loaded,
		"state":  stateOf(r, sess),
	})
}

func (s *Server) handleNewFolder(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	doc, err := sess.Sidebar.NewFolder(req.Name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req struct {
		Files []sidebar.FileInfo `json:"files"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	added := sess.Sidebar.UploadFiles(sess.Surface, req.Files)
	writeJSON(w, http.StatusOK, map[string]interface{}{"documents": added})
}

func (s *Server) handleProfile(show bool) sessionHandler {
	return func(w http.ResponseWriter, _ *http.Request, sess *session.Session) {
		if show {
			sess.Sidebar.ShowProfile()
		} else {
			sess.Sidebar.HideProfile()
		}
		writeJSON(w, http.StatusOK, map[string]bool{"visible": show})
	}
}
