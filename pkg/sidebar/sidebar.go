package sidebar

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/h2non/filetype"

	"github.com/sipeed/picochat/pkg/chat"
	"github.com/sipeed/picochat/pkg/logger"
	"github.com/sipeed/picochat/pkg/metrics"
)

var ErrEmptyFolderName = errors.New("folder name is empty")

type DocumentKind string

const (
	KindFile   DocumentKind = "file"
	KindFolder DocumentKind = "folder"
)

// Document is one row of the sidebar document list.
type Document struct {
	Name  string       `json:"name"`
	Label string       `json:"label"`
	Kind  DocumentKind `json:"kind"`
	Size  int64        `json:"size,omitempty"`
	Human string       `json:"human_size,omitempty"`
	MIME  string       `json:"mime,omitempty"`
}

// FileInfo is the metadata of an attached file. Contents are never sent.
type FileInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// State is the visible sidebar state of one session.
type State struct {
	Documents      []Document `json:"documents"`
	HistoryVisible bool       `json:"history_visible"`
	ProfileVisible bool       `json:"profile_visible"`
}

type Sidebar struct {
	mu             sync.Mutex
	documents      []Document
	historyVisible bool
	profileVisible bool
}

func New() *Sidebar {
	return &Sidebar{}
}

func (s *Sidebar) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := make([]Document, len(s.documents))
	copy(docs, s.documents)
	return State{
		Documents:      docs,
		HistoryVisible: s.historyVisible,
		ProfileVisible: s.profileVisible,
	}
}

// NewFolder puts a folder at the top of the document list.
func (s *Sidebar) NewFolder(name string) (Document, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Document{}, ErrEmptyFolderName
	}
	doc := Document{Name: name, Label: "📁 " + name, Kind: KindFolder}

	s.mu.Lock()
	s.documents = append([]Document{doc}, s.documents...)
	s.mu.Unlock()

	logger.InfoCF("sidebar", "New folder created", map[string]interface{}{"folder": name})
	return doc, nil
}

// UploadFiles lists each file in the sidebar and announces it on the chat
// surface. Only the name and size are used.
func (s *Sidebar) UploadFiles(surface *chat.Surface, files []FileInfo) []Document {
	added := make([]Document, 0, len(files))
	for _, f := range files {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			continue
		}
		doc := Document{
			Name:  name,
			Label: name,
			Kind:  KindFile,
			Size:  f.Size,
			Human: humanize.Bytes(uint64(max(f.Size, 0))),
			MIME:  mimeFor(name),
		}

		surface.Append(chat.NewIncoming(fmt.Sprintf("Uploaded **%s**", name)))

		s.mu.Lock()
		s.documents = append(s.documents, doc)
		s.mu.Unlock()

		metrics.FilesUploaded.Inc()
		logger.InfoCF("sidebar", "File uploaded", map[string]interface{}{
			"file": name,
			"size": f.Size,
		})
		added = append(added, doc)
	}
	return added
}

// mimeFor infers a type from the file extension alone.
func mimeFor(name string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if ext == "" {
		return ""
	}
	kind := filetype.GetType(ext)
	if kind == filetype.Unknown {
		return ""
	}
	return kind.MIME.Value
}

// ToggleHistory flips the history panel and reports whether it is now shown.
func (s *Sidebar) ToggleHistory() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.historyVisible = !s.historyVisible
	return s.historyVisible
}

func (s *Sidebar) HideHistory() {
	s.mu.Lock()
	s.historyVisible = false
	s.mu.Unlock()
}

func (s *Sidebar) ShowProfile() {
	s.mu.Lock()
	s.profileVisible = true
	s.mu.Unlock()
}

func (s *Sidebar) HideProfile() {
	s.mu.Lock()
	s.profileVisible = false
	s.mu.Unlock()
}
