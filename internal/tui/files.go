package tui

import (
	"os"
	"path/filepath"
	"sort"

	list "github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"zipheat/internal/geom"
)

type fileItem struct {
	title, desc string
	path        string
}

func (f fileItem) Title() string       { return f.title }
func (f fileItem) Description() string { return f.desc }
func (f fileItem) FilterValue() string { return f.title }

// refreshDir lists the geometry shards in the working directory.
func (m *Model) refreshDir() {
	entries, err := os.ReadDir(m.cwd)
	if err != nil {
		m.status = "read dir error: " + err.Error()
		return
	}
	var items []list.Item
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !geom.Supported(name) {
			continue
		}
		items = append(items, fileItem{title: name, desc: filepath.Ext(name), path: filepath.Join(m.cwd, name)})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].(fileItem).Title() < items[j].(fileItem).Title() })
	m.items = items
	m.l.SetItems(items)
	if len(items) == 0 {
		m.status = "no geometry shards in current directory"
	}
}

// loadFile replaces the dataset with a single shard.
func (m *Model) loadFile(p string) tea.Cmd {
	if m.loading {
		m.status = "load already in progress"
		return nil
	}
	m.loading = true
	m.status = "loading " + filepath.Base(p)
	return m.loadCmd([]string{p})
}
