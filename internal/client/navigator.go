package client

import "sync"

type Navigator interface {
	NavigateTo(path string) error
}

// NavigatorFunc adapts a plain function to Navigator.
type NavigatorFunc func(path string) error

func (f NavigatorFunc) NavigateTo(path string) error {
	return f(path)
}

// History is a Navigator that records every location it is sent to.
type History struct {
	mu    sync.Mutex
	paths []string
}

func (h *History) NavigateTo(path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.paths = append(h.paths, path)
	return nil
}

func (h *History) Paths() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.paths...)
}

func (h *History) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.paths) == 0 {
		return ""
	}
	return h.paths[len(h.paths)-1]
}
