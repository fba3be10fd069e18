package commands

import (
	"fmt"
	"strings"

	"github.com/pkg/browser"
)

type Launcher interface {
	Open(program string) error
}

// URLSchemeLauncher opens programs through their registered URL scheme, for
// example "obsidian://".
type URLSchemeLauncher struct {
	openURL func(string) error
}

func NewURLSchemeLauncher() *URLSchemeLauncher {
	return &URLSchemeLauncher{openURL: browser.OpenURL}
}

func (l *URLSchemeLauncher) Open(program string) error {
	scheme := strings.ToLower(strings.TrimSpace(program))
	if scheme == "" || strings.ContainsAny(scheme, " /:") {
		return fmt.Errorf("invalid program name %q", program)
	}

	if err := l.openURL(scheme + "://"); err != nil {
		return fmt.Errorf("failed to open %s: %w", program, err)
	}
	return nil
}
