package services

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strings"

	"github.com/custodia-labs/movement-lens/internal/core/domain"
	"github.com/custodia-labs/movement-lens/internal/core/ports/driving"
)

// Operating system identifiers.
const (
	osDarwin  = "darwin"
	osLinux   = "linux"
	osWindows = "windows"
)

// referenceSearchURL is used when a movement has no Wikipedia link.
const referenceSearchURL = "https://en.wikipedia.org/w/index.php?search="

// Ensure ResultActionService implements the interface.
var _ driving.ResultActionService = (*ResultActionService)(nil)

// ResultActionService provides desktop actions on results and analyses.
type ResultActionService struct {
	goos     string
	lookPath func(string) (string, error)
	run      func(cmd *exec.Cmd) error
	start    func(cmd *exec.Cmd) error
}

// NewResultActionService creates a new result action service.
func NewResultActionService() *ResultActionService {
	return &ResultActionService{
		goos:     runtime.GOOS,
		lookPath: exec.LookPath,
		run:      func(cmd *exec.Cmd) error { return cmd.Run() },
		start:    func(cmd *exec.Cmd) error { return cmd.Start() },
	}
}

// CopyToClipboard copies text to the system clipboard.
func (s *ResultActionService) CopyToClipboard(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: nothing to copy", domain.ErrInvalidInput)
	}
	cmd, err := s.clipboardCommand()
	if err != nil {
		return err
	}
	cmd.Stdin = strings.NewReader(text)
	return s.run(cmd)
}

// OpenReference opens the movement's Wikipedia page, or a Wikipedia search
// for its name when no link is recorded.
func (s *ResultActionService) OpenReference(movement *domain.Movement) error {
	if movement == nil {
		return fmt.Errorf("%w: movement is nil", domain.ErrInvalidInput)
	}
	cmd, err := s.openCommand(ReferenceURL(movement))
	if err != nil {
		return err
	}
	return s.start(cmd)
}

// ReferenceURL returns the page OpenReference would open.
func ReferenceURL(movement *domain.Movement) string {
	if u := strings.TrimSpace(movement.Wikipedia); strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	term := movement.Name
	if term == "" {
		term = movement.Hashtag
	}
	return referenceSearchURL + url.QueryEscape(term+" movement")
}

// clipboardCommand picks the OS-specific clipboard writer.
func (s *ResultActionService) clipboardCommand() (*exec.Cmd, error) {
	switch s.goos {
	case osDarwin:
		return exec.Command("pbcopy"), nil
	case osLinux:
		// Try xclip first, fall back to xsel
		if _, err := s.lookPath("xclip"); err == nil {
			return exec.Command("xclip", "-selection", "clipboard"), nil
		}
		if _, err := s.lookPath("xsel"); err == nil {
			return exec.Command("xsel", "--clipboard", "--input"), nil
		}
		return nil, fmt.Errorf("no clipboard utility found (install xclip or xsel)")
	case osWindows:
		return exec.Command("cmd", "/c", "clip"), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", s.goos)
	}
}

// openCommand opens a URL using the system default handler.
func (s *ResultActionService) openCommand(target string) (*exec.Cmd, error) {
	switch s.goos {
	case osDarwin:
		return exec.Command("open", target), nil
	case osLinux:
		return exec.Command("xdg-open", target), nil
	case osWindows:
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", target), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", s.goos)
	}
}
